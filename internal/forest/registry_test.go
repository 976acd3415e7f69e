package forest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	wserrors "workstack.dev/workstack/internal/errors"
	"workstack.dev/workstack/internal/forest"
	"workstack.dev/workstack/internal/git"
	"workstack.dev/workstack/internal/stack"
)

// newRepoRoot creates a directory with a .git dir so registry and state
// files have somewhere to live.
func newRepoRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0750))
	return root
}

func TestRegistryRename(t *testing.T) {
	t.Run("rename changes the label and nothing else", func(t *testing.T) {
		reg := forest.NewRegistry(newRepoRoot(t))
		_, err := reg.Create("oak", "/repo", "/repo-feat-1")
		require.NoError(t, err)

		require.NoError(t, reg.Rename("oak", "birch"))

		renamed, err := reg.Get("birch")
		require.NoError(t, err)
		require.Equal(t, []string{"/repo", "/repo-feat-1"}, renamed.Worktrees)

		_, err = reg.Get("oak")
		require.Error(t, err)
	})

	t.Run("rename to an existing name fails", func(t *testing.T) {
		reg := forest.NewRegistry(newRepoRoot(t))
		_, err := reg.Create("oak", "/a")
		require.NoError(t, err)
		_, err = reg.Create("birch", "/b")
		require.NoError(t, err)

		require.Error(t, reg.Rename("oak", "birch"))
	})
}

func TestRegistryGarbageCollect(t *testing.T) {
	t.Run("collects only empty forests", func(t *testing.T) {
		reg := forest.NewRegistry(newRepoRoot(t))
		_, err := reg.Create("empty")
		require.NoError(t, err)
		_, err = reg.Create("occupied", "/repo")
		require.NoError(t, err)

		deleted, err := reg.GarbageCollect()
		require.NoError(t, err)
		require.Equal(t, []string{"empty"}, deleted)

		forests, err := reg.List()
		require.NoError(t, err)
		require.Len(t, forests, 1)
		require.Equal(t, "occupied", forests[0].Name)
	})

	t.Run("removing the last worktree leaves the record for sync to collect", func(t *testing.T) {
		reg := forest.NewRegistry(newRepoRoot(t))
		_, err := reg.Create("oak", "/repo")
		require.NoError(t, err)

		require.NoError(t, reg.RemoveWorktree("/repo"))

		f, err := reg.Get("oak")
		require.NoError(t, err)
		require.Empty(t, f.Worktrees)
	})
}

func TestRegistryResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves by stack lineage", func(t *testing.T) {
		root := newRepoRoot(t)
		g := git.NewFakeGit(root, "main")
		g.SetBranch("feat-1", "sha-1")
		g.SetBranch("feat-2", "sha-2")
		g.AddExistingWorktree("/repo-feat-1", "feat-1")
		g.AddExistingWorktree("/repo-feat-2", "feat-2")

		tool := stack.NewFakeTool()
		tool.SetParent("feat-1", "main")
		tool.SetParent("feat-2", "feat-1")

		reg := forest.NewRegistry(root)
		_, err := reg.Create("oak", "/repo-feat-1", "/repo-feat-2")
		require.NoError(t, err)

		f, err := reg.Resolve(ctx, g, tool, "main", "/repo-feat-2")
		require.NoError(t, err)
		require.Equal(t, "oak", f.Name)
	})

	t.Run("a chain spanning two forests is ambiguous", func(t *testing.T) {
		root := newRepoRoot(t)
		g := git.NewFakeGit(root, "main")
		g.SetBranch("feat-1", "sha-1")
		g.SetBranch("feat-2", "sha-2")
		g.AddExistingWorktree("/repo-feat-1", "feat-1")
		g.AddExistingWorktree("/repo-feat-2", "feat-2")

		tool := stack.NewFakeTool()
		tool.SetParent("feat-1", "main")
		tool.SetParent("feat-2", "feat-1")

		reg := forest.NewRegistry(root)
		_, err := reg.Create("oak", "/repo-feat-1")
		require.NoError(t, err)
		_, err = reg.Create("birch", "/repo-feat-2")
		require.NoError(t, err)

		_, err = reg.Resolve(ctx, g, tool, "main", "/repo-feat-1")
		require.ErrorIs(t, err, wserrors.ErrAmbiguousForest)
	})
}
