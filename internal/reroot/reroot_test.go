package reroot_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	wserrors "workstack.dev/workstack/internal/errors"
	"workstack.dev/workstack/internal/git"
	"workstack.dev/workstack/internal/reroot"
	"workstack.dev/workstack/internal/stack"
)

// rerootRepo builds a fake repository with the stack main <- feat-1 <- feat-2,
// feat-2 checked out in the primary worktree and feat-1 in its own worktree.
func rerootRepo(t *testing.T) (*git.FakeGit, *stack.FakeTool) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0750))

	g := git.NewFakeGit(root, "main")
	g.SetBranch("feat-1", "sha-feat-1")
	g.SetBranch("feat-2", "sha-feat-2")
	require.NoError(t, g.CheckoutBranch(context.Background(), "feat-2"))
	g.AddExistingWorktree(filepath.Join(filepath.Dir(root), "feat-1"), "feat-1")

	tool := stack.NewFakeTool()
	tool.SetParent("feat-1", "main")
	tool.SetParent("feat-2", "feat-1")

	return g, tool
}

func options() reroot.Options {
	return reroot.Options{Trunk: "main", StackToolEnabled: true}
}

func TestRerootCompletes(t *testing.T) {
	ctx := context.Background()
	g, tool := rerootRepo(t)

	result, err := reroot.Start(ctx, g, tool, options())
	require.NoError(t, err)
	require.True(t, result.Completed)
	require.Equal(t, []string{"feat-1", "feat-2"}, result.RebasedBranches)

	// State file is gone once the reroot finishes
	st, err := reroot.LoadState(g.RepoRoot())
	require.NoError(t, err)
	require.Nil(t, st)
}

func TestRerootPausesAndResumes(t *testing.T) {
	ctx := context.Background()
	g, tool := rerootRepo(t)
	g.SetConflictOnRebase("feat-1")

	prompted := false
	opts := options()
	opts.ConfirmConflictCommit = func(branch string, files []git.ConflictedFile) (bool, error) {
		prompted = true
		require.Equal(t, "feat-1", branch)
		require.NotEmpty(t, files)
		return true, nil
	}

	result, err := reroot.Start(ctx, g, tool, opts)
	require.NoError(t, err)
	require.False(t, result.Completed)
	require.Equal(t, "feat-1", result.PausedBranch)
	require.True(t, prompted)

	// The pause survives on disk with the conflict commit flagged
	st, err := reroot.LoadState(g.RepoRoot())
	require.NoError(t, err)
	require.NotNil(t, st)
	require.Equal(t, "feat-1", st.PausedBranch)
	require.Equal(t, []string{"feat-1", "feat-2"}, st.Remaining)
	require.True(t, st.ConflictCommitted)

	// User resolves the conflicts, then continues
	g.ResolveConflicts()
	result, err = reroot.Continue(ctx, g, tool, nil)
	require.NoError(t, err)
	require.True(t, result.Completed)
	require.Equal(t, []string{"feat-2"}, result.RebasedBranches)

	st, err = reroot.LoadState(g.RepoRoot())
	require.NoError(t, err)
	require.Nil(t, st)

	// The conflict commit and its resolution commit were both created
	commits := 0
	for _, op := range g.Mutations() {
		if op == "commit conflict state on feat-1 before resolution" || op == "commit resolve conflicts on feat-1" {
			commits++
		}
	}
	require.Equal(t, 2, commits)
}

func TestRerootContinueWithoutState(t *testing.T) {
	ctx := context.Background()
	g, tool := rerootRepo(t)

	_, err := reroot.Continue(ctx, g, tool, nil)
	require.ErrorIs(t, err, wserrors.ErrNoRerootInProgress)
}

func TestRerootAbort(t *testing.T) {
	ctx := context.Background()
	g, tool := rerootRepo(t)
	g.SetConflictOnRebase("feat-1")

	result, err := reroot.Start(ctx, g, tool, options())
	require.NoError(t, err)
	require.Equal(t, "feat-1", result.PausedBranch)

	require.NoError(t, reroot.Abort(ctx, g))
	require.Contains(t, g.Mutations(), "rebase abort")

	st, err := reroot.LoadState(g.RepoRoot())
	require.NoError(t, err)
	require.Nil(t, st)

	require.ErrorIs(t, reroot.Abort(ctx, g), wserrors.ErrNoRerootInProgress)
}

func TestRerootPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("stack tool disabled", func(t *testing.T) {
		g, tool := rerootRepo(t)
		opts := options()
		opts.StackToolEnabled = false

		_, err := reroot.Start(ctx, g, tool, opts)
		require.Error(t, err)
		require.Equal(t, wserrors.KindPrecondition, wserrors.KindOf(err))
	})

	t.Run("dirty working directory", func(t *testing.T) {
		g, tool := rerootRepo(t)
		g.SetDirty(g.RepoRoot(), true)

		_, err := reroot.Start(ctx, g, tool, options())
		require.Error(t, err)
		require.Equal(t, wserrors.KindPrecondition, wserrors.KindOf(err))

		// No state was left behind
		st, err := reroot.LoadState(g.RepoRoot())
		require.NoError(t, err)
		require.Nil(t, st)
	})

	t.Run("branch without a worktree", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0750))
		g := git.NewFakeGit(root, "main")
		g.SetBranch("feat-1", "sha-feat-1")
		g.SetBranch("feat-2", "sha-feat-2")
		require.NoError(t, g.CheckoutBranch(ctx, "feat-2"))
		// feat-1 has no worktree

		tool := stack.NewFakeTool()
		tool.SetParent("feat-1", "main")
		tool.SetParent("feat-2", "feat-1")

		_, err := reroot.Start(ctx, g, tool, options())
		require.Error(t, err)
		require.Contains(t, err.Error(), "feat-1 has no worktree")
	})

	t.Run("current branch is trunk", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0750))
		g := git.NewFakeGit(root, "main")
		tool := stack.NewFakeTool()

		_, err := reroot.Start(ctx, g, tool, options())
		require.ErrorIs(t, err, wserrors.ErrTrunkOperation)
		require.Equal(t, wserrors.KindPrecondition, wserrors.KindOf(err))
	})

	t.Run("starting twice is rejected", func(t *testing.T) {
		g, tool := rerootRepo(t)
		g.SetConflictOnRebase("feat-1")

		_, err := reroot.Start(ctx, g, tool, options())
		require.NoError(t, err)

		_, err = reroot.Start(ctx, g, tool, options())
		require.Error(t, err)
		require.Contains(t, err.Error(), "already in progress")
	})
}
