package git_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"workstack.dev/workstack/internal/git"
)

func TestFakeGitWorktrees(t *testing.T) {
	ctx := context.Background()

	t.Run("add and remove worktrees", func(t *testing.T) {
		g := git.NewFakeGit("/repo", "main")
		g.SetBranch("feat-1", "sha-1")

		require.NoError(t, g.AddWorktree(ctx, "/repo-feat-1", "feat-1"))

		worktrees, err := g.ListWorktrees(ctx)
		require.NoError(t, err)
		require.Len(t, worktrees, 2)

		require.NoError(t, g.RemoveWorktree(ctx, "/repo-feat-1", false))
		worktrees, err = g.ListWorktrees(ctx)
		require.NoError(t, err)
		require.Len(t, worktrees, 1)
	})

	t.Run("rejects adding a branch checked out elsewhere", func(t *testing.T) {
		g := git.NewFakeGit("/repo", "main")
		g.SetBranch("feat-1", "sha-1")
		require.NoError(t, g.AddWorktree(ctx, "/a", "feat-1"))

		err := g.AddWorktree(ctx, "/b", "feat-1")
		require.Error(t, err)
		require.Contains(t, err.Error(), "already checked out")
	})

	t.Run("rejects removing a dirty worktree without force", func(t *testing.T) {
		g := git.NewFakeGit("/repo", "main")
		g.SetBranch("feat-1", "sha-1")
		require.NoError(t, g.AddWorktree(ctx, "/a", "feat-1"))
		g.SetDirty("/a", true)

		require.Error(t, g.RemoveWorktree(ctx, "/a", false))
		require.NoError(t, g.RemoveWorktree(ctx, "/a", true))
	})
}

func TestFakeGitRebase(t *testing.T) {
	ctx := context.Background()

	t.Run("scripted conflict pauses until resolved", func(t *testing.T) {
		g := git.NewFakeGit("/repo", "main")
		g.SetBranch("feat-1", "sha-1")
		g.SetConflictOnRebase("feat-1")

		result, err := g.RebaseOnto(ctx, "feat-1", "main", "")
		require.NoError(t, err)
		require.Equal(t, git.RebaseConflict, result)

		files, err := g.ConflictedPaths(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, files)

		// Still conflicted, continue stays paused
		result, err = g.RebaseContinue(ctx)
		require.NoError(t, err)
		require.Equal(t, git.RebaseConflict, result)

		g.ResolveConflicts()
		result, err = g.RebaseContinue(ctx)
		require.NoError(t, err)
		require.Equal(t, git.RebaseDone, result)
	})

	t.Run("abort clears conflict state", func(t *testing.T) {
		g := git.NewFakeGit("/repo", "main")
		g.SetBranch("feat-1", "sha-1")
		g.SetConflictOnRebase("feat-1")

		_, err := g.RebaseOnto(ctx, "feat-1", "main", "")
		require.NoError(t, err)
		require.NoError(t, g.RebaseAbort(ctx))

		files, err := g.ConflictedPaths(ctx)
		require.NoError(t, err)
		require.Empty(t, files)
	})
}

func TestFakeGitPullFFOnly(t *testing.T) {
	ctx := context.Background()

	t.Run("fast-forwards to the remote head", func(t *testing.T) {
		g := git.NewFakeGit("/repo", "main")
		g.SetRemoteHead("main", "sha-new")

		result, err := g.PullFFOnly(ctx, "origin", "main")
		require.NoError(t, err)
		require.Equal(t, git.PullDone, result)

		head, err := g.BranchHead(ctx, "main")
		require.NoError(t, err)
		require.Equal(t, "sha-new", head)
	})

	t.Run("reports unneeded when already up to date", func(t *testing.T) {
		g := git.NewFakeGit("/repo", "main")

		result, err := g.PullFFOnly(ctx, "origin", "main")
		require.NoError(t, err)
		require.Equal(t, git.PullUnneeded, result)
	})

	t.Run("reports divergence without mutating", func(t *testing.T) {
		g := git.NewFakeGit("/repo", "main")
		g.SetRemoteHead("main", "sha-new")
		g.SetDiverged("main")

		result, err := g.PullFFOnly(ctx, "origin", "main")
		require.NoError(t, err)
		require.Equal(t, git.PullDiverged, result)

		head, err := g.BranchHead(ctx, "main")
		require.NoError(t, err)
		require.NotEqual(t, "sha-new", head)
	})
}
