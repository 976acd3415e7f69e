package git

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseWorktreePorcelain(t *testing.T) {
	t.Run("parses attached and detached worktrees", func(t *testing.T) {
		lines := []string{
			"worktree /repo",
			"HEAD 1111111111111111111111111111111111111111",
			"branch refs/heads/main",
			"",
			"worktree /repo-feat-1",
			"HEAD 2222222222222222222222222222222222222222",
			"branch refs/heads/feat-1",
			"",
			"worktree /repo-detached",
			"HEAD 3333333333333333333333333333333333333333",
			"detached",
		}

		worktrees := parseWorktreePorcelain(lines)
		require.Len(t, worktrees, 3)

		require.Equal(t, "/repo", worktrees[0].Path)
		require.Equal(t, "main", worktrees[0].Branch)
		require.Equal(t, "1111111111111111111111111111111111111111", worktrees[0].Head)

		require.Equal(t, "feat-1", worktrees[1].Branch)

		require.Equal(t, "/repo-detached", worktrees[2].Path)
		require.Empty(t, worktrees[2].Branch)
	})

	t.Run("empty input yields no worktrees", func(t *testing.T) {
		require.Empty(t, parseWorktreePorcelain(nil))
	})
}

func TestWorktreePathFor(t *testing.T) {
	worktrees := []Worktree{
		{Path: "/repo", Branch: "main"},
		{Path: "/repo-feat-1", Branch: "feat-1"},
		{Path: "/repo-detached", Branch: ""},
	}

	// A branch checked out in a linked worktree must be rebased there; git
	// refuses to touch it from any other working directory.
	require.Equal(t, "/repo-feat-1", worktreePathFor(worktrees, "feat-1"))
	require.Equal(t, "/repo", worktreePathFor(worktrees, "main"))
	require.Empty(t, worktreePathFor(worktrees, "feat-2"))
}

func TestParseConflictedPaths(t *testing.T) {
	lines := []string{
		"UU internal/land/execute.go",
		"AA docs/new.md",
		"DD gone.txt",
		" M modified-but-not-conflicted.go",
		"?? untracked.txt",
		"AU ours-added.go",
	}

	conflicted := parseConflictedPaths(lines)
	require.Len(t, conflicted, 4)

	require.Equal(t, "internal/land/execute.go", conflicted[0].Path)
	require.Equal(t, ConflictBothModified, conflicted[0].Type)
	require.Equal(t, ConflictBothAdded, conflicted[1].Type)
	require.Equal(t, ConflictBothDeleted, conflicted[2].Type)
	require.Equal(t, ConflictAddedByUs, conflicted[3].Type)
}
