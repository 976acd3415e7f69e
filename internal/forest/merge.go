package forest

import (
	"context"
	"fmt"
	"strings"

	wserrors "workstack.dev/workstack/internal/errors"
	"workstack.dev/workstack/internal/git"
)

// Merge is the inverse of Split: every worktree in the forest except the
// target is removed, leaving the target's branch checked out. The dirty
// check runs across all doomed worktrees before any of them is removed, so
// either every removal happens or none does.
func Merge(ctx context.Context, reg *Registry, g git.Git, forestName, targetPath string, force bool) (git.Worktree, error) {
	forest, err := reg.Get(forestName)
	if err != nil {
		return git.Worktree{}, err
	}
	if !containsString(forest.Worktrees, targetPath) {
		return git.Worktree{}, wserrors.NewPreconditionError(
			fmt.Sprintf("worktree %s is not a member of forest %s", targetPath, forestName),
			"pass one of the forest's worktrees as the merge target")
	}

	var doomed []string
	for _, path := range forest.Worktrees {
		if path != targetPath {
			doomed = append(doomed, path)
		}
	}

	if !force {
		var dirty []string
		for _, path := range doomed {
			hasChanges, err := g.WorktreeHasUncommittedChanges(ctx, path)
			if err != nil {
				return git.Worktree{}, err
			}
			if hasChanges {
				dirty = append(dirty, path)
			}
		}
		if len(dirty) > 0 {
			return git.Worktree{}, wserrors.NewPreconditionError(
				fmt.Sprintf("worktrees with uncommitted changes: %s", strings.Join(dirty, ", ")),
				"commit or stash the changes, or rerun with --force to discard them")
		}
	}

	for _, path := range doomed {
		if err := g.RemoveWorktree(ctx, path, force); err != nil {
			return git.Worktree{}, fmt.Errorf("merge of forest %s failed removing %s: %w", forestName, path, err)
		}
		if err := reg.RemoveWorktree(path); err != nil {
			return git.Worktree{}, err
		}
	}

	worktrees, err := g.ListWorktrees(ctx)
	if err != nil {
		return git.Worktree{}, err
	}
	for _, wt := range worktrees {
		if wt.Path == targetPath {
			return wt, nil
		}
	}
	return git.Worktree{}, wserrors.NewInternalError(
		fmt.Sprintf("target worktree %s disappeared during merge", targetPath), nil)
}
