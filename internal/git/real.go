package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"

	wserrors "workstack.dev/workstack/internal/errors"
)

// RealGit implements Git by driving the git binary through a CommandRunner.
type RealGit struct {
	root   string
	runner *CommandRunner
}

// NewRealGit creates a RealGit rooted at the repository containing dir.
// Repository discovery walks up from dir the way git itself does.
func NewRealGit(dir string) (*RealGit, error) {
	root, err := DiscoverRepoRoot(dir)
	if err != nil {
		return nil, err
	}
	return &RealGit{root: root, runner: NewCommandRunner(root)}, nil
}

// DiscoverRepoRoot returns the root directory of the git repository
// containing dir, using go-git's dot-git detection.
func DiscoverRepoRoot(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	return worktree.Filesystem.Root(), nil
}

// RepoRoot returns the root of the primary working directory
func (g *RealGit) RepoRoot() string {
	return g.root
}

// ListWorktrees returns every worktree of the repository with its branch and head
func (g *RealGit) ListWorktrees(ctx context.Context) ([]Worktree, error) {
	lines, err := g.runner.RunLines(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("failed to list worktrees: %w", err)
	}
	return parseWorktreePorcelain(lines), nil
}

// parseWorktreePorcelain parses `git worktree list --porcelain` output.
// Each worktree is a block of "worktree <path>", "HEAD <sha>" and
// "branch refs/heads/<name>" lines separated by blank lines; detached
// worktrees carry a "detached" line instead of a branch.
func parseWorktreePorcelain(lines []string) []Worktree {
	var worktrees []Worktree
	var current *Worktree

	flush := func() {
		if current != nil {
			worktrees = append(worktrees, *current)
			current = nil
		}
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			current = &Worktree{Path: strings.TrimPrefix(line, "worktree ")}
		case current != nil && strings.HasPrefix(line, "HEAD "):
			current.Head = strings.TrimPrefix(line, "HEAD ")
		case current != nil && strings.HasPrefix(line, "branch "):
			current.Branch = strings.TrimPrefix(line, "branch refs/heads/")
		case line == "":
			flush()
		}
	}
	flush()

	return worktrees
}

// AddWorktree adds a new worktree at path with branch checked out
func (g *RealGit) AddWorktree(ctx context.Context, path, branch string) error {
	_, err := g.runner.Run(ctx, "worktree", "add", path, branch)
	if err != nil {
		return fmt.Errorf("failed to add worktree at %s: %w", path, err)
	}
	return nil
}

// RemoveWorktree removes the worktree at path
func (g *RealGit) RemoveWorktree(ctx context.Context, path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	if _, err := g.runner.Run(ctx, args...); err != nil {
		return fmt.Errorf("failed to remove worktree at %s: %w", path, err)
	}
	return nil
}

// CurrentBranch returns the branch HEAD points at
func (g *RealGit) CurrentBranch(ctx context.Context) (string, error) {
	output, err := g.runner.Run(ctx, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		return "", wserrors.ErrNotOnBranch
	}
	return output, nil
}

// BranchHead returns the commit a branch points at
func (g *RealGit) BranchHead(ctx context.Context, branch string) (string, error) {
	output, err := g.runner.Run(ctx, "rev-parse", "refs/heads/"+branch)
	if err != nil {
		return "", wserrors.NewBranchNotFoundError(branch)
	}
	return output, nil
}

// CheckoutBranch checks out a branch in the primary working directory
func (g *RealGit) CheckoutBranch(ctx context.Context, branch string) error {
	if _, err := g.runner.Run(ctx, "checkout", branch); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", branch, err)
	}
	return nil
}

// HasUncommittedChanges reports whether the working directory is dirty
func (g *RealGit) HasUncommittedChanges(ctx context.Context) (bool, error) {
	return g.WorktreeHasUncommittedChanges(ctx, g.root)
}

// WorktreeHasUncommittedChanges reports whether the worktree at path is dirty
func (g *RealGit) WorktreeHasUncommittedChanges(ctx context.Context, path string) (bool, error) {
	output, err := g.runner.RunInDir(ctx, path, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("failed to check status of %s: %w", path, err)
	}
	return output != "", nil
}

// StageAll stages every change, in the worktree with a rebase in progress
// when one exists.
func (g *RealGit) StageAll(ctx context.Context) error {
	if _, err := g.runner.RunInDir(ctx, g.rebaseDir(ctx), "add", "-A"); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}
	return nil
}

// CommitStaged commits the staged changes, in the worktree with a rebase in
// progress when one exists.
func (g *RealGit) CommitStaged(ctx context.Context, message string) error {
	if _, err := g.runner.RunInDir(ctx, g.rebaseDir(ctx), "commit", "--no-verify", "-m", message); err != nil {
		return fmt.Errorf("failed to commit staged changes: %w", err)
	}
	return nil
}

// Fetch fetches from remote
func (g *RealGit) Fetch(ctx context.Context, remote string) error {
	if _, err := g.runner.Run(ctx, "fetch", remote); err != nil {
		return fmt.Errorf("failed to fetch %s: %w", remote, err)
	}
	return nil
}

// PullFFOnly pulls branch from remote with fast-forward-only semantics.
// It returns PullDiverged, not an error, when the local branch has
// independent commits; callers decide whether that is fatal.
func (g *RealGit) PullFFOnly(ctx context.Context, remote, branch string) (PullResult, error) {
	oldRev, err := g.BranchHead(ctx, branch)
	if err != nil {
		return PullDiverged, err
	}

	if _, err := g.runner.Run(ctx, "fetch", remote, branch); err != nil {
		return PullDiverged, fmt.Errorf("failed to fetch %s/%s: %w", remote, branch, err)
	}

	if _, err := g.runner.Run(ctx, "merge", "--ff-only", fmt.Sprintf("%s/%s", remote, branch)); err != nil {
		return PullDiverged, nil
	}

	newRev, err := g.BranchHead(ctx, branch)
	if err != nil {
		return PullDiverged, err
	}
	if oldRev == newRev {
		return PullUnneeded, nil
	}
	return PullDone, nil
}

// Push pushes branch to remote with an upstream set
func (g *RealGit) Push(ctx context.Context, remote, branch string) error {
	if _, err := g.runner.Run(ctx, "push", "-u", remote, branch); err != nil {
		return fmt.Errorf("failed to push %s: %w", branch, err)
	}
	return nil
}

// RebaseOnto rebases branch onto the given base. The rebase runs inside the
// branch's own worktree when it has one; git refuses to rewrite a branch
// checked out in a linked worktree from anywhere else.
// oldBase is the previous base revision; commits reachable from it are not replayed.
func (g *RealGit) RebaseOnto(ctx context.Context, branch, onto, oldBase string) (RebaseResult, error) {
	worktrees, err := g.ListWorktrees(ctx)
	if err != nil {
		return RebaseConflict, err
	}
	dir := worktreePathFor(worktrees, branch)
	if dir == "" {
		dir = g.root
	}

	args := []string{"rebase", "--onto", onto, oldBase, branch}
	if oldBase == "" {
		args = []string{"rebase", onto, branch}
	}

	if _, err := g.runner.RunInDir(ctx, dir, args...); err != nil {
		if g.isRebaseInProgressAt(ctx, dir) {
			return RebaseConflict, nil
		}
		return RebaseConflict, fmt.Errorf("failed to rebase %s onto %s: %w", branch, onto, err)
	}
	return RebaseDone, nil
}

// RebaseContinue continues an in-progress rebase, wherever it is running
func (g *RealGit) RebaseContinue(ctx context.Context) (RebaseResult, error) {
	dir := g.rebaseDir(ctx)
	if _, err := g.runner.RunInDir(ctx, dir, "-c", "core.editor=true", "rebase", "--continue"); err != nil {
		if g.isRebaseInProgressAt(ctx, dir) {
			return RebaseConflict, nil
		}
		return RebaseConflict, fmt.Errorf("rebase continue failed: %w", err)
	}
	return RebaseDone, nil
}

// RebaseAbort aborts an in-progress rebase, wherever it is running
func (g *RealGit) RebaseAbort(ctx context.Context) error {
	if _, err := g.runner.RunInDir(ctx, g.rebaseDir(ctx), "rebase", "--abort"); err != nil {
		return fmt.Errorf("rebase abort failed: %w", err)
	}
	return nil
}

// worktreePathFor returns the path of the worktree with branch checked out,
// or "" when the branch is not checked out anywhere.
func worktreePathFor(worktrees []Worktree, branch string) string {
	for _, wt := range worktrees {
		if wt.Branch == branch {
			return wt.Path
		}
	}
	return ""
}

// rebaseDir returns the worktree with a rebase in progress, falling back to
// the primary working directory when none is found.
func (g *RealGit) rebaseDir(ctx context.Context) string {
	worktrees, err := g.ListWorktrees(ctx)
	if err != nil {
		return g.root
	}
	for _, wt := range worktrees {
		if g.isRebaseInProgressAt(ctx, wt.Path) {
			return wt.Path
		}
	}
	return g.root
}

// isRebaseInProgressAt checks dir for rebase-merge or rebase-apply state,
// which is more reliable than REBASE_HEAD (it can persist after a rebase).
func (g *RealGit) isRebaseInProgressAt(ctx context.Context, dir string) bool {
	gitDir, err := g.runner.RunInDir(ctx, dir, "rev-parse", "--git-dir")
	if err != nil {
		return false
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(dir, gitDir)
	}
	if _, err := os.Stat(filepath.Join(gitDir, "rebase-merge")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(gitDir, "rebase-apply")); err == nil {
		return true
	}
	return false
}

// ConflictedPaths returns the set of unmerged paths and their conflict type,
// read from the worktree with a rebase in progress when one exists.
func (g *RealGit) ConflictedPaths(ctx context.Context) ([]ConflictedFile, error) {
	lines, err := g.runner.RunLines(ctx, "-C", g.rebaseDir(ctx), "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("failed to read status: %w", err)
	}
	return parseConflictedPaths(lines), nil
}

// parseConflictedPaths extracts unmerged entries from porcelain status lines
func parseConflictedPaths(lines []string) []ConflictedFile {
	conflictCodes := map[string]ConflictType{
		"UU": ConflictBothModified,
		"AA": ConflictBothAdded,
		"DD": ConflictBothDeleted,
		"AU": ConflictAddedByUs,
		"UA": ConflictAddedByThem,
		"DU": ConflictDeletedByUs,
		"UD": ConflictDeletedByThem,
	}

	var conflicted []ConflictedFile
	for _, line := range lines {
		if len(line) < 4 {
			continue
		}
		if kind, ok := conflictCodes[line[:2]]; ok {
			conflicted = append(conflicted, ConflictedFile{
				Path: strings.TrimSpace(line[3:]),
				Type: kind,
			})
		}
	}
	return conflicted
}
