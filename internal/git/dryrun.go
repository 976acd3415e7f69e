package git

import (
	"context"
	"strings"
)

// RecordedCall is a single write operation captured by a dry-run wrapper
type RecordedCall struct {
	Op   string
	Args []string
}

func (c RecordedCall) String() string {
	if len(c.Args) == 0 {
		return c.Op
	}
	return c.Op + " " + strings.Join(c.Args, " ")
}

// DryRunGit wraps another Git implementation: reads delegate to the inner
// implementation, writes are recorded and report synthetic success. A dry
// run of an operation therefore sees the real repository state but never
// changes it.
type DryRunGit struct {
	inner Git
	calls []RecordedCall
}

// NewDryRunGit creates a dry-run wrapper around inner
func NewDryRunGit(inner Git) *DryRunGit {
	return &DryRunGit{inner: inner}
}

// RecordedCalls returns the write operations captured so far, in order
func (g *DryRunGit) RecordedCalls() []RecordedCall {
	return append([]RecordedCall(nil), g.calls...)
}

func (g *DryRunGit) record(op string, args ...string) {
	g.calls = append(g.calls, RecordedCall{Op: op, Args: args})
}

// RepoRoot delegates to the wrapped implementation
func (g *DryRunGit) RepoRoot() string {
	return g.inner.RepoRoot()
}

// ListWorktrees delegates to the wrapped implementation
func (g *DryRunGit) ListWorktrees(ctx context.Context) ([]Worktree, error) {
	return g.inner.ListWorktrees(ctx)
}

// AddWorktree records the intended worktree addition
func (g *DryRunGit) AddWorktree(_ context.Context, path, branch string) error {
	g.record("git worktree add", path, branch)
	return nil
}

// RemoveWorktree records the intended worktree removal
func (g *DryRunGit) RemoveWorktree(_ context.Context, path string, force bool) error {
	if force {
		g.record("git worktree remove", "--force", path)
	} else {
		g.record("git worktree remove", path)
	}
	return nil
}

// CurrentBranch delegates to the wrapped implementation
func (g *DryRunGit) CurrentBranch(ctx context.Context) (string, error) {
	return g.inner.CurrentBranch(ctx)
}

// BranchHead delegates to the wrapped implementation
func (g *DryRunGit) BranchHead(ctx context.Context, branch string) (string, error) {
	return g.inner.BranchHead(ctx, branch)
}

// CheckoutBranch records the intended checkout
func (g *DryRunGit) CheckoutBranch(_ context.Context, branch string) error {
	g.record("git checkout", branch)
	return nil
}

// HasUncommittedChanges delegates to the wrapped implementation
func (g *DryRunGit) HasUncommittedChanges(ctx context.Context) (bool, error) {
	return g.inner.HasUncommittedChanges(ctx)
}

// WorktreeHasUncommittedChanges delegates to the wrapped implementation
func (g *DryRunGit) WorktreeHasUncommittedChanges(ctx context.Context, path string) (bool, error) {
	return g.inner.WorktreeHasUncommittedChanges(ctx, path)
}

// StageAll records the intended staging
func (g *DryRunGit) StageAll(_ context.Context) error {
	g.record("git add", "-A")
	return nil
}

// CommitStaged records the intended commit
func (g *DryRunGit) CommitStaged(_ context.Context, message string) error {
	g.record("git commit", "-m", message)
	return nil
}

// Fetch records the intended fetch
func (g *DryRunGit) Fetch(_ context.Context, remote string) error {
	g.record("git fetch", remote)
	return nil
}

// PullFFOnly records the intended pull and reports it as done
func (g *DryRunGit) PullFFOnly(_ context.Context, remote, branch string) (PullResult, error) {
	g.record("git pull --ff-only", remote, branch)
	return PullDone, nil
}

// Push records the intended push
func (g *DryRunGit) Push(_ context.Context, remote, branch string) error {
	g.record("git push", remote, branch)
	return nil
}

// RebaseOnto records the intended rebase and reports it as clean
func (g *DryRunGit) RebaseOnto(_ context.Context, branch, onto, oldBase string) (RebaseResult, error) {
	if oldBase != "" {
		g.record("git rebase", "--onto", onto, oldBase, branch)
	} else {
		g.record("git rebase", onto, branch)
	}
	return RebaseDone, nil
}

// RebaseContinue records the intended continue and reports it as clean
func (g *DryRunGit) RebaseContinue(_ context.Context) (RebaseResult, error) {
	g.record("git rebase", "--continue")
	return RebaseDone, nil
}

// RebaseAbort records the intended abort
func (g *DryRunGit) RebaseAbort(_ context.Context) error {
	g.record("git rebase", "--abort")
	return nil
}

// ConflictedPaths delegates to the wrapped implementation
func (g *DryRunGit) ConflictedPaths(ctx context.Context) ([]ConflictedFile, error) {
	return g.inner.ConflictedPaths(ctx)
}
