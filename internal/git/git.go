package git

import "context"

// Git is the version-control capability consumed by the orchestrator.
// Every mutating operation returns a typed failure and never silently no-ops.
// Three implementations exist: RealGit (drives the git binary), FakeGit
// (in-memory, for tests) and DryRunGit (records intended writes).
type Git interface {
	// RepoRoot returns the root of the primary working directory
	RepoRoot() string

	// Worktrees
	ListWorktrees(ctx context.Context) ([]Worktree, error)
	AddWorktree(ctx context.Context, path, branch string) error
	RemoveWorktree(ctx context.Context, path string, force bool) error

	// Branch state
	CurrentBranch(ctx context.Context) (string, error)
	BranchHead(ctx context.Context, branch string) (string, error)
	CheckoutBranch(ctx context.Context, branch string) error

	// Working directory state
	HasUncommittedChanges(ctx context.Context) (bool, error)
	WorktreeHasUncommittedChanges(ctx context.Context, path string) (bool, error)
	StageAll(ctx context.Context) error
	CommitStaged(ctx context.Context, message string) error

	// Remote synchronization
	Fetch(ctx context.Context, remote string) error
	PullFFOnly(ctx context.Context, remote, branch string) (PullResult, error)
	Push(ctx context.Context, remote, branch string) error

	// Rebase and conflict state
	RebaseOnto(ctx context.Context, branch, onto, oldBase string) (RebaseResult, error)
	RebaseContinue(ctx context.Context) (RebaseResult, error)
	RebaseAbort(ctx context.Context) error
	ConflictedPaths(ctx context.Context) ([]ConflictedFile, error)
}
