// Package hosting integrates the code-host API for pull request operations.
package hosting

import "context"

// PullRequest is the orchestrator's view of a code-host pull request
type PullRequest struct {
	Number int
	// Branch is the head branch of the pull request
	Branch string
	// Base is the branch the pull request currently targets
	Base string
	// State is "open", "closed" or "merged"
	State string
	URL   string
	// MergeConflict reports whether the host has flagged the pull request
	// as unmergeable due to conflicts.
	MergeConflict bool
}

// Client is the code-host capability. Three implementations exist:
// GitHubClient (real API), FakeClient (in-memory, for tests) and
// DryRunClient (records intended writes).
type Client interface {
	// OwnerRepo returns the repository owner and name
	OwnerRepo() (string, string)

	// GetPullRequestForBranch returns the pull request whose head is branch,
	// or nil when none exists.
	GetPullRequestForBranch(ctx context.Context, branch string) (*PullRequest, error)

	// ListPullRequests returns the repository's open pull requests with
	// their merge conflict status, ordered by number.
	ListPullRequests(ctx context.Context) ([]*PullRequest, error)

	// UpdatePullRequestBase retargets a pull request at a new base branch
	UpdatePullRequestBase(ctx context.Context, number int, base string) error

	// MergePullRequest squash-merges a pull request
	MergePullRequest(ctx context.Context, number int) error
}
