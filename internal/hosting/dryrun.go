package hosting

import (
	"context"
	"fmt"
)

// DryRunClient wraps another Client: reads delegate, writes are recorded
// and report synthetic success.
type DryRunClient struct {
	inner Client
	calls []string
}

// NewDryRunClient creates a dry-run wrapper around inner
func NewDryRunClient(inner Client) *DryRunClient {
	return &DryRunClient{inner: inner}
}

// RecordedCalls returns the write operations captured so far, in order
func (c *DryRunClient) RecordedCalls() []string {
	return append([]string(nil), c.calls...)
}

// OwnerRepo delegates to the wrapped implementation
func (c *DryRunClient) OwnerRepo() (string, string) {
	return c.inner.OwnerRepo()
}

// GetPullRequestForBranch delegates to the wrapped implementation
func (c *DryRunClient) GetPullRequestForBranch(ctx context.Context, branch string) (*PullRequest, error) {
	return c.inner.GetPullRequestForBranch(ctx, branch)
}

// ListPullRequests delegates to the wrapped implementation
func (c *DryRunClient) ListPullRequests(ctx context.Context) ([]*PullRequest, error) {
	return c.inner.ListPullRequests(ctx)
}

// UpdatePullRequestBase records the intended retarget
func (c *DryRunClient) UpdatePullRequestBase(_ context.Context, number int, base string) error {
	c.calls = append(c.calls, fmt.Sprintf("retarget pull request #%d at %s", number, base))
	return nil
}

// MergePullRequest records the intended merge
func (c *DryRunClient) MergePullRequest(_ context.Context, number int) error {
	c.calls = append(c.calls, fmt.Sprintf("squash-merge pull request #%d", number))
	return nil
}
