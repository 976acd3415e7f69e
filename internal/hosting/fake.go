package hosting

import (
	"context"
	"fmt"
	"sort"
)

// FakeClient is the in-memory Client implementation used in tests. Pull
// requests are declared up front; transient failures can be scripted per
// operation to exercise retry behavior.
type FakeClient struct {
	owner string
	repo  string
	prs   map[string]*PullRequest

	// mergedBases records, per PR number, the base the PR had at the moment
	// it was merged. Tests use it to assert merges only ever land into trunk.
	mergedBases map[int]string
	baseUpdates []string
	failures    map[string]int
	permanent   map[string]error
	mutations   []string
	onCall      func(op string)
}

// NewFakeClient creates an empty fake code-host client
func NewFakeClient(owner, repo string) *FakeClient {
	return &FakeClient{
		owner:       owner,
		repo:        repo,
		prs:         map[string]*PullRequest{},
		mergedBases: map[int]string{},
		failures:    map[string]int{},
		permanent:   map[string]error{},
	}
}

// AddPullRequest declares an existing pull request
func (c *FakeClient) AddPullRequest(pr *PullRequest) {
	c.prs[pr.Branch] = pr
}

// FailTransiently makes the next n calls of op ("get", "list",
// "update-base", "merge") fail with a retryable error.
func (c *FakeClient) FailTransiently(op string, n int) {
	c.failures[op] = n
}

// FailPermanently makes every call of op fail with err
func (c *FakeClient) FailPermanently(op string, err error) {
	c.permanent[op] = err
}

// SetOnCall installs a hook invoked with a description of every mutation
func (c *FakeClient) SetOnCall(fn func(op string)) {
	c.onCall = fn
}

// MergedBases returns, per merged PR number, the base recorded at merge time
func (c *FakeClient) MergedBases() map[int]string {
	out := make(map[int]string, len(c.mergedBases))
	for k, v := range c.mergedBases {
		out[k] = v
	}
	return out
}

// BaseUpdates returns every base retarget performed, in order
func (c *FakeClient) BaseUpdates() []string {
	return append([]string(nil), c.baseUpdates...)
}

// Mutations returns every mutation performed, in order
func (c *FakeClient) Mutations() []string {
	return append([]string(nil), c.mutations...)
}

func (c *FakeClient) record(op string) {
	c.mutations = append(c.mutations, op)
	if c.onCall != nil {
		c.onCall(op)
	}
}

// fail consumes one scripted failure of op, if any remain
func (c *FakeClient) fail(op string) error {
	if err := c.permanent[op]; err != nil {
		return err
	}
	if c.failures[op] > 0 {
		c.failures[op]--
		return &transientError{op: op}
	}
	return nil
}

// transientError is a scripted retryable failure. It satisfies net.Error
// so the retry classifier treats it as transient.
type transientError struct{ op string }

func (e *transientError) Error() string   { return "transient failure of " + e.op }
func (e *transientError) Timeout() bool   { return true }
func (e *transientError) Temporary() bool { return true }

// OwnerRepo returns the repository owner and name
func (c *FakeClient) OwnerRepo() (string, string) {
	return c.owner, c.repo
}

// GetPullRequestForBranch returns the declared pull request for branch, if any
func (c *FakeClient) GetPullRequestForBranch(ctx context.Context, branch string) (*PullRequest, error) {
	err := withRetry(ctx, func() error { return c.fail("get") })
	if err != nil {
		return nil, err
	}
	pr, ok := c.prs[branch]
	if !ok {
		return nil, nil
	}
	copied := *pr
	return &copied, nil
}

// ListPullRequests returns every declared open pull request, ordered by number
func (c *FakeClient) ListPullRequests(ctx context.Context) ([]*PullRequest, error) {
	err := withRetry(ctx, func() error { return c.fail("list") })
	if err != nil {
		return nil, err
	}
	var out []*PullRequest
	for _, pr := range c.prs {
		if pr.State != "open" {
			continue
		}
		copied := *pr
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// UpdatePullRequestBase retargets the pull request at a new base
func (c *FakeClient) UpdatePullRequestBase(ctx context.Context, number int, base string) error {
	err := withRetry(ctx, func() error { return c.fail("update-base") })
	if err != nil {
		return err
	}
	pr := c.byNumber(number)
	if pr == nil {
		return fmt.Errorf("no pull request #%d", number)
	}
	pr.Base = base
	c.baseUpdates = append(c.baseUpdates, fmt.Sprintf("#%d -> %s", number, base))
	c.record(fmt.Sprintf("update-base #%d %s", number, base))
	return nil
}

// MergePullRequest squash-merges the pull request, recording its base at
// the moment of the merge.
func (c *FakeClient) MergePullRequest(ctx context.Context, number int) error {
	err := withRetry(ctx, func() error { return c.fail("merge") })
	if err != nil {
		return err
	}
	pr := c.byNumber(number)
	if pr == nil {
		return fmt.Errorf("no pull request #%d", number)
	}
	if pr.State != "open" {
		return fmt.Errorf("pull request #%d is %s, not open", number, pr.State)
	}
	pr.State = "merged"
	c.mergedBases[number] = pr.Base
	c.record(fmt.Sprintf("merge #%d", number))
	return nil
}

func (c *FakeClient) byNumber(number int) *PullRequest {
	for _, pr := range c.prs {
		if pr.Number == number {
			return pr
		}
	}
	return nil
}
