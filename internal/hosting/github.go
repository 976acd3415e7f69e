package hosting

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	wserrors "workstack.dev/workstack/internal/errors"
)

// GitHubClient implements Client against the GitHub API
type GitHubClient struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHubClient creates a GitHubClient for the repository the remote URL
// points at. The token comes from GITHUB_TOKEN or, failing that, the gh CLI.
func NewGitHubClient(ctx context.Context, remoteURL string) (*GitHubClient, error) {
	owner, repo, err := ParseOwnerRepo(remoteURL)
	if err != nil {
		return nil, err
	}

	token, err := getToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GitHub token: %w", err)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)

	return &GitHubClient{
		client: github.NewClient(tc),
		owner:  owner,
		repo:   repo,
	}, nil
}

// getToken gets a GitHub token from the environment or the gh CLI
func getToken(ctx context.Context) (string, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token, nil
	}

	out, err := exec.CommandContext(ctx, "gh", "auth", "token").Output()
	if err != nil {
		return "", fmt.Errorf("GITHUB_TOKEN is not set and gh auth token failed: %w", err)
	}
	token := strings.TrimSpace(string(out))
	if token == "" {
		return "", fmt.Errorf("empty GitHub token")
	}
	return token, nil
}

// ParseOwnerRepo extracts owner and repository name from a git remote URL.
// Both https://github.com/owner/repo.git and git@github.com:owner/repo.git
// forms are accepted.
func ParseOwnerRepo(remoteURL string) (string, string, error) {
	s := strings.TrimSuffix(strings.TrimSpace(remoteURL), ".git")

	if strings.HasPrefix(s, "git@") {
		// git@host:owner/repo
		_, after, found := strings.Cut(s, ":")
		if !found {
			return "", "", fmt.Errorf("invalid remote URL %q", remoteURL)
		}
		s = after
	} else if u, err := url.Parse(s); err == nil && u.Path != "" {
		s = strings.TrimPrefix(u.Path, "/")
	}

	parts := strings.Split(s, "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return "", "", fmt.Errorf("invalid remote URL %q", remoteURL)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}

// OwnerRepo returns the repository owner and name
func (c *GitHubClient) OwnerRepo() (string, string) {
	return c.owner, c.repo
}

// GetPullRequestForBranch returns the pull request whose head is branch
func (c *GitHubClient) GetPullRequestForBranch(ctx context.Context, branch string) (*PullRequest, error) {
	var prs []*github.PullRequest
	err := withRetry(ctx, func() error {
		var apiErr error
		prs, _, apiErr = c.client.PullRequests.List(ctx, c.owner, c.repo, &github.PullRequestListOptions{
			Head:        fmt.Sprintf("%s:%s", c.owner, branch),
			State:       "all",
			ListOptions: github.ListOptions{PerPage: 1},
		})
		return apiErr
	})
	if err != nil {
		return nil, wserrors.NewAPIError(
			fmt.Sprintf("failed to look up pull request for %s", branch),
			"check network connectivity and GitHub token scopes", err)
	}
	if len(prs) == 0 {
		return nil, nil
	}

	// The list endpoint omits mergeability, so fetch the full PR
	var full *github.PullRequest
	err = withRetry(ctx, func() error {
		var apiErr error
		full, _, apiErr = c.client.PullRequests.Get(ctx, c.owner, c.repo, prs[0].GetNumber())
		return apiErr
	})
	if err != nil {
		return nil, wserrors.NewAPIError(
			fmt.Sprintf("failed to fetch pull request #%d", prs[0].GetNumber()),
			"check network connectivity and GitHub token scopes", err)
	}

	return toPullRequest(full), nil
}

// ListPullRequests returns the repository's open pull requests. The list
// endpoint omits mergeability, so each pull request is fetched individually.
func (c *GitHubClient) ListPullRequests(ctx context.Context) ([]*PullRequest, error) {
	var listed []*github.PullRequest
	err := withRetry(ctx, func() error {
		var apiErr error
		listed, _, apiErr = c.client.PullRequests.List(ctx, c.owner, c.repo, &github.PullRequestListOptions{
			State:       "open",
			Sort:        "created",
			ListOptions: github.ListOptions{PerPage: 100},
		})
		return apiErr
	})
	if err != nil {
		return nil, wserrors.NewAPIError(
			"failed to list pull requests",
			"check network connectivity and GitHub token scopes", err)
	}

	out := make([]*PullRequest, 0, len(listed))
	for _, pr := range listed {
		var full *github.PullRequest
		err = withRetry(ctx, func() error {
			var apiErr error
			full, _, apiErr = c.client.PullRequests.Get(ctx, c.owner, c.repo, pr.GetNumber())
			return apiErr
		})
		if err != nil {
			return nil, wserrors.NewAPIError(
				fmt.Sprintf("failed to fetch pull request #%d", pr.GetNumber()),
				"check network connectivity and GitHub token scopes", err)
		}
		out = append(out, toPullRequest(full))
	}
	return out, nil
}

// toPullRequest maps the API representation to the orchestrator's view
func toPullRequest(pr *github.PullRequest) *PullRequest {
	state := pr.GetState()
	if pr.GetMerged() {
		state = "merged"
	}
	return &PullRequest{
		Number:        pr.GetNumber(),
		Branch:        pr.GetHead().GetRef(),
		Base:          pr.GetBase().GetRef(),
		State:         state,
		URL:           pr.GetHTMLURL(),
		MergeConflict: pr.Mergeable != nil && !pr.GetMergeable(),
	}
}

// UpdatePullRequestBase retargets a pull request at a new base branch
func (c *GitHubClient) UpdatePullRequestBase(ctx context.Context, number int, base string) error {
	err := withRetry(ctx, func() error {
		_, _, apiErr := c.client.PullRequests.Edit(ctx, c.owner, c.repo, number, &github.PullRequest{
			Base: &github.PullRequestBranch{Ref: github.String(base)},
		})
		return apiErr
	})
	if err != nil {
		return wserrors.NewAPIError(
			fmt.Sprintf("failed to retarget pull request #%d at %s", number, base),
			"retarget the pull request manually, then rerun", err)
	}
	return nil
}

// MergePullRequest squash-merges a pull request
func (c *GitHubClient) MergePullRequest(ctx context.Context, number int) error {
	err := withRetry(ctx, func() error {
		result, _, apiErr := c.client.PullRequests.Merge(ctx, c.owner, c.repo, number, "", &github.PullRequestOptions{
			MergeMethod: "squash",
		})
		if apiErr != nil {
			return apiErr
		}
		if !result.GetMerged() {
			return fmt.Errorf("merge of #%d was not performed: %s", number, result.GetMessage())
		}
		return nil
	})
	if err != nil {
		return wserrors.NewAPIError(
			fmt.Sprintf("failed to merge pull request #%d", number),
			"resolve the reported merge blocker on the host, then rerun", err)
	}
	return nil
}
