// Package land implements the five-phase protocol that merges a whole
// stack of pull requests onto trunk in dependency order, including the
// pre-merge base verification that closes the orphaned-commit race.
package land

import (
	"context"
	"fmt"
	"strings"

	wserrors "workstack.dev/workstack/internal/errors"
	"workstack.dev/workstack/internal/git"
	"workstack.dev/workstack/internal/hosting"
	"workstack.dev/workstack/internal/stack"
)

// Plan is the validated outcome of phase 1: the ordered chain to merge,
// bottom to top, and the open pull request for every branch in it.
type Plan struct {
	Trunk   string
	Current string
	// Chain is ordered from the branch closest to trunk upward
	Chain []string
	// PRs maps each chain branch to its open pull request as seen during
	// validation. Phase 3 re-fetches before trusting any of it.
	PRs map[string]*hosting.PullRequest
}

// Discover runs phase 1: build the chain from the current branch and
// validate every precondition, read-only. Every blocking issue is collected
// into one ValidationError so the user sees all of them at once.
func Discover(ctx context.Context, g git.Git, t stack.Tool, host hosting.Client, trunk string, stackToolEnabled bool) (*Plan, error) {
	var failures []string

	if !stackToolEnabled {
		failures = append(failures, "the stack tool integration is not enabled for this repository")
	}

	dirty, err := g.HasUncommittedChanges(ctx)
	if err != nil {
		return nil, err
	}
	if dirty {
		failures = append(failures, "the working directory has uncommitted changes")
	}

	current, err := g.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	if current == trunk {
		failures = append(failures, fmt.Sprintf("current branch is the trunk (%s); check out the stack branch to land", trunk))
		return nil, &wserrors.ValidationError{Failures: failures}
	}

	chain, err := stack.Chain(ctx, t, trunk, current)
	if err != nil {
		failures = append(failures, err.Error())
		return nil, &wserrors.ValidationError{Failures: failures}
	}

	// Land only up to the branch the command was invoked from. Branches
	// stacked above it keep their pull requests untouched.
	for i, branch := range chain {
		if branch == current {
			chain = chain[:i+1]
			break
		}
	}

	// A branch checked out in more than one worktree anywhere in the
	// repository would let the landing sequence mutate the wrong tree.
	worktrees, err := g.ListWorktrees(ctx)
	if err != nil {
		return nil, err
	}
	checkoutCount := map[string]int{}
	for _, wt := range worktrees {
		checkoutCount[wt.Branch]++
	}
	for _, branch := range chain {
		if checkoutCount[branch] > 1 {
			failures = append(failures, fmt.Sprintf("branch %s is checked out in %d worktrees", branch, checkoutCount[branch]))
		}
	}

	prs := make(map[string]*hosting.PullRequest, len(chain))
	for _, branch := range chain {
		pr, err := host.GetPullRequestForBranch(ctx, branch)
		if err != nil {
			return nil, err
		}
		switch {
		case pr == nil:
			failures = append(failures, fmt.Sprintf("branch %s has no pull request", branch))
		case pr.State != "open":
			failures = append(failures, fmt.Sprintf("pull request #%d for %s is %s, not open", pr.Number, branch, pr.State))
		case pr.MergeConflict:
			failures = append(failures, fmt.Sprintf("pull request #%d for %s has merge conflicts against %s", pr.Number, branch, pr.Base))
		default:
			prs[branch] = pr
		}
	}

	if len(failures) > 0 {
		return nil, &wserrors.ValidationError{Failures: failures}
	}

	return &Plan{Trunk: trunk, Current: current, Chain: chain, PRs: prs}, nil
}

// Describe renders the ordered merge list shown at confirmation time
func (p *Plan) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "about to merge %d pull request(s) into %s, bottom to top:\n", len(p.Chain), p.Trunk)
	for _, branch := range p.Chain {
		pr := p.PRs[branch]
		fmt.Fprintf(&b, "  #%d %s (%s)\n", pr.Number, branch, pr.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}
