package land

import (
	"context"
	"errors"
	"fmt"

	wserrors "workstack.dev/workstack/internal/errors"
	"workstack.dev/workstack/internal/git"
	"workstack.dev/workstack/internal/hosting"
	"workstack.dev/workstack/internal/stack"
)

// ErrCancelled is returned when the user declines the confirmation prompt
var ErrCancelled = errors.New("landing cancelled")

// DefaultRemote is the remote branches are landed against
const DefaultRemote = "origin"

// Reporter receives progress during the landing sequence
type Reporter interface {
	Phase(name string)
	Step(message string)
}

// nopReporter is used when the caller does not care about progress
type nopReporter struct{}

func (nopReporter) Phase(string) {}
func (nopReporter) Step(string)  {}

// MergedPR identifies one pull request merged by a landing run
type MergedPR struct {
	Branch string
	Number int
}

// Report is the phase 5 summary. Restacking remaining branches and removing
// obsolete worktrees are deliberately left as named manual follow-ups so the
// user can inspect intermediate state first.
type Report struct {
	Merged      []MergedPR
	FinalBranch string
	FollowUps   []string
}

// Options configures a landing run
type Options struct {
	// Force skips the confirmation phase
	Force bool
	// Confirm presents the plan and returns whether to proceed. Required
	// unless Force is set.
	Confirm func(*Plan) (bool, error)
	// Reporter receives progress; nil means silent
	Reporter Reporter
	// Remote defaults to DefaultRemote
	Remote string
}

// Execute runs phases 2 through 5 against a validated plan. Branches merge
// strictly bottom to top; any failure stops the sequence immediately and
// already-merged branches stay merged. The returned Report covers whatever
// was merged, even on error.
func Execute(ctx context.Context, g git.Git, t stack.Tool, host hosting.Client, plan *Plan, opts Options) (*Report, error) {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = nopReporter{}
	}
	remote := opts.Remote
	if remote == "" {
		remote = DefaultRemote
	}

	// Phase 2: confirmation
	if !opts.Force {
		if opts.Confirm == nil {
			return nil, wserrors.NewPreconditionError(
				"confirmation is required but no prompt is available",
				"rerun with --force in non-interactive environments")
		}
		reporter.Phase("confirmation")
		ok, err := opts.Confirm(plan)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrCancelled
		}
	}

	report := &Report{
		FollowUps: []string{
			"restack any remaining stack branches with workstack sync --restack",
			"remove now-obsolete worktrees with forest merge",
		},
	}

	// Phase 3: landing sequence, bottom to top
	reporter.Phase("landing")
	for i, branch := range plan.Chain {
		merged, err := landBranch(ctx, g, t, host, plan, branch, remote, reporter)
		if merged {
			report.Merged = append(report.Merged, MergedPR{Branch: branch, Number: plan.PRs[branch].Number})
		}
		if err != nil {
			// Navigate to a safe reference: the next unmerged branch if
			// one remains, otherwise trunk.
			safe := plan.Trunk
			switch {
			case !merged:
				safe = plan.Chain[i]
			case i+1 < len(plan.Chain):
				safe = plan.Chain[i+1]
			}
			if cerr := g.CheckoutBranch(ctx, safe); cerr == nil {
				report.FinalBranch = safe
			}
			return report, err
		}
	}

	// Phase 4: cleanup
	reporter.Phase("cleanup")
	if err := g.CheckoutBranch(ctx, plan.Trunk); err != nil {
		return report, err
	}
	report.FinalBranch = plan.Trunk

	// Phase 5: reporting is the caller's rendering of the Report
	reporter.Phase("done")
	return report, nil
}

// landBranch performs the per-branch landing steps: checkout, stack
// integrity check, base verification, merge, trunk resync. The merged
// return reports whether the pull request was merged, even when a later
// step failed; merges are never rolled back.
func landBranch(ctx context.Context, g git.Git, t stack.Tool, host hosting.Client, plan *Plan, branch, remote string, reporter Reporter) (bool, error) {
	current, err := g.CurrentBranch(ctx)
	if err != nil {
		return false, err
	}
	if current != branch {
		// The merge itself happens host-side. A branch already checked out
		// in its own forest worktree stays where it is; git would refuse a
		// second checkout anyway.
		worktrees, err := g.ListWorktrees(ctx)
		if err != nil {
			return false, err
		}
		checkedOut := false
		for _, wt := range worktrees {
			if wt.Branch == branch {
				checkedOut = true
				break
			}
		}
		if !checkedOut {
			if err := g.CheckoutBranch(ctx, branch); err != nil {
				return false, err
			}
		}
	}

	// Once everything below this branch has merged and trunk has been
	// resynced, the stack tool must see trunk as the parent. Anything else
	// means an earlier phase did not do what it claimed.
	parent, err := t.Parent(ctx, branch)
	if err != nil {
		return false, err
	}
	if parent != plan.Trunk {
		return false, wserrors.NewInternalError(
			fmt.Sprintf("parent of %s is %s, expected trunk (%s)", branch, parent, plan.Trunk), nil)
	}

	// Base verification must happen before the merge. Correcting a stale
	// base after merging leaves a window where the pull request still
	// targets a just-deleted branch; a merge inside that window produces a
	// commit unreachable from trunk.
	reporter.Step(fmt.Sprintf("verifying base of %s", branch))
	fresh, err := host.GetPullRequestForBranch(ctx, branch)
	if err != nil {
		return false, err
	}
	if fresh == nil {
		return false, wserrors.NewInternalError(
			fmt.Sprintf("pull request for %s disappeared between validation and landing", branch), nil)
	}
	if fresh.State != "open" {
		return false, wserrors.NewInternalError(
			fmt.Sprintf("pull request #%d for %s is %s, expected open", fresh.Number, branch, fresh.State), nil)
	}
	if fresh.Base != plan.Trunk {
		reporter.Step(fmt.Sprintf("retargeting #%d from stale base %s to %s", fresh.Number, fresh.Base, plan.Trunk))
		if err := host.UpdatePullRequestBase(ctx, fresh.Number, plan.Trunk); err != nil {
			return false, err
		}
	}

	reporter.Step(fmt.Sprintf("merging #%d (%s)", fresh.Number, branch))
	if err := host.MergePullRequest(ctx, fresh.Number); err != nil {
		return false, err
	}

	// Resync local trunk so the next branch lands on what just merged
	reporter.Step(fmt.Sprintf("resyncing %s", plan.Trunk))
	if err := g.Fetch(ctx, remote); err != nil {
		return true, err
	}
	if err := g.CheckoutBranch(ctx, plan.Trunk); err != nil {
		return true, err
	}
	result, err := g.PullFFOnly(ctx, remote, plan.Trunk)
	if err != nil {
		return true, err
	}
	if result == git.PullDiverged {
		return true, wserrors.NewPreconditionError(
			fmt.Sprintf("local %s has commits that are not on %s/%s and cannot be fast-forwarded", plan.Trunk, remote, plan.Trunk),
			fmt.Sprintf("inspect the divergence with git log %s/%s..%s, reconcile it, then rerun", remote, plan.Trunk, plan.Trunk))
	}

	return true, nil
}
