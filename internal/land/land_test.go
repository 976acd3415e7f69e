package land_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	wserrors "workstack.dev/workstack/internal/errors"
	"workstack.dev/workstack/internal/git"
	"workstack.dev/workstack/internal/hosting"
	"workstack.dev/workstack/internal/land"
	"workstack.dev/workstack/internal/stack"
)

// landScenario wires the three fakes for a stack main <- feat-1 <- feat-2
// with open pull requests for both branches. feat-2's PR base points at
// feat-1, which becomes stale the moment feat-1 merges.
type landScenario struct {
	g    *git.FakeGit
	tool *stack.FakeTool
	host *hosting.FakeClient
	log  []string
}

func newLandScenario(t *testing.T) *landScenario {
	t.Helper()
	s := &landScenario{
		g:    git.NewFakeGit("/repo", "main"),
		tool: stack.NewFakeTool(),
		host: hosting.NewFakeClient("acme", "widgets"),
	}

	s.g.SetBranch("feat-1", "sha-feat-1")
	s.g.SetBranch("feat-2", "sha-feat-2")
	require.NoError(t, s.g.CheckoutBranch(context.Background(), "feat-2"))

	s.tool.SetParent("feat-1", "main")
	s.tool.SetParent("feat-2", "feat-1")

	s.host.AddPullRequest(&hosting.PullRequest{Number: 101, Branch: "feat-1", Base: "main", State: "open", URL: "https://example.com/101"})
	s.host.AddPullRequest(&hosting.PullRequest{Number: 102, Branch: "feat-2", Base: "feat-1", State: "open", URL: "https://example.com/102"})

	// Merge into one shared log so ordering across capabilities is visible,
	// and simulate the collaborators: after a merge, the remote trunk moves,
	// the stack tool reparents the branch above onto trunk and untracks the
	// merged branch.
	s.g.SetOnCall(func(op string) { s.log = append(s.log, "git: "+op) })
	s.tool.SetOnCall(func(op string) { s.log = append(s.log, "tool: "+op) })
	s.host.SetOnCall(func(op string) {
		s.log = append(s.log, "host: "+op)
		switch op {
		case "merge #101":
			s.g.SetRemoteHead("main", "sha-main-after-101")
			s.tool.SetParent("feat-2", "main")
			s.tool.RemoveBranch("feat-1")
		case "merge #102":
			s.g.SetRemoteHead("main", "sha-main-after-102")
			s.tool.RemoveBranch("feat-2")
		}
	})

	return s
}

func (s *landScenario) discover(t *testing.T) *land.Plan {
	t.Helper()
	plan, err := land.Discover(context.Background(), s.g, s.tool, s.host, "main", true)
	require.NoError(t, err)
	return plan
}

func (s *landScenario) indexOf(t *testing.T, op string) int {
	t.Helper()
	for i, entry := range s.log {
		if entry == op {
			return i
		}
	}
	t.Fatalf("operation %q not found in log:\n%v", op, s.log)
	return -1
}

func TestLandStackConcreteScenario(t *testing.T) {
	ctx := context.Background()
	s := newLandScenario(t)
	plan := s.discover(t)
	require.Equal(t, []string{"feat-1", "feat-2"}, plan.Chain)

	report, err := land.Execute(ctx, s.g, s.tool, s.host, plan, land.Options{Force: true})
	require.NoError(t, err)

	require.Equal(t, []land.MergedPR{
		{Branch: "feat-1", Number: 101},
		{Branch: "feat-2", Number: 102},
	}, report.Merged)
	require.Equal(t, "main", report.FinalBranch)
	require.NotEmpty(t, report.FollowUps)

	// feat-2's stale base was corrected to trunk before its merge
	require.Equal(t, []string{"#102 -> main"}, s.host.BaseUpdates())

	// After landing, local trunk carries the squashed result
	head, err := s.g.BranchHead(ctx, "main")
	require.NoError(t, err)
	require.Equal(t, "sha-main-after-102", head)
}

func TestLandStackFromMidStack(t *testing.T) {
	ctx := context.Background()
	s := newLandScenario(t)

	// Invoked from feat-1: only feat-1 lands, feat-2 and its pull request
	// stay untouched above it.
	require.NoError(t, s.g.CheckoutBranch(ctx, "feat-1"))
	plan := s.discover(t)
	require.Equal(t, []string{"feat-1"}, plan.Chain)

	report, err := land.Execute(ctx, s.g, s.tool, s.host, plan, land.Options{Force: true})
	require.NoError(t, err)

	require.Equal(t, []land.MergedPR{{Branch: "feat-1", Number: 101}}, report.Merged)
	require.NotContains(t, s.log, "host: merge #102")
	require.Empty(t, s.host.BaseUpdates())

	pr, err := s.host.GetPullRequestForBranch(ctx, "feat-2")
	require.NoError(t, err)
	require.Equal(t, "open", pr.State)
}

func TestLandStackBranchInForestWorktree(t *testing.T) {
	ctx := context.Background()
	s := newLandScenario(t)

	// feat-1 lives in its own worktree, as after a forest split. Checking it
	// out in the primary worktree would fail, so landing must leave it where
	// it is.
	s.g.AddExistingWorktree("/repo-feat-1", "feat-1")

	plan := s.discover(t)
	report, err := land.Execute(ctx, s.g, s.tool, s.host, plan, land.Options{Force: true})
	require.NoError(t, err)

	require.Equal(t, []land.MergedPR{
		{Branch: "feat-1", Number: 101},
		{Branch: "feat-2", Number: 102},
	}, report.Merged)
	require.NotContains(t, s.log, "git: checkout feat-1")
}

func TestLandStackRaceClosure(t *testing.T) {
	ctx := context.Background()
	s := newLandScenario(t)
	plan := s.discover(t)

	_, err := land.Execute(ctx, s.g, s.tool, s.host, plan, land.Options{Force: true})
	require.NoError(t, err)

	// Every merge was issued with trunk as the recorded base, never the
	// stale just-deleted branch.
	for number, base := range s.host.MergedBases() {
		require.Equalf(t, "main", base, "pull request #%d merged with base %s", number, base)
	}

	// The correction happened strictly before the merge call
	require.Less(t, s.indexOf(t, "host: update-base #102 main"), s.indexOf(t, "host: merge #102"))
}

func TestLandStackOrdering(t *testing.T) {
	ctx := context.Background()
	s := newLandScenario(t)
	plan := s.discover(t)

	_, err := land.Execute(ctx, s.g, s.tool, s.host, plan, land.Options{Force: true})
	require.NoError(t, err)

	mergeA := s.indexOf(t, "host: merge #101")
	resyncA := s.indexOf(t, "git: pull --ff-only origin main")
	retargetB := s.indexOf(t, "host: update-base #102 main")
	mergeB := s.indexOf(t, "host: merge #102")

	// feat-2's operations never begin before feat-1's merge and trunk
	// resync fully complete.
	require.Less(t, mergeA, resyncA)
	require.Less(t, resyncA, retargetB)
	require.Less(t, retargetB, mergeB)
}

func TestLandStackValidationCollectsEverything(t *testing.T) {
	ctx := context.Background()
	s := newLandScenario(t)

	// Four independent problems at once
	s.g.SetDirty("/repo", true)
	s.host.AddPullRequest(&hosting.PullRequest{Number: 102, Branch: "feat-2", Base: "feat-1", State: "closed"})
	s.host.AddPullRequest(&hosting.PullRequest{Number: 101, Branch: "feat-1", Base: "main", State: "open", MergeConflict: true})

	_, err := land.Discover(ctx, s.g, s.tool, s.host, "main", false)
	require.Error(t, err)

	var validationErr *wserrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Len(t, validationErr.Failures, 4)
	require.Contains(t, err.Error(), "uncommitted changes")
	require.Contains(t, err.Error(), "not enabled")
	require.Contains(t, err.Error(), "merge conflicts")
	require.Contains(t, err.Error(), "closed, not open")
}

func TestLandStackValidationMultipleCheckouts(t *testing.T) {
	ctx := context.Background()
	s := newLandScenario(t)

	// feat-1 checked out in two worktrees anywhere in the repository
	s.g.AddExistingWorktree("/repo-a", "feat-1")
	s.g.AddExistingWorktree("/repo-b", "feat-1")

	_, err := land.Discover(ctx, s.g, s.tool, s.host, "main", true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "feat-1 is checked out in 2 worktrees")
}

func TestLandStackStopsOnInternalInconsistency(t *testing.T) {
	ctx := context.Background()
	s := newLandScenario(t)
	plan := s.discover(t)

	// Break the collaborator simulation: the stack tool never reparents
	// feat-2 after feat-1 merges.
	s.host.SetOnCall(func(op string) {
		s.log = append(s.log, "host: "+op)
		if op == "merge #101" {
			s.g.SetRemoteHead("main", "sha-main-after-101")
		}
	})

	report, err := land.Execute(ctx, s.g, s.tool, s.host, plan, land.Options{Force: true})
	require.Error(t, err)
	require.Equal(t, wserrors.KindInternal, wserrors.KindOf(err))

	// feat-1 stays merged; feat-2 was never merged
	require.Equal(t, []land.MergedPR{{Branch: "feat-1", Number: 101}}, report.Merged)
	require.NotContains(t, s.log, "host: merge #102")
}

func TestLandStackDivergedTrunkIsFatal(t *testing.T) {
	ctx := context.Background()
	s := newLandScenario(t)
	plan := s.discover(t)

	s.g.SetDiverged("main")

	report, err := land.Execute(ctx, s.g, s.tool, s.host, plan, land.Options{Force: true})
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot be fast-forwarded")

	// feat-1's merge happened before the divergence was discovered and is
	// reported; the sequence stopped before feat-2.
	require.Equal(t, []land.MergedPR{{Branch: "feat-1", Number: 101}}, report.Merged)
	require.NotContains(t, s.log, "host: merge #102")
}

func TestLandStackConfirmation(t *testing.T) {
	ctx := context.Background()

	t.Run("declining cancels with no mutation", func(t *testing.T) {
		s := newLandScenario(t)
		plan := s.discover(t)

		_, err := land.Execute(ctx, s.g, s.tool, s.host, plan, land.Options{
			Confirm: func(p *land.Plan) (bool, error) { return false, nil },
		})
		require.ErrorIs(t, err, land.ErrCancelled)
		require.Empty(t, s.host.MergedBases())
	})

	t.Run("confirmation sees the ordered plan", func(t *testing.T) {
		s := newLandScenario(t)
		plan := s.discover(t)

		var described string
		_, err := land.Execute(ctx, s.g, s.tool, s.host, plan, land.Options{
			Confirm: func(p *land.Plan) (bool, error) {
				described = p.Describe()
				return true, nil
			},
		})
		require.NoError(t, err)
		require.Contains(t, described, "#101 feat-1")
		require.Contains(t, described, "#102 feat-2")
	})
}
