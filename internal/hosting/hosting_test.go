package hosting_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"workstack.dev/workstack/internal/hosting"
)

func TestParseOwnerRepo(t *testing.T) {
	cases := []struct {
		url   string
		owner string
		repo  string
	}{
		{"https://github.com/acme/widgets.git", "acme", "widgets"},
		{"https://github.com/acme/widgets", "acme", "widgets"},
		{"git@github.com:acme/widgets.git", "acme", "widgets"},
		{"ssh://git@github.com/acme/widgets.git", "acme", "widgets"},
	}
	for _, tc := range cases {
		owner, repo, err := hosting.ParseOwnerRepo(tc.url)
		require.NoError(t, err, tc.url)
		require.Equal(t, tc.owner, owner, tc.url)
		require.Equal(t, tc.repo, repo, tc.url)
	}

	_, _, err := hosting.ParseOwnerRepo("nonsense")
	require.Error(t, err)
}

func TestFakeClientRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("transient failures are retried until success", func(t *testing.T) {
		client := hosting.NewFakeClient("acme", "widgets")
		client.AddPullRequest(&hosting.PullRequest{Number: 7, Branch: "feat-1", Base: "main", State: "open"})
		client.FailTransiently("merge", 2)

		require.NoError(t, client.MergePullRequest(ctx, 7))
		require.Equal(t, map[int]string{7: "main"}, client.MergedBases())
	})

	t.Run("exhausted retries fail", func(t *testing.T) {
		client := hosting.NewFakeClient("acme", "widgets")
		client.AddPullRequest(&hosting.PullRequest{Number: 7, Branch: "feat-1", Base: "main", State: "open"})
		client.FailTransiently("merge", 3)

		require.Error(t, client.MergePullRequest(ctx, 7))
		require.Empty(t, client.MergedBases())
	})

	t.Run("permanent failures are not retried", func(t *testing.T) {
		client := hosting.NewFakeClient("acme", "widgets")
		client.AddPullRequest(&hosting.PullRequest{Number: 7, Branch: "feat-1", Base: "main", State: "open"})
		permanent := errors.New("401 bad credentials")
		client.FailPermanently("update-base", permanent)

		err := client.UpdatePullRequestBase(ctx, 7, "main")
		require.ErrorIs(t, err, permanent)
	})
}

func TestFakeClientMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("records the base in effect at merge time", func(t *testing.T) {
		client := hosting.NewFakeClient("acme", "widgets")
		client.AddPullRequest(&hosting.PullRequest{Number: 8, Branch: "feat-2", Base: "feat-1", State: "open"})

		require.NoError(t, client.UpdatePullRequestBase(ctx, 8, "main"))
		require.NoError(t, client.MergePullRequest(ctx, 8))
		require.Equal(t, "main", client.MergedBases()[8])
	})

	t.Run("refuses to merge a non-open pull request", func(t *testing.T) {
		client := hosting.NewFakeClient("acme", "widgets")
		client.AddPullRequest(&hosting.PullRequest{Number: 9, Branch: "feat-3", Base: "main", State: "merged"})

		require.Error(t, client.MergePullRequest(ctx, 9))
	})
}

func TestFakeClientList(t *testing.T) {
	ctx := context.Background()

	client := hosting.NewFakeClient("acme", "widgets")
	client.AddPullRequest(&hosting.PullRequest{Number: 12, Branch: "feat-2", Base: "feat-1", State: "open", MergeConflict: true})
	client.AddPullRequest(&hosting.PullRequest{Number: 11, Branch: "feat-1", Base: "main", State: "open"})
	client.AddPullRequest(&hosting.PullRequest{Number: 3, Branch: "old", Base: "main", State: "merged"})

	prs, err := client.ListPullRequests(ctx)
	require.NoError(t, err)
	require.Len(t, prs, 2)
	require.Equal(t, 11, prs[0].Number)
	require.Equal(t, 12, prs[1].Number)
	require.True(t, prs[1].MergeConflict)
}

func TestDryRunClient(t *testing.T) {
	ctx := context.Background()

	inner := hosting.NewFakeClient("acme", "widgets")
	inner.AddPullRequest(&hosting.PullRequest{Number: 5, Branch: "feat-1", Base: "main", State: "open"})
	dry := hosting.NewDryRunClient(inner)

	pr, err := dry.GetPullRequestForBranch(ctx, "feat-1")
	require.NoError(t, err)
	require.Equal(t, 5, pr.Number)

	require.NoError(t, dry.MergePullRequest(ctx, 5))
	require.Empty(t, inner.MergedBases())
	require.Equal(t, []string{"squash-merge pull request #5"}, dry.RecordedCalls())
}
