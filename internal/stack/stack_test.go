package stack_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"workstack.dev/workstack/internal/stack"
)

func TestChain(t *testing.T) {
	ctx := context.Background()

	t.Run("builds the full chain from any member", func(t *testing.T) {
		tool := stack.NewFakeTool()
		tool.SetParent("feat-1", "main")
		tool.SetParent("feat-2", "feat-1")
		tool.SetParent("feat-3", "feat-2")

		for _, branch := range []string{"feat-1", "feat-2", "feat-3"} {
			chain, err := stack.Chain(ctx, tool, "main", branch)
			require.NoError(t, err)
			require.Equal(t, []string{"feat-1", "feat-2", "feat-3"}, chain)
		}
	})

	t.Run("fails on trunk", func(t *testing.T) {
		tool := stack.NewFakeTool()
		_, err := stack.Chain(ctx, tool, "main", "main")
		require.Error(t, err)
	})

	t.Run("fails when the branch is not stacked on trunk", func(t *testing.T) {
		tool := stack.NewFakeTool()
		_, err := stack.Chain(ctx, tool, "main", "orphan")
		require.Error(t, err)
		require.Contains(t, err.Error(), "not stacked on main")
	})

	t.Run("fails on a non-linear stack", func(t *testing.T) {
		tool := stack.NewFakeTool()
		tool.SetParent("feat-1", "main")
		tool.SetParent("feat-2a", "feat-1")
		tool.SetParent("feat-2b", "feat-1")

		_, err := stack.Chain(ctx, tool, "main", "feat-1")
		require.Error(t, err)
		require.Contains(t, err.Error(), "not linear")
	})
}

func TestFakeToolScriptedFailures(t *testing.T) {
	ctx := context.Background()
	tool := stack.NewFakeTool()
	tool.SetParent("feat-1", "main")

	boom := errors.New("remote rejected the push")
	tool.FailOn("submit", boom)

	require.ErrorIs(t, tool.Submit(ctx, "feat-1"), boom)
	require.Empty(t, tool.Submits())

	// Other operations are unaffected
	require.NoError(t, tool.Restack(ctx, []string{"feat-1"}))
	require.NoError(t, tool.SyncTrunk(ctx))
}

func TestInfo(t *testing.T) {
	ctx := context.Background()

	tool := stack.NewFakeTool()
	tool.SetParent("feat-1", "main")
	tool.SetParent("feat-2", "feat-1")

	info, err := stack.Info(ctx, tool, "feat-1")
	require.NoError(t, err)
	require.Equal(t, "main", info.Parent)
	require.Equal(t, []string{"feat-2"}, info.Children)
}
