package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	wserrors "workstack.dev/workstack/internal/errors"
)

func TestOpError(t *testing.T) {
	t.Run("carries kind, remediation and cause", func(t *testing.T) {
		cause := stderrors.New("boom")
		err := wserrors.NewAPIError("merge failed", "check the token", cause)

		require.Equal(t, wserrors.KindAPI, wserrors.KindOf(err))
		require.Contains(t, err.Error(), "merge failed")
		require.Contains(t, err.Error(), "remediation: check the token")
		require.ErrorIs(t, err, cause)
	})

	t.Run("conflict errors unwrap to the sentinel", func(t *testing.T) {
		err := wserrors.NewConflictError("paused on feat-1", "resolve and continue")
		require.ErrorIs(t, err, wserrors.ErrRebaseConflict)
		require.Equal(t, wserrors.KindConflict, wserrors.KindOf(err))
	})

	t.Run("KindOf on a plain error is empty", func(t *testing.T) {
		require.Empty(t, wserrors.KindOf(stderrors.New("plain")))
	})
}

func TestBranchNotFoundError(t *testing.T) {
	err := wserrors.NewBranchNotFoundError("feat-1")
	require.ErrorIs(t, err, wserrors.ErrBranchNotFound)
	require.Contains(t, err.Error(), "feat-1")
}

func TestValidationError(t *testing.T) {
	err := &wserrors.ValidationError{Failures: []string{"dirty tree", "no pull request"}}
	require.Contains(t, err.Error(), "2 validation failure(s)")
	require.Contains(t, err.Error(), "dirty tree")
	require.Contains(t, err.Error(), "no pull request")
}

func TestCommandError(t *testing.T) {
	cause := stderrors.New("exit status 1")
	err := wserrors.NewCommandError("gt", []string{"restack"}, "", "cannot restack", cause)
	require.Contains(t, err.Error(), "gt command failed")
	require.Contains(t, err.Error(), "cannot restack")
	require.ErrorIs(t, err, cause)
}
