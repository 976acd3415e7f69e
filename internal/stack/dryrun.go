package stack

import (
	"context"
	"strings"
)

// DryRunTool wraps another Tool: reads delegate, writes are recorded and
// report synthetic success.
type DryRunTool struct {
	inner Tool
	calls []string
}

// NewDryRunTool creates a dry-run wrapper around inner
func NewDryRunTool(inner Tool) *DryRunTool {
	return &DryRunTool{inner: inner}
}

// RecordedCalls returns the write operations captured so far, in order
func (t *DryRunTool) RecordedCalls() []string {
	return append([]string(nil), t.calls...)
}

// Parent delegates to the wrapped implementation
func (t *DryRunTool) Parent(ctx context.Context, branch string) (string, error) {
	return t.inner.Parent(ctx, branch)
}

// Children delegates to the wrapped implementation
func (t *DryRunTool) Children(ctx context.Context, branch string) ([]string, error) {
	return t.inner.Children(ctx, branch)
}

// Restack records the intended restack
func (t *DryRunTool) Restack(_ context.Context, branches []string) error {
	t.calls = append(t.calls, "gt restack "+strings.Join(branches, " "))
	return nil
}

// Submit records the intended submit
func (t *DryRunTool) Submit(_ context.Context, branch string) error {
	t.calls = append(t.calls, "gt submit "+branch)
	return nil
}

// SyncTrunk records the intended sync
func (t *DryRunTool) SyncTrunk(_ context.Context) error {
	t.calls = append(t.calls, "gt sync")
	return nil
}
