package stack

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	wserrors "workstack.dev/workstack/internal/errors"
)

// DefaultCommandTimeout is the default timeout for stack tool commands
const DefaultCommandTimeout = 5 * time.Minute

// GraphiteTool implements Tool by driving the gt binary
type GraphiteTool struct {
	workingDir string
}

// NewGraphiteTool creates a GraphiteTool rooted at workingDir
func NewGraphiteTool(workingDir string) *GraphiteTool {
	return &GraphiteTool{workingDir: workingDir}
}

func (t *GraphiteTool) run(ctx context.Context, args ...string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCommandTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "gt", args...)
	cmd.Dir = t.workingDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", wserrors.NewCommandError("gt", args, stdout.String(), stderr.String(), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Parent returns the parent of branch according to the stack tool
func (t *GraphiteTool) Parent(ctx context.Context, branch string) (string, error) {
	output, err := t.run(ctx, "parent", "--branch", branch)
	if err != nil {
		// Untracked branches are not an error, just outside any stack
		if strings.Contains(err.Error(), "not tracked") {
			return "", nil
		}
		return "", err
	}
	return output, nil
}

// Children returns the branches stacked directly on branch
func (t *GraphiteTool) Children(ctx context.Context, branch string) ([]string, error) {
	output, err := t.run(ctx, "children", "--branch", branch)
	if err != nil {
		if strings.Contains(err.Error(), "not tracked") {
			return nil, nil
		}
		return nil, err
	}
	if output == "" {
		return nil, nil
	}
	return strings.Split(output, "\n"), nil
}

// Restack rewrites the given branches so each sits on its parent's head
func (t *GraphiteTool) Restack(ctx context.Context, branches []string) error {
	for _, branch := range branches {
		if _, err := t.run(ctx, "restack", "--branch", branch); err != nil {
			return err
		}
	}
	return nil
}

// Submit creates or updates the pull request for branch
func (t *GraphiteTool) Submit(ctx context.Context, branch string) error {
	_, err := t.run(ctx, "submit", "--branch", branch, "--no-interactive")
	return err
}

// SyncTrunk updates the tool's view of trunk from the remote
func (t *GraphiteTool) SyncTrunk(ctx context.Context) error {
	_, err := t.run(ctx, "sync", "--no-interactive")
	return err
}
