// Package stack integrates the external stack-management tool. The
// orchestrator treats the tool as the source of truth for parent/child
// branch relationships and delegates restacking to it.
package stack

import (
	"context"
	"fmt"
)

// Tool is the stack-management capability. A branch's parent is the branch
// it is stacked on; trunk has no parent. Three implementations exist:
// GraphiteTool (drives the gt binary), FakeTool (in-memory, for tests) and
// DryRunTool (records intended writes).
type Tool interface {
	// Parent returns the parent of branch, or "" when the branch is trunk
	// or not tracked by the stack tool.
	Parent(ctx context.Context, branch string) (string, error)

	// Children returns the branches stacked directly on branch
	Children(ctx context.Context, branch string) ([]string, error)

	// Restack rewrites the given branches so each sits on its parent's head
	Restack(ctx context.Context, branches []string) error

	// Submit creates or updates the pull request for branch
	Submit(ctx context.Context, branch string) error

	// SyncTrunk updates the tool's view of trunk from the remote
	SyncTrunk(ctx context.Context) error
}

// BranchInfo describes one branch's position in its stack
type BranchInfo struct {
	Name     string
	Parent   string
	Children []string
}

// Info assembles a BranchInfo for branch from individual tool queries
func Info(ctx context.Context, t Tool, branch string) (BranchInfo, error) {
	parent, err := t.Parent(ctx, branch)
	if err != nil {
		return BranchInfo{}, err
	}
	children, err := t.Children(ctx, branch)
	if err != nil {
		return BranchInfo{}, err
	}
	return BranchInfo{Name: branch, Parent: parent, Children: children}, nil
}

// Chain returns the full linear chain containing branch, ordered from the
// branch closest to trunk upward. It fails when branch is not stacked on
// trunk, when the ancestry contains a cycle, or when any branch in the
// chain has more than one child.
func Chain(ctx context.Context, t Tool, trunk, branch string) ([]string, error) {
	if branch == trunk {
		return nil, fmt.Errorf("%s is the trunk branch, not part of a stack", branch)
	}

	// Walk down to trunk
	var below []string
	seen := map[string]bool{}
	cur := branch
	for {
		if seen[cur] {
			return nil, fmt.Errorf("branch ancestry of %s contains a cycle at %s", branch, cur)
		}
		seen[cur] = true
		below = append(below, cur)

		parent, err := t.Parent(ctx, cur)
		if err != nil {
			return nil, err
		}
		if parent == trunk {
			break
		}
		if parent == "" {
			return nil, fmt.Errorf("branch %s is not stacked on %s", branch, trunk)
		}
		cur = parent
	}

	// below is ordered branch -> bottom; reverse it
	chain := make([]string, 0, len(below))
	for i := len(below) - 1; i >= 0; i-- {
		chain = append(chain, below[i])
	}

	// Walk up from branch
	cur = branch
	for {
		children, err := t.Children(ctx, cur)
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			break
		}
		if len(children) > 1 {
			return nil, fmt.Errorf("stack is not linear: %s has %d children", cur, len(children))
		}
		cur = children[0]
		if seen[cur] {
			return nil, fmt.Errorf("branch descendants of %s contain a cycle at %s", branch, cur)
		}
		seen[cur] = true
		chain = append(chain, cur)
	}

	return chain, nil
}
