package forest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	wserrors "workstack.dev/workstack/internal/errors"
	"workstack.dev/workstack/internal/git"
	"workstack.dev/workstack/internal/stack"
)

// Scope restricts a split to part of the chain relative to the branch
// checked out in the source worktree.
type Scope int

const (
	// ScopeAll splits every other branch in the chain into its own worktree
	ScopeAll Scope = iota
	// ScopeUp splits only the branches stacked above the current branch
	ScopeUp
	// ScopeDown splits only the branches between trunk and the current branch
	ScopeDown
)

// Split converts a forest represented by a single worktree holding a whole
// stack into one worktree per branch. Each branch keeps its existing head.
// Target paths are siblings of the source worktree, named after the branch.
// Any pre-existing target path fails the whole split before any worktree is
// created; a failure partway through removes the worktrees already created.
func Split(ctx context.Context, reg *Registry, g git.Git, t stack.Tool, trunk, forestName string, scope Scope) ([]git.Worktree, error) {
	forest, err := reg.Get(forestName)
	if err != nil {
		return nil, err
	}
	if len(forest.Worktrees) != 1 {
		return nil, wserrors.NewPreconditionError(
			fmt.Sprintf("forest %s has %d worktrees, split requires exactly one", forestName, len(forest.Worktrees)),
			"merge the forest into a single worktree first")
	}
	sourcePath := forest.Worktrees[0]

	worktrees, err := g.ListWorktrees(ctx)
	if err != nil {
		return nil, err
	}
	var current string
	for _, wt := range worktrees {
		if wt.Path == sourcePath {
			current = wt.Branch
		}
	}
	if current == "" {
		return nil, wserrors.NewPreconditionError(
			fmt.Sprintf("forest worktree %s is not a registered worktree", sourcePath),
			"run workstack sync to reconcile the forest registry")
	}
	if current == trunk {
		return nil, &wserrors.OpError{
			Kind:        wserrors.KindPrecondition,
			Message:     fmt.Sprintf("worktree %s has trunk (%s) checked out", sourcePath, trunk),
			Remediation: "check out a stack branch before splitting",
			Err:         wserrors.ErrTrunkOperation,
		}
	}

	chain, err := stack.Chain(ctx, t, trunk, current)
	if err != nil {
		return nil, wserrors.NewPreconditionError(err.Error(), "repair the stack with the stack tool, then retry")
	}

	targets := selectScope(chain, current, scope)
	if len(targets) == 0 {
		return nil, nil
	}

	// All-or-nothing path check before any mutation
	occupied := map[string]bool{}
	for _, wt := range worktrees {
		occupied[wt.Path] = true
	}
	baseDir := filepath.Dir(sourcePath)
	paths := make(map[string]string, len(targets))
	for _, branch := range targets {
		path := filepath.Join(baseDir, pathNameFor(branch))
		if occupied[path] {
			return nil, wserrors.NewPreconditionError(
				fmt.Sprintf("target path %s is already a worktree", path),
				"remove or relocate the existing worktree, then retry")
		}
		if _, err := os.Stat(path); err == nil {
			return nil, wserrors.NewPreconditionError(
				fmt.Sprintf("target path %s already exists", path),
				"remove or relocate the existing directory, then retry")
		}
		paths[branch] = path
	}

	// Record heads up front so integrity can be asserted afterwards
	headsBefore := make(map[string]string, len(targets))
	for _, branch := range targets {
		head, err := g.BranchHead(ctx, branch)
		if err != nil {
			return nil, err
		}
		headsBefore[branch] = head
	}

	var created []git.Worktree
	for _, branch := range targets {
		path := paths[branch]
		if err := g.AddWorktree(ctx, path, branch); err != nil {
			// Clean up whatever this split already created
			for _, wt := range created {
				_ = g.RemoveWorktree(ctx, wt.Path, true)
			}
			return nil, fmt.Errorf("split of forest %s failed at %s: %w", forestName, branch, err)
		}
		created = append(created, git.Worktree{Path: path, Branch: branch, Head: headsBefore[branch]})
	}

	for _, wt := range created {
		head, err := g.BranchHead(ctx, wt.Branch)
		if err != nil {
			return nil, err
		}
		if head != headsBefore[wt.Branch] {
			return nil, wserrors.NewInternalError(
				fmt.Sprintf("branch %s moved from %s to %s during split", wt.Branch, headsBefore[wt.Branch], head), nil)
		}
	}

	createdPaths := make([]string, len(created))
	for i, wt := range created {
		createdPaths[i] = wt.Path
	}
	if err := reg.AddWorktrees(forestName, createdPaths...); err != nil {
		return nil, err
	}
	return created, nil
}

// selectScope returns the chain branches to split out, excluding current
func selectScope(chain []string, current string, scope Scope) []string {
	idx := -1
	for i, b := range chain {
		if b == current {
			idx = i
		}
	}
	if idx < 0 {
		return nil
	}
	switch scope {
	case ScopeUp:
		return chain[idx+1:]
	case ScopeDown:
		return chain[:idx]
	default:
		others := make([]string, 0, len(chain)-1)
		others = append(others, chain[:idx]...)
		return append(others, chain[idx+1:]...)
	}
}

// pathNameFor derives a directory name from a branch name
func pathNameFor(branch string) string {
	return strings.ReplaceAll(branch, "/", "-")
}
