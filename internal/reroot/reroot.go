package reroot

import (
	"context"
	"fmt"

	wserrors "workstack.dev/workstack/internal/errors"
	"workstack.dev/workstack/internal/git"
	"workstack.dev/workstack/internal/stack"
)

// ConflictPrompt is asked, never assumed, when a rebase pauses on conflict:
// should a conflict commit be created capturing the exact conflicted file
// state before the user resolves it by hand?
type ConflictPrompt func(branch string, files []git.ConflictedFile) (bool, error)

// Options configures a reroot run
type Options struct {
	Trunk string
	// StackToolEnabled comes from repo config, passed explicitly rather
	// than read from ambient state.
	StackToolEnabled bool
	// ConfirmConflictCommit decides conflict-commit creation on pause.
	// A nil prompt means no conflict commits are ever created.
	ConfirmConflictCommit ConflictPrompt
}

// Result describes where a reroot run (or continue) ended up
type Result struct {
	// Completed is true when every branch was rebased and the state file removed
	Completed bool
	// PausedBranch is set when the run paused on a conflict
	PausedBranch string
	// ConflictedFiles are the paths in conflict when paused
	ConflictedFiles []git.ConflictedFile
	// RebasedBranches lists the branches rebased cleanly by this invocation
	RebasedBranches []string
}

// Start begins a reroot of the stack containing the current branch. All
// preconditions are checked before any mutation; a failed precondition
// leaves no state behind.
func Start(ctx context.Context, g git.Git, t stack.Tool, opts Options) (*Result, error) {
	repoRoot := g.RepoRoot()

	existing, err := LoadState(repoRoot)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, wserrors.NewPreconditionError(
			"a reroot is already in progress",
			"finish it with reroot --continue or discard it with reroot --abort")
	}

	if !opts.StackToolEnabled {
		return nil, wserrors.NewPreconditionError(
			"the stack tool integration is not enabled for this repository",
			"run workstack init and enable the stack tool")
	}

	dirty, err := g.HasUncommittedChanges(ctx)
	if err != nil {
		return nil, err
	}
	if dirty {
		return nil, wserrors.NewPreconditionError(
			"the working directory has uncommitted changes",
			"commit or stash them before rerooting")
	}

	current, err := g.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	if current == opts.Trunk {
		return nil, &wserrors.OpError{
			Kind:        wserrors.KindPrecondition,
			Message:     fmt.Sprintf("current branch is the trunk (%s)", opts.Trunk),
			Remediation: "check out a stack branch before rerooting",
			Err:         wserrors.ErrTrunkOperation,
		}
	}

	chain, err := stack.Chain(ctx, t, opts.Trunk, current)
	if err != nil {
		return nil, wserrors.NewPreconditionError(err.Error(), "repair the stack with the stack tool, then retry")
	}

	worktrees, err := g.ListWorktrees(ctx)
	if err != nil {
		return nil, err
	}
	checkedOut := map[string]bool{}
	for _, wt := range worktrees {
		checkedOut[wt.Branch] = true
	}
	for _, branch := range chain {
		if !checkedOut[branch] {
			return nil, wserrors.NewPreconditionError(
				fmt.Sprintf("branch %s has no worktree", branch),
				"split the forest so every stack branch has a worktree, then retry")
		}
	}

	st := &State{Trunk: opts.Trunk, Remaining: chain}
	if err := SaveState(repoRoot, st); err != nil {
		return nil, err
	}

	return run(ctx, g, t, st, opts.ConfirmConflictCommit)
}

// Continue resumes a paused or interrupted reroot. With no persisted state
// it reports "no reroot in progress" rather than attempting any rebase.
func Continue(ctx context.Context, g git.Git, t stack.Tool, prompt ConflictPrompt) (*Result, error) {
	repoRoot := g.RepoRoot()

	st, err := LoadState(repoRoot)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, &wserrors.OpError{
			Kind:        wserrors.KindPrecondition,
			Message:     "no reroot in progress",
			Remediation: "start one with forest reroot",
			Err:         wserrors.ErrNoRerootInProgress,
		}
	}

	if st.PausedBranch != "" {
		branch := st.PausedBranch

		// Stage the user's resolutions. When a conflict commit exists, the
		// matching resolution commit is created first so the two states can
		// be compared later in history.
		if err := g.StageAll(ctx); err != nil {
			return nil, err
		}
		if st.ConflictCommitted {
			if err := g.CommitStaged(ctx, fmt.Sprintf("resolve conflicts on %s", branch)); err != nil {
				return nil, err
			}
		}

		result, err := g.RebaseContinue(ctx)
		if err != nil {
			return nil, wserrors.NewExternalToolError(fmt.Sprintf("failed to continue rebase of %s", branch), err)
		}
		if result == git.RebaseConflict {
			files, ferr := g.ConflictedPaths(ctx)
			if ferr != nil {
				return nil, ferr
			}
			return &Result{PausedBranch: branch, ConflictedFiles: files}, nil
		}

		st.PausedBranch = ""
		st.ConflictCommitted = false
		if len(st.Remaining) > 0 && st.Remaining[0] == branch {
			st.Remaining = st.Remaining[1:]
		}
		if err := SaveState(repoRoot, st); err != nil {
			return nil, err
		}
	}

	return run(ctx, g, t, st, prompt)
}

// Abort discards an in-progress reroot: the underlying rebase is aborted
// and the persisted state deleted.
func Abort(ctx context.Context, g git.Git) error {
	repoRoot := g.RepoRoot()

	st, err := LoadState(repoRoot)
	if err != nil {
		return err
	}
	if st == nil {
		return &wserrors.OpError{
			Kind:        wserrors.KindPrecondition,
			Message:     "no reroot in progress",
			Remediation: "nothing to abort",
			Err:         wserrors.ErrNoRerootInProgress,
		}
	}

	if st.PausedBranch != "" {
		if err := g.RebaseAbort(ctx); err != nil {
			return wserrors.NewExternalToolError("failed to abort the in-progress rebase", err)
		}
	}
	return ClearState(repoRoot)
}

// run rebases the remaining branches in chain order, persisting progress
// after every step and pausing on the first conflict.
func run(ctx context.Context, g git.Git, t stack.Tool, st *State, prompt ConflictPrompt) (*Result, error) {
	repoRoot := g.RepoRoot()
	var rebased []string

	for len(st.Remaining) > 0 {
		branch := st.Remaining[0]

		onto, err := t.Parent(ctx, branch)
		if err != nil {
			return nil, err
		}
		if onto == "" {
			return nil, wserrors.NewInternalError(
				fmt.Sprintf("branch %s has no parent according to the stack tool", branch), nil)
		}

		result, err := g.RebaseOnto(ctx, branch, onto, "")
		if err != nil {
			return nil, wserrors.NewExternalToolError(fmt.Sprintf("failed to rebase %s onto %s", branch, onto), err)
		}

		if result == git.RebaseConflict {
			st.PausedBranch = branch
			if err := SaveState(repoRoot, st); err != nil {
				return nil, err
			}

			files, err := g.ConflictedPaths(ctx)
			if err != nil {
				return nil, err
			}

			if prompt != nil {
				create, err := prompt(branch, files)
				if err != nil {
					return nil, err
				}
				if create {
					if err := g.StageAll(ctx); err != nil {
						return nil, err
					}
					if err := g.CommitStaged(ctx, fmt.Sprintf("conflict state on %s before resolution", branch)); err != nil {
						return nil, err
					}
					st.ConflictCommitted = true
					if err := SaveState(repoRoot, st); err != nil {
						return nil, err
					}
				}
			}

			return &Result{
				PausedBranch:    branch,
				ConflictedFiles: files,
				RebasedBranches: rebased,
			}, nil
		}

		rebased = append(rebased, branch)
		st.Remaining = st.Remaining[1:]
		if err := SaveState(repoRoot, st); err != nil {
			return nil, err
		}
	}

	if err := ClearState(repoRoot); err != nil {
		return nil, err
	}
	return &Result{Completed: true, RebasedBranches: rebased}, nil
}
