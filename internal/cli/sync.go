package cli

import (
	"context"

	"github.com/spf13/cobra"

	"workstack.dev/workstack/internal/git"
	"workstack.dev/workstack/internal/land"
	"workstack.dev/workstack/internal/stack"
	"workstack.dev/workstack/internal/tui"
)

// newSyncCmd updates local trunk from the remote and garbage-collects empty
// forests. Forest garbage collection only ever runs here, never inline with
// split or merge.
func newSyncCmd(splog *tui.Splog) *cobra.Command {
	var restack, submit bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync trunk with the remote and garbage-collect empty forests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc, err := newRuntime(cmd, splog, false)
			if err != nil {
				return err
			}

			if rc.StackToolEnabled {
				if err := rc.Stack.SyncTrunk(rc.Context); err != nil {
					return err
				}
				splog.Info("synced %s via the stack tool", tui.Colorize(tui.TrunkStyle, rc.Trunk))
			} else {
				if err := syncTrunkWithGit(rc.Context, rc.Git, splog, rc.Trunk); err != nil {
					return err
				}
			}

			if restack || submit {
				if err := updateCurrentStack(rc.Context, rc.Git, rc.Stack, splog, rc.Trunk, restack, submit); err != nil {
					return err
				}
			}

			deleted, err := rc.Forests.GarbageCollect()
			if err != nil {
				return err
			}
			for _, name := range deleted {
				splog.Info("removed empty forest %s", name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&restack, "restack", false, "restack the current stack onto the synced trunk")
	cmd.Flags().BoolVar(&submit, "submit", false, "update the pull request of every stack branch afterwards")
	return cmd
}

// syncTrunkWithGit fast-forwards local trunk, restoring the original branch
// afterwards.
func syncTrunkWithGit(ctx context.Context, g git.Git, splog *tui.Splog, trunk string) error {
	current, err := g.CurrentBranch(ctx)
	if err != nil {
		return err
	}

	if err := g.Fetch(ctx, land.DefaultRemote); err != nil {
		return err
	}
	if current != trunk {
		if err := g.CheckoutBranch(ctx, trunk); err != nil {
			return err
		}
		defer func() { _ = g.CheckoutBranch(ctx, current) }()
	}

	result, err := g.PullFFOnly(ctx, land.DefaultRemote, trunk)
	if err != nil {
		return err
	}
	styled := tui.Colorize(tui.TrunkStyle, trunk)
	switch result {
	case git.PullDone:
		splog.Info("%s fast-forwarded", styled)
	case git.PullUnneeded:
		splog.Info("%s already up to date", styled)
	case git.PullDiverged:
		splog.Warn("%s has local commits not on the remote; not touching it", styled)
	}
	return nil
}

// updateCurrentStack asks the stack tool to rewrite every branch of the
// current stack onto its parent's new head, then pushes each branch's pull
// request when submit is set.
func updateCurrentStack(ctx context.Context, g git.Git, t stack.Tool, splog *tui.Splog, trunk string, restack, submit bool) error {
	current, err := g.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if current == trunk {
		splog.Info("on trunk, nothing to update")
		return nil
	}

	chain, err := stack.Chain(ctx, t, trunk, current)
	if err != nil {
		return err
	}

	if restack {
		if err := t.Restack(ctx, chain); err != nil {
			return err
		}
		splog.Info("restacked %d branch(es)", len(chain))
	}

	if submit {
		for _, branch := range chain {
			if err := t.Submit(ctx, branch); err != nil {
				return err
			}
			splog.Info("submitted %s", branch)
		}
	}
	return nil
}
