package cli

import (
	"errors"

	"github.com/spf13/cobra"

	wserrors "workstack.dev/workstack/internal/errors"
	"workstack.dev/workstack/internal/land"
	"workstack.dev/workstack/internal/tui"
)

// splogReporter renders landing progress through the console logger
type splogReporter struct {
	splog *tui.Splog
}

func (r splogReporter) Phase(name string) {
	r.splog.Debug("phase: %s", name)
}

func (r splogReporter) Step(message string) {
	r.splog.Info("%s", message)
}

func newLandStackCmd(splog *tui.Splog) *cobra.Command {
	var force, dryRun bool

	cmd := &cobra.Command{
		Use:   "land-stack",
		Short: "Merge every pull request in the current stack onto trunk, bottom to top",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc, err := newRuntime(cmd, splog, false)
			if err != nil {
				return err
			}
			host, err := rc.Host()
			if err != nil {
				return err
			}

			plan, err := land.Discover(rc.Context, rc.Git, rc.Stack, host, rc.Trunk, rc.StackToolEnabled)
			if err != nil {
				return err
			}

			if dryRun {
				splog.Info("dry run; no changes made.")
				splog.Info("%s", plan.Describe())
				return nil
			}

			report, execErr := land.Execute(rc.Context, rc.Git, rc.Stack, host, plan, land.Options{
				Force:    force,
				Reporter: splogReporter{splog: splog},
				Confirm: func(p *land.Plan) (bool, error) {
					splog.Info("%s", p.Describe())
					if splog.IsQuiet() || !tui.IsTTY() {
						return false, wserrors.NewPreconditionError(
							"cannot confirm the landing without a terminal",
							"rerun with --force to skip confirmation")
					}
					return tui.PromptConfirm("Proceed with landing?")
				},
			})
			if errors.Is(execErr, land.ErrCancelled) {
				splog.Info("landing cancelled")
				return nil
			}
			if report != nil {
				reportLanding(splog, report)
			}
			return execErr
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and show the merge plan without landing")
	return cmd
}

func reportLanding(splog *tui.Splog, report *land.Report) {
	for _, merged := range report.Merged {
		splog.Info("merged #%d (%s)", merged.Number, tui.Colorize(tui.MergedStyle, merged.Branch))
	}
	if report.FinalBranch != "" {
		splog.Info("now on %s", report.FinalBranch)
	}
	if len(report.FollowUps) > 0 {
		splog.Newline()
	}
	for _, followUp := range report.FollowUps {
		splog.Tip("%s", followUp)
	}
}
