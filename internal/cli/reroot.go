package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"workstack.dev/workstack/internal/git"
	"workstack.dev/workstack/internal/reroot"
	"workstack.dev/workstack/internal/tui"
)

func newRerootCmd(splog *tui.Splog) *cobra.Command {
	var cont, abort bool

	cmd := &cobra.Command{
		Use:   "reroot",
		Short: "Continue or abort an in-progress reroot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cont == abort {
				return fmt.Errorf("pass exactly one of --continue or --abort (use 'forest reroot' to start one)")
			}

			rc, err := newRuntime(cmd, splog, false)
			if err != nil {
				return err
			}

			if abort {
				if err := reroot.Abort(rc.Context, rc.Git); err != nil {
					return err
				}
				splog.Info("reroot aborted")
				return nil
			}

			var prompt reroot.ConflictPrompt
			if tui.IsTTY() {
				prompt = func(branch string, files []git.ConflictedFile) (bool, error) {
					paths := make([]string, len(files))
					for i, f := range files {
						paths[i] = fmt.Sprintf("%s (%s)", f.Path, f.Type)
					}
					return tui.PromptConflictCommit(branch, paths)
				}
			}

			result, err := reroot.Continue(rc.Context, rc.Git, rc.Stack, prompt)
			if err != nil {
				return err
			}
			reportReroot(splog, result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&cont, "continue", false, "resume after resolving conflicts")
	cmd.Flags().BoolVar(&abort, "abort", false, "abort the reroot and discard its state")
	return cmd
}
