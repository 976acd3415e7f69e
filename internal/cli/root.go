// Package cli wires the command surface to the orchestrator packages.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"workstack.dev/workstack/internal/runtime"
	"workstack.dev/workstack/internal/tui"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	splog, err := tui.NewSplogWithFile(tui.GetLogFilePath())
	if err != nil {
		splog = tui.NewSplog()
	}
	cobra.OnFinalize(func() { _ = splog.Close() })

	var quiet bool

	rootCmd := &cobra.Command{
		Use:   "workstack",
		Short: "Workstack manages stacked worktrees and lands whole stacks of pull requests",
		Long: `Workstack manages forests: named groups of git worktrees bound to a stack
of dependent branches. It can split a stack into one worktree per branch,
merge it back, reroot the whole stack onto fresh trunk state, and land every
pull request in the stack onto trunk in dependency order.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			splog.SetQuiet(quiet)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress console output")

	rootCmd.AddCommand(
		newInitCmd(splog),
		newForestCmd(splog),
		newLandStackCmd(splog),
		newRerootCmd(splog),
		newSyncCmd(splog),
	)

	return rootCmd
}

// newRuntime builds the per-invocation context for a command
func newRuntime(cmd *cobra.Command, splog *tui.Splog, dryRun bool) (*runtime.Context, error) {
	return runtime.New(cmd.Context(), splog, dryRun)
}
