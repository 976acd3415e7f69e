package cli

import (
	"github.com/spf13/cobra"

	"workstack.dev/workstack/internal/config"
	"workstack.dev/workstack/internal/git"
	"workstack.dev/workstack/internal/tui"
)

// newInitCmd writes the repository configuration consumed by every other command
func newInitCmd(splog *tui.Splog) *cobra.Command {
	var trunk string
	var enableStackTool bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize workstack for this repository",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repoRoot, err := git.DiscoverRepoRoot("")
			if err != nil {
				return err
			}

			cfg, err := config.GetRepoConfig(repoRoot)
			if err != nil {
				return err
			}
			cfg.Trunk = &trunk
			cfg.StackToolEnabled = &enableStackTool
			if err := config.SaveRepoConfig(repoRoot, cfg); err != nil {
				return err
			}

			splog.Info("initialized workstack: trunk=%s stack tool enabled=%v", trunk, enableStackTool)
			return nil
		},
	}

	cmd.Flags().StringVar(&trunk, "trunk", "main", "trunk branch name")
	cmd.Flags().BoolVar(&enableStackTool, "enable-stack-tool", false, "enable the stack tool (gt) integration")
	return cmd
}
