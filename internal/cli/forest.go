package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"workstack.dev/workstack/internal/forest"
	"workstack.dev/workstack/internal/git"
	"workstack.dev/workstack/internal/hosting"
	"workstack.dev/workstack/internal/reroot"
	"workstack.dev/workstack/internal/runtime"
	"workstack.dev/workstack/internal/tui"
)

func newForestCmd(splog *tui.Splog) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forest",
		Short: "Manage forests: named groups of worktrees bound to one stack",
	}

	cmd.AddCommand(
		newForestShowCmd(splog),
		newForestListCmd(splog),
		newForestRenameCmd(splog),
		newForestSplitCmd(splog),
		newForestMergeCmd(splog),
		newForestRerootCmd(splog),
	)
	return cmd
}

func newForestShowCmd(splog *tui.Splog) *cobra.Command {
	var withPRs bool

	cmd := &cobra.Command{
		Use:   "show [forest]",
		Short: "Show a forest and its worktrees",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := newRuntime(cmd, splog, false)
			if err != nil {
				return err
			}

			f, err := resolveForestArg(rc, args)
			if err != nil {
				return err
			}

			var prs map[string]*hosting.PullRequest
			if withPRs {
				host, err := rc.Host()
				if err != nil {
					return err
				}
				open, err := host.ListPullRequests(rc.Context)
				if err != nil {
					return err
				}
				prs = make(map[string]*hosting.PullRequest, len(open))
				for _, pr := range open {
					prs[pr.Branch] = pr
				}
			}

			printForest(rc, splog, f, prs)
			return nil
		},
	}

	cmd.Flags().BoolVar(&withPRs, "prs", false, "show each branch's open pull request and conflict status")
	return cmd
}

func newForestListCmd(splog *tui.Splog) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every forest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc, err := newRuntime(cmd, splog, false)
			if err != nil {
				return err
			}

			forests, err := rc.Forests.List()
			if err != nil {
				return err
			}
			if len(forests) == 0 {
				splog.Info("no forests")
				return nil
			}
			for _, f := range forests {
				printForest(rc, splog, f, nil)
			}
			return nil
		},
	}
}

func printForest(rc *runtime.Context, splog *tui.Splog, f *forest.Forest, prs map[string]*hosting.PullRequest) {
	splog.Info("%s (created %s)", tui.Colorize(tui.ForestStyle, f.Name), f.CreatedAt.Format("2006-01-02"))

	worktrees, err := rc.Git.ListWorktrees(rc.Context)
	branchOf := map[string]string{}
	if err == nil {
		for _, wt := range worktrees {
			branchOf[wt.Path] = wt.Branch
		}
	}

	for _, path := range f.Worktrees {
		branch := branchOf[path]
		if branch == "" {
			branch = "(detached)"
		}
		line := fmt.Sprintf("  %s  %s", tui.Colorize(tui.BranchStyle, branch), tui.Colorize(tui.PathStyle, path))
		if pr, ok := prs[branch]; ok {
			line += fmt.Sprintf("  #%d", pr.Number)
			if pr.MergeConflict {
				line += " " + tui.Colorize(tui.WarningStyle, "(conflicts)")
			}
		} else if prs != nil {
			line += "  no open PR"
		}
		splog.Info("%s", line)
	}
}

func newForestRenameCmd(splog *tui.Splog) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> [new]",
		Short: "Rename a forest; worktree paths are untouched",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := newRuntime(cmd, splog, false)
			if err != nil {
				return err
			}

			newName := ""
			if len(args) == 2 {
				newName = args[1]
			} else {
				if !tui.IsTTY() {
					return fmt.Errorf("new forest name required")
				}
				newName, err = tui.PromptTextInput(fmt.Sprintf("New name for forest %s:", args[0]), args[0])
				if err != nil {
					return err
				}
			}
			if newName == "" {
				return fmt.Errorf("new forest name cannot be empty")
			}

			if err := rc.Forests.Rename(args[0], newName); err != nil {
				return err
			}
			splog.Info("renamed forest %s to %s", args[0], newName)
			return nil
		},
	}
}

func newForestSplitCmd(splog *tui.Splog) *cobra.Command {
	var up, down, dryRun bool

	cmd := &cobra.Command{
		Use:   "split [forest]",
		Short: "Split a stack's single worktree into one worktree per branch",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if up && down {
				return fmt.Errorf("--up and --down are mutually exclusive")
			}
			scope := forest.ScopeAll
			if up {
				scope = forest.ScopeUp
			}
			if down {
				scope = forest.ScopeDown
			}

			rc, err := newRuntime(cmd, splog, dryRun)
			if err != nil {
				return err
			}
			reg := rc.Forests
			if dryRun {
				reg = reg.WithDryRun()
			}

			f, err := resolveForestArg(rc, args)
			if err != nil {
				return err
			}

			created, err := forest.Split(rc.Context, reg, rc.Git, rc.Stack, rc.Trunk, f.Name, scope)
			if err != nil {
				return err
			}
			if dryRun {
				reportDryRun(rc, splog)
				return nil
			}
			if len(created) == 0 {
				splog.Info("nothing to split")
				return nil
			}
			for _, wt := range created {
				splog.Info("created %s at %s", tui.Colorize(tui.BranchStyle, wt.Branch), wt.Path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&up, "up", false, "split only the branches stacked above the current branch")
	cmd.Flags().BoolVar(&down, "down", false, "split only the branches between trunk and the current branch")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report intended changes without making them")
	return cmd
}

func newForestMergeCmd(splog *tui.Splog) *cobra.Command {
	var into string
	var force, dryRun bool

	cmd := &cobra.Command{
		Use:   "merge [forest]",
		Short: "Merge a forest back into a single worktree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := newRuntime(cmd, splog, dryRun)
			if err != nil {
				return err
			}
			reg := rc.Forests
			if dryRun {
				reg = reg.WithDryRun()
			}

			f, err := resolveForestArg(rc, args)
			if err != nil {
				return err
			}

			target := into
			if target == "" {
				target, err = currentWorktreePath(rc)
				if err != nil {
					return err
				}
			}

			kept, err := forest.Merge(rc.Context, reg, rc.Git, f.Name, target, force)
			if err != nil {
				return err
			}
			if dryRun {
				reportDryRun(rc, splog)
				return nil
			}
			splog.Info("forest %s merged into %s (%s)", f.Name, kept.Path, tui.Colorize(tui.BranchStyle, kept.Branch))
			return nil
		},
	}

	cmd.Flags().StringVar(&into, "into", "", "target worktree to keep (defaults to the current worktree)")
	cmd.Flags().BoolVar(&force, "force", false, "discard uncommitted changes in removed worktrees")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report intended changes without making them")
	return cmd
}

func newForestRerootCmd(splog *tui.Splog) *cobra.Command {
	return &cobra.Command{
		Use:   "reroot",
		Short: "Rebase the whole stack onto fresh trunk state, pausing on conflicts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc, err := newRuntime(cmd, splog, false)
			if err != nil {
				return err
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

			result, err := reroot.Start(rc.Context, rc.Git, rc.Stack, reroot.Options{
				Trunk:                 rc.Trunk,
				StackToolEnabled:      rc.StackToolEnabled,
				ConfirmConflictCommit: prompt,
			})
			if err != nil {
				return err
			}
			reportReroot(splog, result)
			return nil
		},
	}
}

func reportReroot(splog *tui.Splog, result *reroot.Result) {
	for _, branch := range result.RebasedBranches {
		splog.Info("rebased %s", tui.Colorize(tui.BranchStyle, branch))
	}
	if result.Completed {
		splog.Info("reroot complete")
		return
	}
	splog.Warn("reroot paused on %s with %d conflicted file(s)", result.PausedBranch, len(result.ConflictedFiles))
	for _, f := range result.ConflictedFiles {
		splog.Info("  %s (%s)", f.Path, f.Type)
	}
	splog.Tip("resolve the conflicts, then run workstack reroot --continue (or --abort)")
}

// resolveForestArg returns the named forest, or the forest of the current
// worktree when no name is given.
func resolveForestArg(rc *runtime.Context, args []string) (*forest.Forest, error) {
	if len(args) > 0 {
		return rc.Forests.Get(args[0])
	}
	path, err := currentWorktreePath(rc)
	if err != nil {
		return nil, err
	}
	return rc.Forests.Resolve(rc.Context, rc.Git, rc.Stack, rc.Trunk, path)
}

// currentWorktreePath finds the registered worktree containing the working
// directory.
func currentWorktreePath(rc *runtime.Context) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	worktrees, err := rc.Git.ListWorktrees(rc.Context)
	if err != nil {
		return "", err
	}

	best := ""
	for _, wt := range worktrees {
		if cwd == wt.Path || strings.HasPrefix(cwd, wt.Path+string(os.PathSeparator)) {
			if len(wt.Path) > len(best) {
				best = wt.Path
			}
		}
	}
	if best == "" {
		return "", fmt.Errorf("%s is not inside a registered worktree", cwd)
	}
	return best, nil
}

// reportDryRun prints the writes a dry run would have performed
func reportDryRun(rc *runtime.Context, splog *tui.Splog) {
	splog.Info("dry run; no changes made. Intended operations:")
	if g, ok := rc.Git.(*git.DryRunGit); ok {
		for _, call := range g.RecordedCalls() {
			splog.Info("  %s", call.String())
		}
	}
}
