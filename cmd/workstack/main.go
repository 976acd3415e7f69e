package main

import (
	"fmt"
	"os"

	"workstack.dev/workstack/internal/cli"
	"workstack.dev/workstack/internal/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := cli.NewRootCmd(version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, tui.Colorize(tui.ErrorStyle, err.Error()))
		os.Exit(1)
	}
}
