// Package runtime bundles the capabilities and configuration one command
// invocation needs, threaded explicitly instead of read from globals.
package runtime

import (
	"context"
	"fmt"

	"workstack.dev/workstack/internal/config"
	"workstack.dev/workstack/internal/forest"
	"workstack.dev/workstack/internal/git"
	"workstack.dev/workstack/internal/hosting"
	"workstack.dev/workstack/internal/stack"
	"workstack.dev/workstack/internal/tui"
)

// Context carries everything a command needs for one invocation
type Context struct {
	Context context.Context
	Git     git.Git
	Stack   stack.Tool
	Forests *forest.Registry
	Splog   *tui.Splog

	RepoRoot string
	Trunk    string
	// StackToolEnabled comes from repo config and is consumed as a single
	// boolean at the start of every reroot and land-stack invocation.
	StackToolEnabled bool
	DryRun           bool

	// host is created on first use; resolving it needs a remote URL and a
	// token, which forest-only commands never require.
	host hosting.Client
}

// New builds a Context for the repository containing the working directory.
// With dryRun set, the mutating capabilities are wrapped so writes are
// recorded instead of executed.
func New(ctx context.Context, splog *tui.Splog, dryRun bool) (*Context, error) {
	realGit, err := git.NewRealGit("")
	if err != nil {
		return nil, err
	}
	repoRoot := realGit.RepoRoot()

	trunk, err := config.GetTrunk(repoRoot)
	if err != nil {
		return nil, err
	}
	stackToolEnabled, err := config.IsStackToolEnabled(repoRoot)
	if err != nil {
		return nil, err
	}

	var g git.Git = realGit
	var t stack.Tool = stack.NewGraphiteTool(repoRoot)
	if dryRun {
		g = git.NewDryRunGit(g)
		t = stack.NewDryRunTool(t)
	}

	return &Context{
		Context:          ctx,
		Git:              g,
		Stack:            t,
		Forests:          forest.NewRegistry(repoRoot),
		Splog:            splog,
		RepoRoot:         repoRoot,
		Trunk:            trunk,
		StackToolEnabled: stackToolEnabled,
		DryRun:           dryRun,
	}, nil
}

// Host returns the code-host client, creating it on first use from the
// origin remote URL.
func (c *Context) Host() (hosting.Client, error) {
	if c.host != nil {
		return c.host, nil
	}

	runner := git.NewCommandRunner(c.RepoRoot)
	remoteURL, err := runner.Run(c.Context, "config", "--get", "remote.origin.url")
	if err != nil {
		return nil, fmt.Errorf("failed to read origin remote URL: %w", err)
	}

	client, err := hosting.NewGitHubClient(c.Context, remoteURL)
	if err != nil {
		return nil, err
	}

	if c.DryRun {
		c.host = hosting.NewDryRunClient(client)
	} else {
		c.host = client
	}
	return c.host, nil
}

// SetHost overrides the code-host client, used by tests and dry runs
func (c *Context) SetHost(client hosting.Client) {
	c.host = client
}
