package git

import (
	"context"
	"fmt"
	"sort"

	wserrors "workstack.dev/workstack/internal/errors"
)

// FakeGit is the in-memory Git implementation used in tests. All state lives
// in ordinary in-process containers, and every mutation is recorded so
// calling code can assert on exactly what was requested.
type FakeGit struct {
	root        string
	current     string
	branches    map[string]string
	remoteHeads map[string]string
	diverged    map[string]bool
	worktrees   []Worktree
	dirtyPaths  map[string]bool

	conflictOnRebase map[string]bool
	conflicted       []ConflictedFile
	rebasing         bool
	rebasingBranch   string
	rebaseSeq        int

	mutations []string
	onCall    func(op string)
}

// NewFakeGit creates a fake repository rooted at root with trunk checked out
// in the primary worktree.
func NewFakeGit(root, trunk string) *FakeGit {
	head := "sha-" + trunk + "-0"
	return &FakeGit{
		root:             root,
		current:          trunk,
		branches:         map[string]string{trunk: head},
		remoteHeads:      map[string]string{},
		diverged:         map[string]bool{},
		worktrees:        []Worktree{{Path: root, Branch: trunk, Head: head}},
		dirtyPaths:       map[string]bool{},
		conflictOnRebase: map[string]bool{},
	}
}

// SetBranch creates or moves a branch to the given head
func (g *FakeGit) SetBranch(name, head string) {
	g.branches[name] = head
}

// SetRemoteHead sets the head the remote reports for a branch
func (g *FakeGit) SetRemoteHead(branch, head string) {
	g.remoteHeads[branch] = head
}

// SetDiverged marks a branch as having independent local commits, so a
// fast-forward-only pull of it reports PullDiverged.
func (g *FakeGit) SetDiverged(branch string) {
	g.diverged[branch] = true
}

// SetDirty marks the worktree at path as having uncommitted changes
func (g *FakeGit) SetDirty(path string, dirty bool) {
	g.dirtyPaths[path] = dirty
}

// SetConflictOnRebase makes the next rebase of branch pause on a conflict
func (g *FakeGit) SetConflictOnRebase(branch string, files ...ConflictedFile) {
	g.conflictOnRebase[branch] = true
	if len(files) > 0 {
		g.conflicted = files
	}
}

// ResolveConflicts simulates the user resolving all conflicted paths
func (g *FakeGit) ResolveConflicts() {
	g.conflicted = nil
}

// AddExistingWorktree registers a worktree without recording a mutation,
// for test setup.
func (g *FakeGit) AddExistingWorktree(path, branch string) {
	g.worktrees = append(g.worktrees, Worktree{Path: path, Branch: branch, Head: g.branches[branch]})
}

// SetOnCall installs a hook invoked with a description of every mutation,
// in order. Used to assert cross-capability ordering.
func (g *FakeGit) SetOnCall(fn func(op string)) {
	g.onCall = fn
}

// Mutations returns every mutation performed, in order
func (g *FakeGit) Mutations() []string {
	return append([]string(nil), g.mutations...)
}

// Branches returns the current branch heads, sorted by name
func (g *FakeGit) Branches() map[string]string {
	out := make(map[string]string, len(g.branches))
	for k, v := range g.branches {
		out[k] = v
	}
	return out
}

func (g *FakeGit) record(op string) {
	g.mutations = append(g.mutations, op)
	if g.onCall != nil {
		g.onCall(op)
	}
}

// RepoRoot returns the root of the primary working directory
func (g *FakeGit) RepoRoot() string {
	return g.root
}

// ListWorktrees returns the registered worktrees sorted by path
func (g *FakeGit) ListWorktrees(_ context.Context) ([]Worktree, error) {
	out := append([]Worktree(nil), g.worktrees...)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// AddWorktree adds a worktree at path with branch checked out
func (g *FakeGit) AddWorktree(_ context.Context, path, branch string) error {
	head, ok := g.branches[branch]
	if !ok {
		return wserrors.NewBranchNotFoundError(branch)
	}
	for _, wt := range g.worktrees {
		if wt.Path == path {
			return fmt.Errorf("failed to add worktree at %s: path already exists", path)
		}
		if wt.Branch == branch {
			return fmt.Errorf("failed to add worktree at %s: branch %s is already checked out at %s", path, branch, wt.Path)
		}
	}
	g.worktrees = append(g.worktrees, Worktree{Path: path, Branch: branch, Head: head})
	g.record("worktree add " + path + " " + branch)
	return nil
}

// RemoveWorktree removes the worktree at path
func (g *FakeGit) RemoveWorktree(_ context.Context, path string, force bool) error {
	for i, wt := range g.worktrees {
		if wt.Path != path {
			continue
		}
		if g.dirtyPaths[path] && !force {
			return fmt.Errorf("failed to remove worktree at %s: contains modified or untracked files", path)
		}
		g.worktrees = append(g.worktrees[:i], g.worktrees[i+1:]...)
		g.record("worktree remove " + path)
		return nil
	}
	return fmt.Errorf("failed to remove worktree at %s: not a worktree", path)
}

// CurrentBranch returns the branch checked out in the primary worktree
func (g *FakeGit) CurrentBranch(_ context.Context) (string, error) {
	if g.current == "" {
		return "", wserrors.ErrNotOnBranch
	}
	return g.current, nil
}

// BranchHead returns the commit a branch points at
func (g *FakeGit) BranchHead(_ context.Context, branch string) (string, error) {
	head, ok := g.branches[branch]
	if !ok {
		return "", wserrors.NewBranchNotFoundError(branch)
	}
	return head, nil
}

// CheckoutBranch checks out a branch in the primary worktree
func (g *FakeGit) CheckoutBranch(_ context.Context, branch string) error {
	if _, ok := g.branches[branch]; !ok {
		return wserrors.NewBranchNotFoundError(branch)
	}
	for _, wt := range g.worktrees {
		if wt.Branch == branch && wt.Path != g.root {
			return fmt.Errorf("failed to checkout %s: already checked out at %s", branch, wt.Path)
		}
	}
	g.current = branch
	for i := range g.worktrees {
		if g.worktrees[i].Path == g.root {
			g.worktrees[i].Branch = branch
			g.worktrees[i].Head = g.branches[branch]
		}
	}
	g.record("checkout " + branch)
	return nil
}

// HasUncommittedChanges reports whether the primary worktree is dirty
func (g *FakeGit) HasUncommittedChanges(ctx context.Context) (bool, error) {
	return g.WorktreeHasUncommittedChanges(ctx, g.root)
}

// WorktreeHasUncommittedChanges reports whether the worktree at path is dirty
func (g *FakeGit) WorktreeHasUncommittedChanges(_ context.Context, path string) (bool, error) {
	return g.dirtyPaths[path], nil
}

// StageAll stages every change in the working directory
func (g *FakeGit) StageAll(_ context.Context) error {
	g.record("stage all")
	return nil
}

// CommitStaged commits the staged changes, advancing the current branch head
func (g *FakeGit) CommitStaged(_ context.Context, message string) error {
	if g.current == "" {
		return wserrors.ErrNotOnBranch
	}
	g.rebaseSeq++
	g.branches[g.current] = fmt.Sprintf("sha-%s-c%d", g.current, g.rebaseSeq)
	g.dirtyPaths[g.root] = false
	g.record("commit " + message)
	return nil
}

// Fetch records a fetch from remote
func (g *FakeGit) Fetch(_ context.Context, remote string) error {
	g.record("fetch " + remote)
	return nil
}

// PullFFOnly fast-forwards branch to the remote head when possible
func (g *FakeGit) PullFFOnly(_ context.Context, remote, branch string) (PullResult, error) {
	local, ok := g.branches[branch]
	if !ok {
		return PullDiverged, wserrors.NewBranchNotFoundError(branch)
	}
	if g.diverged[branch] {
		return PullDiverged, nil
	}
	remoteHead, ok := g.remoteHeads[branch]
	if !ok || remoteHead == local {
		return PullUnneeded, nil
	}
	g.branches[branch] = remoteHead
	for i := range g.worktrees {
		if g.worktrees[i].Branch == branch {
			g.worktrees[i].Head = remoteHead
		}
	}
	g.record(fmt.Sprintf("pull --ff-only %s %s", remote, branch))
	return PullDone, nil
}

// Push records a push of branch to remote
func (g *FakeGit) Push(_ context.Context, remote, branch string) error {
	g.remoteHeads[branch] = g.branches[branch]
	g.record(fmt.Sprintf("push %s %s", remote, branch))
	return nil
}

// RebaseOnto rebases branch onto the given base, or pauses on a scripted conflict
func (g *FakeGit) RebaseOnto(_ context.Context, branch, onto, _ string) (RebaseResult, error) {
	if _, ok := g.branches[branch]; !ok {
		return RebaseConflict, wserrors.NewBranchNotFoundError(branch)
	}
	g.record(fmt.Sprintf("rebase %s onto %s", branch, onto))
	if g.conflictOnRebase[branch] {
		delete(g.conflictOnRebase, branch)
		g.rebasing = true
		g.rebasingBranch = branch
		if len(g.conflicted) == 0 {
			g.conflicted = []ConflictedFile{{Path: branch + ".txt", Type: ConflictBothModified}}
		}
		return RebaseConflict, nil
	}
	g.rebaseSeq++
	g.branches[branch] = fmt.Sprintf("sha-%s-r%d", branch, g.rebaseSeq)
	return RebaseDone, nil
}

// RebaseContinue continues the in-progress rebase, conflicts permitting
func (g *FakeGit) RebaseContinue(_ context.Context) (RebaseResult, error) {
	if !g.rebasing {
		return RebaseConflict, fmt.Errorf("rebase continue failed: no rebase in progress")
	}
	if len(g.conflicted) > 0 {
		return RebaseConflict, nil
	}
	g.rebaseSeq++
	g.branches[g.rebasingBranch] = fmt.Sprintf("sha-%s-r%d", g.rebasingBranch, g.rebaseSeq)
	g.rebasing = false
	g.rebasingBranch = ""
	g.record("rebase continue")
	return RebaseDone, nil
}

// RebaseAbort aborts the in-progress rebase
func (g *FakeGit) RebaseAbort(_ context.Context) error {
	if !g.rebasing {
		return fmt.Errorf("rebase abort failed: no rebase in progress")
	}
	g.rebasing = false
	g.rebasingBranch = ""
	g.conflicted = nil
	g.record("rebase abort")
	return nil
}

// ConflictedPaths returns the currently conflicted paths
func (g *FakeGit) ConflictedPaths(_ context.Context) ([]ConflictedFile, error) {
	return append([]ConflictedFile(nil), g.conflicted...), nil
}
