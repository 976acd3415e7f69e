// Package forest manages named groups of worktrees bound to one branch
// stack: the persisted registry plus the split and merge operators that
// convert between one-worktree-per-stack and one-worktree-per-branch.
package forest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"workstack.dev/workstack/internal/config"
	wserrors "workstack.dev/workstack/internal/errors"
	"workstack.dev/workstack/internal/git"
	"workstack.dev/workstack/internal/stack"
)

const registryFileName = "workstack_forests.json"

// Forest is a named grouping of worktrees believed to correspond to one
// branch stack. The name is a label only; renaming never moves a worktree.
type Forest struct {
	Name      string    `json:"name"`
	Worktrees []string  `json:"worktrees"`
	CreatedAt time.Time `json:"createdAt"`
}

// registryFile is the on-disk shape of the registry
type registryFile struct {
	SchemaVersion int       `json:"schemaVersion"`
	Forests       []*Forest `json:"forests"`
}

const registrySchemaVersion = 1

// Registry is the persisted forest registry of one repository, stored as
// JSON under .git so it travels with the repository but not its history.
type Registry struct {
	repoRoot string
	dryRun   bool
}

// NewRegistry creates a Registry for the repository at repoRoot
func NewRegistry(repoRoot string) *Registry {
	return &Registry{repoRoot: repoRoot}
}

// WithDryRun returns a view of the registry that reads normally but skips
// every write, matching the dry-run capability wrappers.
func (r *Registry) WithDryRun() *Registry {
	return &Registry{repoRoot: r.repoRoot, dryRun: true}
}

func (r *Registry) path() string {
	return filepath.Join(r.repoRoot, ".git", registryFileName)
}

// load reads the registry; a missing file is an empty registry
func (r *Registry) load() (*registryFile, error) {
	data, err := os.ReadFile(r.path())
	if err != nil {
		if os.IsNotExist(err) {
			return &registryFile{SchemaVersion: registrySchemaVersion}, nil
		}
		return nil, fmt.Errorf("failed to read forest registry: %w", err)
	}

	var file registryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse forest registry: %w", err)
	}
	return &file, nil
}

func (r *Registry) save(file *registryFile) error {
	if r.dryRun {
		return nil
	}
	file.SchemaVersion = registrySchemaVersion
	sort.Slice(file.Forests, func(i, j int) bool { return file.Forests[i].Name < file.Forests[j].Name })
	return config.WriteJSONAtomic(r.path(), file)
}

// List returns every forest, sorted by name
func (r *Registry) List() ([]*Forest, error) {
	file, err := r.load()
	if err != nil {
		return nil, err
	}
	sort.Slice(file.Forests, func(i, j int) bool { return file.Forests[i].Name < file.Forests[j].Name })
	return file.Forests, nil
}

// Get returns the forest with the given name
func (r *Registry) Get(name string) (*Forest, error) {
	file, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, f := range file.Forests {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("forest %s does not exist", name)
}

// Create adds a new forest containing the given worktrees
func (r *Registry) Create(name string, worktrees ...string) (*Forest, error) {
	file, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, f := range file.Forests {
		if f.Name == name {
			return nil, fmt.Errorf("forest %s already exists", name)
		}
	}
	forest := &Forest{Name: name, Worktrees: worktrees, CreatedAt: time.Now().UTC()}
	file.Forests = append(file.Forests, forest)
	if err := r.save(file); err != nil {
		return nil, err
	}
	return forest, nil
}

// Rename changes a forest's label. The member worktree paths are asserted
// unchanged before and after; a rename never moves anything on disk.
func (r *Registry) Rename(oldName, newName string) error {
	file, err := r.load()
	if err != nil {
		return err
	}
	var target *Forest
	for _, f := range file.Forests {
		if f.Name == newName {
			return fmt.Errorf("forest %s already exists", newName)
		}
		if f.Name == oldName {
			target = f
		}
	}
	if target == nil {
		return fmt.Errorf("forest %s does not exist", oldName)
	}

	before := append([]string(nil), target.Worktrees...)
	target.Name = newName
	if len(target.Worktrees) != len(before) {
		return wserrors.NewInternalError("forest rename changed the member worktree set", nil)
	}
	for i := range before {
		if target.Worktrees[i] != before[i] {
			return wserrors.NewInternalError("forest rename changed a member worktree path", nil)
		}
	}
	return r.save(file)
}

// AddWorktrees adds worktree paths to a forest
func (r *Registry) AddWorktrees(name string, paths ...string) error {
	file, err := r.load()
	if err != nil {
		return err
	}
	for _, f := range file.Forests {
		if f.Name != name {
			continue
		}
		for _, p := range paths {
			if !containsString(f.Worktrees, p) {
				f.Worktrees = append(f.Worktrees, p)
			}
		}
		sort.Strings(f.Worktrees)
		return r.save(file)
	}
	return fmt.Errorf("forest %s does not exist", name)
}

// RemoveWorktree removes a worktree path from whichever forest holds it.
// The forest record itself is left in place even when it becomes empty;
// garbage collection runs only during sync.
func (r *Registry) RemoveWorktree(path string) error {
	file, err := r.load()
	if err != nil {
		return err
	}
	changed := false
	for _, f := range file.Forests {
		for i, p := range f.Worktrees {
			if p == path {
				f.Worktrees = append(f.Worktrees[:i], f.Worktrees[i+1:]...)
				changed = true
				break
			}
		}
	}
	if !changed {
		return nil
	}
	return r.save(file)
}

// GarbageCollect deletes forests with no member worktrees and returns the
// names deleted. Run only at the end of a sync operation, so a forest that
// is transiently empty mid split/merge is never collected.
func (r *Registry) GarbageCollect() ([]string, error) {
	file, err := r.load()
	if err != nil {
		return nil, err
	}

	var kept []*Forest
	var deleted []string
	for _, f := range file.Forests {
		if len(f.Worktrees) == 0 {
			deleted = append(deleted, f.Name)
			continue
		}
		kept = append(kept, f)
	}
	if len(deleted) == 0 {
		return nil, nil
	}

	file.Forests = kept
	if err := r.save(file); err != nil {
		return nil, err
	}
	sort.Strings(deleted)
	return deleted, nil
}

// Resolve determines which forest the worktree at path belongs to, by
// walking the stack lineage of the worktree's branch and matching the
// chain's branches against registered worktrees. A chain whose worktrees
// span more than one forest is reported as ambiguous.
func (r *Registry) Resolve(ctx context.Context, g git.Git, t stack.Tool, trunk, path string) (*Forest, error) {
	worktrees, err := g.ListWorktrees(ctx)
	if err != nil {
		return nil, err
	}

	var branch string
	for _, wt := range worktrees {
		if wt.Path == path {
			branch = wt.Branch
		}
	}
	if branch == "" {
		return nil, fmt.Errorf("no worktree at %s", path)
	}

	forests, err := r.List()
	if err != nil {
		return nil, err
	}
	forestOf := map[string]*Forest{}
	for _, f := range forests {
		for _, p := range f.Worktrees {
			forestOf[p] = f
		}
	}

	chain := []string{branch}
	if branch != trunk {
		chain, err = stack.Chain(ctx, t, trunk, branch)
		if err != nil {
			return nil, err
		}
	}

	inChain := map[string]bool{}
	for _, b := range chain {
		inChain[b] = true
	}

	matched := map[string]*Forest{}
	for _, wt := range worktrees {
		if !inChain[wt.Branch] {
			continue
		}
		if f, ok := forestOf[wt.Path]; ok {
			matched[f.Name] = f
		}
	}

	switch len(matched) {
	case 0:
		if f, ok := forestOf[path]; ok {
			return f, nil
		}
		return nil, fmt.Errorf("worktree at %s does not belong to any forest", path)
	case 1:
		for _, f := range matched {
			return f, nil
		}
	}

	names := make([]string, 0, len(matched))
	for name := range matched {
		names = append(names, name)
	}
	sort.Strings(names)
	return nil, fmt.Errorf("%w: stack of %s spans forests %v", wserrors.ErrAmbiguousForest, branch, names)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
