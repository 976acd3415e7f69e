package stack

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// FakeTool is the in-memory Tool implementation used in tests. Stack shape
// is declared up front as a parent map and every mutation is recorded.
type FakeTool struct {
	parents   map[string]string
	failures  map[string]error
	restacks  [][]string
	submits   []string
	syncs     int
	mutations []string
	onCall    func(op string)
}

// NewFakeTool creates an empty fake stack tool
func NewFakeTool() *FakeTool {
	return &FakeTool{
		parents:  map[string]string{},
		failures: map[string]error{},
	}
}

// SetParent declares that branch is stacked on parent
func (t *FakeTool) SetParent(branch, parent string) {
	t.parents[branch] = parent
}

// RemoveBranch forgets a branch entirely, simulating the tool untracking it
func (t *FakeTool) RemoveBranch(branch string) {
	delete(t.parents, branch)
}

// FailOn makes the named operation ("restack", "submit", "sync") return err
func (t *FakeTool) FailOn(op string, err error) {
	t.failures[op] = err
}

// SetOnCall installs a hook invoked with a description of every mutation
func (t *FakeTool) SetOnCall(fn func(op string)) {
	t.onCall = fn
}

// Restacks returns every Restack call made, in order
func (t *FakeTool) Restacks() [][]string {
	return append([][]string(nil), t.restacks...)
}

// Submits returns every branch submitted, in order
func (t *FakeTool) Submits() []string {
	return append([]string(nil), t.submits...)
}

// SyncCount returns how many times SyncTrunk was called
func (t *FakeTool) SyncCount() int {
	return t.syncs
}

// Mutations returns every mutation performed, in order
func (t *FakeTool) Mutations() []string {
	return append([]string(nil), t.mutations...)
}

func (t *FakeTool) record(op string) {
	t.mutations = append(t.mutations, op)
	if t.onCall != nil {
		t.onCall(op)
	}
}

// Parent returns the declared parent of branch, or "" when untracked
func (t *FakeTool) Parent(_ context.Context, branch string) (string, error) {
	return t.parents[branch], nil
}

// Children returns the branches whose declared parent is branch, sorted
func (t *FakeTool) Children(_ context.Context, branch string) ([]string, error) {
	var children []string
	for child, parent := range t.parents {
		if parent == branch {
			children = append(children, child)
		}
	}
	sort.Strings(children)
	return children, nil
}

// Restack records the restack request
func (t *FakeTool) Restack(_ context.Context, branches []string) error {
	if err := t.failures["restack"]; err != nil {
		return err
	}
	t.restacks = append(t.restacks, append([]string(nil), branches...))
	t.record("restack " + strings.Join(branches, " "))
	return nil
}

// Submit records the submit request
func (t *FakeTool) Submit(_ context.Context, branch string) error {
	if err := t.failures["submit"]; err != nil {
		return err
	}
	t.submits = append(t.submits, branch)
	t.record("submit " + branch)
	return nil
}

// SyncTrunk records the sync request
func (t *FakeTool) SyncTrunk(_ context.Context) error {
	if err := t.failures["sync"]; err != nil {
		return err
	}
	t.syncs++
	t.record(fmt.Sprintf("sync %d", t.syncs))
	return nil
}
