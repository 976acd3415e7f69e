package git

// Worktree is an isolated working directory bound to exactly one branch.
type Worktree struct {
	// Path is the absolute path of the working directory
	Path string
	// Branch is the branch checked out in the worktree (empty when detached)
	Branch string
	// Head is the commit the worktree currently points at
	Head string
}

// ConflictType classifies an unmerged path as reported by git status
type ConflictType string

const (
	// ConflictBothModified indicates both sides modified the path (UU)
	ConflictBothModified ConflictType = "both-modified"
	// ConflictBothAdded indicates both sides added the path (AA)
	ConflictBothAdded ConflictType = "both-added"
	// ConflictBothDeleted indicates both sides deleted the path (DD)
	ConflictBothDeleted ConflictType = "both-deleted"
	// ConflictAddedByUs indicates only our side added the path (AU)
	ConflictAddedByUs ConflictType = "added-by-us"
	// ConflictAddedByThem indicates only their side added the path (UA)
	ConflictAddedByThem ConflictType = "added-by-them"
	// ConflictDeletedByUs indicates our side deleted the path (DU)
	ConflictDeletedByUs ConflictType = "deleted-by-us"
	// ConflictDeletedByThem indicates their side deleted the path (UD)
	ConflictDeletedByThem ConflictType = "deleted-by-them"
)

// ConflictedFile is a path in merge/rebase conflict state
type ConflictedFile struct {
	Path string
	Type ConflictType
}

// PullResult represents the result of a fast-forward-only pull
type PullResult int

const (
	// PullDone indicates the branch was fast-forwarded
	PullDone PullResult = iota
	// PullUnneeded indicates the branch was already up to date
	PullUnneeded
	// PullDiverged indicates the local branch has independent commits and
	// could not be fast-forwarded
	PullDiverged
)

// RebaseResult represents the result of a rebase operation
type RebaseResult int

const (
	// RebaseDone indicates the rebase was successful
	RebaseDone RebaseResult = iota
	// RebaseConflict indicates a conflict occurred during rebase
	RebaseConflict
)
