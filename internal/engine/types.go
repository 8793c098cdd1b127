package engine

// RestackStatus represents the overall outcome of a restack run
type RestackStatus int

const (
	// RestackDone indicates every branch in the stack is now on its parent's tip
	RestackDone RestackStatus = iota
	// RestackConflicted indicates the run paused on a merge conflict and a
	// session was persisted for continue/abort
	RestackConflicted
)

// RestackResult describes what a restack run did
type RestackResult struct {
	Status         RestackStatus
	Restacked      []string // branches rebased in this run, in order
	Skipped        []string // branches already on their parent's tip
	ConflictBranch string   // set when Status is RestackConflicted
}

// SyncResult describes what a sync run did
type SyncResult struct {
	Restack RestackResult
	Pushed  []string // branches pushed in this run, in order
	Pending []string // branches not pushed because an earlier push was rejected
}
