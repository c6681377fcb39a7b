package mvi

import "context"

// Strategy decides what happens when a job is launched on a lane that is
// still running a previous one.
type Strategy int

const (
	// Merge runs every job concurrently (flatMap-merge).
	Merge Strategy = iota
	// Latest cancels the running job and discards its undelivered changes
	// (flatMap-latest).
	Latest
	// First drops the new job while one is running (flatMap-first).
	First
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case Merge:
		return "merge"
	case Latest:
		return "latest"
	case First:
		return "first"
	default:
		return "unknown"
	}
}

// Lane is one independently cancellable sub-stream of a Store.
// A lane is owned by the store loop: only use it from a Processor.
type Lane struct {
	name     string
	strategy Strategy
	running  map[*job]struct{}
}

// NewLane creates an idle lane.
func NewLane(name string, strategy Strategy) *Lane {
	return &Lane{
		name:     name,
		strategy: strategy,
		running:  make(map[*job]struct{}),
	}
}

// Name returns the lane name.
func (l *Lane) Name() string { return l.name }

// Busy reports whether a job launched on the lane has not finished yet.
func (l *Lane) Busy() bool { return len(l.running) > 0 }

// job is a single launched unit of work. stale is only touched by the loop.
type job struct {
	lane   *Lane
	id     uint64
	cancel context.CancelFunc
	stale  bool
}
