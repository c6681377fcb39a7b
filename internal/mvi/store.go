package mvi

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Change is a partial state change: a unit of state delta that knows how to
// apply itself to the previous state. Reduce must be pure and total.
type Change[S any] interface {
	Reduce(state S) S
}

// Processor turns intents into changes for one screen.
type Processor[I, S, E any] interface {
	// Process handles one intent on the store loop. It may read the current
	// state, emit changes synchronously and launch jobs on lanes.
	Process(sc *Scope[S], intent I)
	// Event returns the single event forwarded for change, if any.
	Event(change Change[S]) (E, bool)
}

// Starter is implemented by processors that emit changes when the store starts.
type Starter[S any] interface {
	Start(sc *Scope[S])
}

// Job is the asynchronous part of an operation. It reports changes through
// emit, which returns false once the job has been cancelled.
type Job[S any] func(ctx context.Context, emit func(Change[S]) bool)

type result[S any] struct {
	job    *job
	change Change[S]
	done   bool
}

// Store runs the intent-to-state pipeline of one screen.
//
// A single loop goroutine is the main context: intents are interpreted,
// changes are reduced, observers are notified and single events are sent
// there, strictly one at a time. Jobs run on their own goroutines and
// deliver their changes back to the loop.
type Store[I, S, E any] struct {
	name      string
	log       *zap.Logger
	processor Processor[I, S, E]
	scope     *Scope[S]

	ctx      context.Context
	cancel   context.CancelFunc
	inbox    *queue[func()]
	results  chan result[S]
	events   *EventChannel[E]
	jobs     sync.WaitGroup
	loopDone chan struct{}
	closed   sync.Once

	snapshot     atomic.Pointer[S]
	nextObserver atomic.Uint64

	// owned by the loop
	state     S
	observers map[uint64]func(S)
	nextJob   uint64
}

// NewStore creates a store folding changes over initial and starts its loop.
func NewStore[I, S, E any](name string, initial S, p Processor[I, S, E], log *zap.Logger) *Store[I, S, E] {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Store[I, S, E]{
		name:      name,
		log:       log.With(zap.String("store", name)),
		processor: p,
		ctx:       ctx,
		cancel:    cancel,
		inbox:     newQueue[func()](),
		results:   make(chan result[S]),
		events:    NewEventChannel[E](),
		loopDone:  make(chan struct{}),
		state:     initial,
		observers: make(map[uint64]func(S)),
	}
	s.scope = &Scope[S]{rt: s}
	s.snapshot.Store(&initial)

	go s.run()
	return s
}

// State returns the latest state.
func (s *Store[I, S, E]) State() S {
	return *s.snapshot.Load()
}

// SingleEvent returns the store's single-event channel.
func (s *Store[I, S, E]) SingleEvent() *EventChannel[E] {
	return s.events
}

// ProcessIntent queues intent for the loop. It never blocks. Calling it
// after Close is a programming error and panics.
func (s *Store[I, S, E]) ProcessIntent(intent I) {
	ok := s.inbox.push(func() {
		s.log.Debug(">>> intent", zap.String("type", fmt.Sprintf("%T", intent)), zap.Any("intent", intent))
		s.processor.Process(s.scope, intent)
	})
	if !ok {
		panic(fmt.Sprintf("mvi: %s: failed to process intent %T: store closed", s.name, intent))
	}
}

// Subscribe registers fn to observe states. fn is first called with the
// current state, then with every new state, always on the loop; it must not
// block or call Close. The returned function unregisters fn.
func (s *Store[I, S, E]) Subscribe(fn func(S)) (unsubscribe func()) {
	id := s.nextObserver.Add(1)
	s.inbox.push(func() {
		s.observers[id] = fn
		fn(s.state)
	})
	return func() {
		s.inbox.push(func() { delete(s.observers, id) })
	}
}

// Close cancels all jobs, stops the loop and closes the event channel.
// It waits for running jobs to return. Close must not be called from the loop.
func (s *Store[I, S, E]) Close() {
	s.closed.Do(func() {
		s.cancel()
		<-s.loopDone
		s.jobs.Wait()
		s.inbox.close()
		s.events.Close()
		s.log.Debug("store closed")
	})
}

func (s *Store[I, S, E]) run() {
	defer close(s.loopDone)

	if st, ok := s.processor.(Starter[S]); ok {
		st.Start(s.scope)
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.inbox.ready:
			for {
				fn, ok := s.inbox.pop()
				if !ok {
					break
				}
				fn()
			}
		case r := <-s.results:
			s.handle(r)
		}
	}
}

func (s *Store[I, S, E]) handle(r result[S]) {
	if r.done {
		delete(r.job.lane.running, r.job)
		return
	}
	if r.job.stale {
		s.log.Debug("dropping change of superseded job",
			zap.String("lane", r.job.lane.name),
			zap.Uint64("job", r.job.id),
			zap.String("change", fmt.Sprintf("%T", r.change)),
		)
		return
	}
	s.apply(r.change)
}

func (s *Store[I, S, E]) apply(c Change[S]) {
	s.log.Debug(">>> change", zap.String("type", fmt.Sprintf("%T", c)))

	s.state = c.Reduce(s.state)
	st := s.state
	s.snapshot.Store(&st)
	s.log.Debug(">>> state", zap.Any("state", st))

	for _, fn := range s.observers {
		fn(st)
	}

	// observers have seen st by the time its event is delivered
	if e, ok := s.processor.Event(c); ok {
		s.log.Debug(">>> single event", zap.String("type", fmt.Sprintf("%T", e)))
		s.events.Send(e)
	}
}

func (s *Store[I, S, E]) current() S { return s.state }

func (s *Store[I, S, E]) launch(l *Lane, run Job[S]) bool {
	switch l.strategy {
	case First:
		if l.Busy() {
			s.log.Debug("lane busy, dropping job", zap.String("lane", l.name))
			return false
		}
	case Latest:
		for j := range l.running {
			j.stale = true
			j.cancel()
			delete(l.running, j)
		}
	}

	s.nextJob++
	ctx, cancel := context.WithCancel(s.ctx)
	j := &job{lane: l, id: s.nextJob, cancel: cancel}
	l.running[j] = struct{}{}

	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		defer cancel()

		run(ctx, func(c Change[S]) bool {
			select {
			case s.results <- result[S]{job: j, change: c}:
				return true
			case <-ctx.Done():
				return false
			}
		})

		select {
		case s.results <- result[S]{job: j, done: true}:
		case <-s.ctx.Done():
		}
	}()
	return true
}

func (s *Store[I, S, E]) schedule(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		// dropped when the store is already closed
		s.inbox.push(fn)
	})
}

// runtime is the loop-side surface a Scope drives.
type runtime[S any] interface {
	current() S
	apply(c Change[S])
	launch(l *Lane, run Job[S]) bool
	schedule(d time.Duration, fn func())
}

// Scope gives a Processor access to the loop. It is only valid on the loop,
// inside Process, Start or an After callback.
type Scope[S any] struct {
	rt runtime[S]
}

// State returns the current state, as folded so far.
func (sc *Scope[S]) State() S {
	return sc.rt.current()
}

// Emit reduces c into the state immediately.
func (sc *Scope[S]) Emit(c Change[S]) {
	sc.rt.apply(c)
}

// Launch starts run on lane l according to the lane strategy. When the job
// is started and start is non-nil, start is emitted before any change of the
// job. Launch reports whether the job was started.
func (sc *Scope[S]) Launch(l *Lane, start Change[S], run Job[S]) bool {
	if !sc.rt.launch(l, run) {
		return false
	}
	if start != nil {
		sc.rt.apply(start)
	}
	return true
}

// After calls fn on the loop once d has elapsed. A non-positive d calls fn
// right away.
func (sc *Scope[S]) After(d time.Duration, fn func(sc *Scope[S])) {
	if d <= 0 {
		fn(sc)
		return
	}
	sc.rt.schedule(d, func() { fn(sc) })
}
