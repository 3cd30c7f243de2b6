package scheduler

import (
	"container/heap"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-grow/internal/action"
	"github.com/nerrad567/gray-logic-grow/internal/clock"
)

// Logger defines the logging interface used by the scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Handler is invoked once per entry when it falls due. Dispatch failures
// are the handler's concern; the loop always moves on to the next entry.
type Handler func(ctx context.Context, entry action.Entry)

// Scheduler is a time-ordered queue of pending entries.
//
// Thread Safety:
//   - Insert, Cancel, Pending and Len are safe from any goroutine and wake
//     a sleeping loop.
//   - Only one Run or Serve loop may be active at a time.
type Scheduler struct {
	mu      sync.Mutex
	items   itemHeap
	seq     uint64
	running bool

	clock   clock.Clock
	sleeper clock.Sleeper
	wake    chan struct{}
	logger  Logger
}

// New creates an empty Scheduler.
//
// Parameters:
//   - c: Clock that decides when an entry is due
//   - s: Sleeper that blocks the loop until the next due time
//
// Returns:
//   - *Scheduler: Empty scheduler with a no-op logger
func New(c clock.Clock, s clock.Sleeper) *Scheduler {
	return &Scheduler{
		clock:   c,
		sleeper: s,
		wake:    make(chan struct{}, 1),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	s.logger = logger
}

// Insert adds entry and returns a handle for Cancel. Entries in the past
// are due immediately.
func (s *Scheduler) Insert(entry action.Entry) *Item {
	s.mu.Lock()
	s.seq++
	it := &Item{entry: entry, seq: s.seq, owner: s}
	heap.Push(&s.items, it)
	s.mu.Unlock()

	s.signal()
	return it
}

// Cancel removes a pending entry. It returns false if the entry was
// already handed to the handler, already cancelled, or belongs to another
// scheduler.
func (s *Scheduler) Cancel(it *Item) bool {
	if it == nil || it.owner != s {
		return false
	}

	s.mu.Lock()
	if it.index < 0 {
		s.mu.Unlock()
		return false
	}
	heap.Remove(&s.items, it.index)
	s.mu.Unlock()

	s.signal()
	return true
}

// Len returns the number of pending entries.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Pending returns a copy of the pending entries in dispatch order.
func (s *Scheduler) Pending() []action.Entry {
	s.mu.Lock()
	items := make([]*Item, len(s.items))
	copy(items, s.items)
	s.mu.Unlock()

	sort.Slice(items, func(i, j int) bool { return items[i].less(items[j]) })

	out := make([]action.Entry, len(items))
	for i, it := range items {
		out[i] = it.entry
	}
	return out
}

// Run handles entries in order until none remain, then returns nil.
// If ctx is cancelled first, the remaining entries are discarded and
// ctx.Err() is returned.
func (s *Scheduler) Run(ctx context.Context, h Handler) error {
	return s.loop(ctx, h, true)
}

// Serve is like Run but keeps waiting for new entries when the queue is
// empty. It returns only when ctx is cancelled.
func (s *Scheduler) Serve(ctx context.Context, h Handler) error {
	return s.loop(ctx, h, false)
}

func (s *Scheduler) loop(ctx context.Context, h Handler, stopWhenEmpty bool) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrRunning
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for {
		if err := ctx.Err(); err != nil {
			s.discard()
			return err
		}

		it, wait, empty := s.head()
		if empty {
			if stopWhenEmpty {
				return nil
			}
			select {
			case <-s.wake:
			case <-ctx.Done():
			}
			continue
		}

		if wait > 0 {
			s.logger.Debug("sleeping until next entry",
				"command", it.entry.Command,
				"due", it.entry.At,
				"wait", wait,
			)
			s.sleep(ctx, wait)
			continue
		}

		if !s.take(it) {
			continue // head changed under us
		}

		// The in-flight entry is finished even if the run is cancelled
		// meanwhile; the transport bounds it with its own timeout.
		h(context.WithoutCancel(ctx), it.entry)
	}
}

// head peeks at the earliest entry and how long until it is due.
func (s *Scheduler) head() (it *Item, wait time.Duration, empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return nil, 0, true
	}
	it = s.items[0]
	return it, max(0, it.entry.At.Sub(s.clock.Now())), false
}

// take removes it if it is still the head.
func (s *Scheduler) take(it *Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 || s.items[0] != it {
		return false
	}
	heap.Pop(&s.items)
	return true
}

// sleep waits for d, returning early on Insert, Cancel or ctx.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) {
	sleepCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.wake:
			cancel()
		case <-done:
		}
	}()

	if err := s.sleeper.Sleep(sleepCtx, d); err != nil && ctx.Err() == nil && sleepCtx.Err() == nil {
		s.logger.Warn("sleeper failed", "error", err)
	}
}

// discard drops every pending entry.
func (s *Scheduler) discard() {
	s.mu.Lock()
	n := len(s.items)
	for _, it := range s.items {
		it.index = -1
	}
	s.items = nil
	s.mu.Unlock()

	if n > 0 {
		s.logger.Info("run cancelled, discarding pending entries", "count", n)
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
