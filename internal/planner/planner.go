package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/nerrad567/gray-logic-grow/internal/action"
	"github.com/nerrad567/gray-logic-grow/internal/clock"
	"github.com/nerrad567/gray-logic-grow/internal/command"
	"github.com/nerrad567/gray-logic-grow/internal/scheduler"
)

// Logger defines the logging interface used by the Planner.
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

// Source returns the requests to plan. It is called once per plan.
type Source func() ([]action.Request, error)

// ActorManual is the actor recorded for manual commands.
const ActorManual = "manual"

// MetaRunID tags every planned entry with the plan that produced it.
const MetaRunID = "run_id"

// manualPriority sorts manual commands ahead of scheduled entries due at
// the same instant.
const manualPriority = 0

// Refresher reloads the entity registry. entity.Registry implements it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Options configures a Planner.
type Options struct {
	Source    Source
	Scheduler *scheduler.Scheduler
	Handler   scheduler.Handler
	// Entities is refreshed before each plan so entity edits reach a
	// running daemon. Optional.
	Entities Refresher
	Clock    clock.Clock
	// Sleeper waits between daemon plans. Defaults to clock.Real.
	Sleeper  clock.Sleeper
	Location *time.Location
	// PlanCron is a standard five-field cron expression. Empty means
	// "0 0 * * *".
	PlanCron string
}

// Result summarises one plan.
type Result struct {
	RunID    string    `json:"run_id"`
	Day      time.Time `json:"day"`
	Inserted int       `json:"inserted"`
	// Elapsed counts requests skipped because their window had already
	// closed when the plan was made.
	Elapsed int `json:"elapsed"`
	// Err joins per-request resolution failures. Valid requests are still
	// inserted.
	Err error `json:"-"`
}

// Planner resolves schedules into the scheduler.
//
// Thread Safety:
//   - Manual, HandleCommandMessage, NextPlan and LastPlan are safe while
//     Daemon is running.
type Planner struct {
	source   Source
	resolver *action.Resolver
	sched    *scheduler.Scheduler
	handler  scheduler.Handler
	entities Refresher
	clock    clock.Clock
	sleeper  clock.Sleeper
	loc      *time.Location
	cron     cron.Schedule
	logger   Logger

	mu      sync.Mutex
	planned map[string]bool
	last    *Result
}

// New validates opts and creates a Planner.
//
// Parameters:
//   - opts: Source, Scheduler and Handler are required; the rest default
//     (real clock, local time, midnight plan cron)
//
// Returns:
//   - *Planner: Ready to Plan, Run or Daemon
//   - error: ErrInvalidCron if PlanCron does not parse
func New(opts Options) (*Planner, error) {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Sleeper == nil {
		opts.Sleeper = clock.Real{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.PlanCron == "" {
		opts.PlanCron = "0 0 * * *"
	}
	every, err := cron.ParseStandard(opts.PlanCron)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidCron, opts.PlanCron, err)
	}

	return &Planner{
		source:   opts.Source,
		resolver: action.NewResolver(opts.Location),
		sched:    opts.Scheduler,
		handler:  opts.Handler,
		entities: opts.Entities,
		clock:    opts.Clock,
		sleeper:  opts.Sleeper,
		loc:      opts.Location,
		cron:     every,
		logger:   noopLogger{},
		planned:  make(map[string]bool),
	}, nil
}

// SetLogger sets the logger for the planner.
func (p *Planner) SetLogger(logger Logger) {
	p.logger = logger
}

// Preview resolves the schedule for day without inserting anything.
func (p *Planner) Preview(day time.Time) ([]action.Entry, error) {
	reqs, err := p.source()
	if err != nil {
		return nil, fmt.Errorf("loading schedule: %w", err)
	}
	return p.resolver.ResolveAll(reqs, day.In(p.loc))
}

// Plan refreshes the entity registry, resolves the schedule for day and
// inserts the entries. A failed refresh keeps the previous entity list.
// With dropElapsed set, requests whose entries are all at or before now
// are skipped so a restarted daemon does not replay the morning. Requests
// whose window is still open keep both entries; the start fires
// immediately.
func (p *Planner) Plan(ctx context.Context, day time.Time, dropElapsed bool) (*Result, error) {
	if p.entities != nil {
		if err := p.entities.Refresh(ctx); err != nil {
			p.logger.Warn("entity refresh failed, keeping cached entities", "error", err)
		}
	}

	reqs, err := p.source()
	if err != nil {
		return nil, fmt.Errorf("loading schedule: %w", err)
	}

	day = day.In(p.loc)
	res := &Result{RunID: uuid.NewString(), Day: midnight(day)}
	now := p.clock.Now()

	var errs []error
	for i, req := range reqs {
		entries, err := p.resolver.Resolve(req, day)
		if err != nil {
			errs = append(errs, fmt.Errorf("request %d (%s): %w", i, req.Kind, err))
			p.logger.Warn("skipping invalid request", "index", i, "kind", req.Kind.String(), "error", err)
			continue
		}
		if dropElapsed && allBefore(entries, now) {
			res.Elapsed++
			continue
		}
		for _, e := range entries {
			e.Metadata[MetaRunID] = res.RunID
			p.sched.Insert(e)
			res.Inserted++
		}
	}
	res.Err = errors.Join(errs...)

	p.mu.Lock()
	p.planned[dayKey(day)] = true
	p.last = res
	p.mu.Unlock()

	p.logger.Info("schedule planned",
		"day", dayKey(day),
		"run_id", res.RunID,
		"inserted", res.Inserted,
		"elapsed", res.Elapsed,
		"invalid", len(errs),
	)
	return res, nil
}

// Run plans day and dispatches every entry, returning when the queue is
// empty or ctx is cancelled.
func (p *Planner) Run(ctx context.Context, day time.Time) (*Result, error) {
	res, err := p.Plan(ctx, day, false)
	if err != nil {
		return nil, err
	}
	if err := p.sched.Run(ctx, p.handler); err != nil {
		return res, err
	}
	return res, nil
}

// Daemon plans today, then serves until ctx is cancelled, planning each
// following day when the cron expression fires. Windows from yesterday
// that are still open at start-up (a light crossing midnight) are planned
// too.
func (p *Planner) Daemon(ctx context.Context) error {
	now := p.clock.Now().In(p.loc)
	if _, err := p.Plan(ctx, midnight(now).AddDate(0, 0, -1), true); err != nil {
		return err
	}
	if _, err := p.Plan(ctx, now, true); err != nil {
		return err
	}

	// If the next cron fire only covers the day after tomorrow, tomorrow
	// has to be planned now.
	tomorrow := midnight(now).AddDate(0, 0, 1)
	if next := p.cron.Next(now); targetDay(next).After(tomorrow) {
		if _, err := p.Plan(ctx, tomorrow, false); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.replanLoop(ctx)
	}()

	err := p.sched.Serve(ctx, p.handler)
	cancel()
	wg.Wait()
	return err
}

func (p *Planner) replanLoop(ctx context.Context) {
	for {
		now := p.clock.Now().In(p.loc)
		next := p.cron.Next(now)
		p.logger.Debug("next plan", "at", next)

		if err := p.sleeper.Sleep(ctx, next.Sub(now)); err != nil {
			return
		}

		day := targetDay(next)
		if p.isPlanned(day) {
			continue
		}
		if _, err := p.Plan(ctx, day, false); err != nil {
			p.logger.Error("planning failed", "day", dayKey(day), "error", err)
		}
	}
}

// NextPlan returns when the daemon will plan next, and which day.
func (p *Planner) NextPlan() (at, day time.Time) {
	at = p.cron.Next(p.clock.Now().In(p.loc))
	return at, targetDay(at)
}

// LastPlan returns the most recent plan result, or nil.
func (p *Planner) LastPlan() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return nil
	}
	r := *p.last
	return &r
}

// Manual schedules tok to run now, ahead of scheduled entries due at the
// same instant.
func (p *Planner) Manual(tok command.Token, attrs map[string]string) *scheduler.Item {
	meta := make(map[string]string, len(attrs)+2)
	maps.Copy(meta, attrs)
	meta[action.MetaAction] = ActorManual
	meta[action.MetaCommand] = string(tok)

	p.logger.Info("manual command queued", "command", string(tok))
	return p.sched.Insert(action.Entry{
		At:       p.clock.Now(),
		Priority: manualPriority,
		Command:  tok,
		Metadata: meta,
	})
}

type commandMessage struct {
	Command string            `json:"command"`
	Source  string            `json:"source,omitempty"`
	Extra   map[string]string `json:"metadata,omitempty"`
}

// HandleCommandMessage accepts {"command":"pump_on"} payloads from the
// MQTT command topic.
func (p *Planner) HandleCommandMessage(topic string, payload []byte) error {
	var msg commandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	tok, err := command.Parse(msg.Command)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	attrs := msg.Extra
	if msg.Source != "" {
		if attrs == nil {
			attrs = make(map[string]string, 1)
		}
		attrs["source"] = msg.Source
	}
	p.logger.Debug("command message received", "topic", topic)
	p.Manual(tok, attrs)
	return nil
}

func (p *Planner) isPlanned(day time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.planned[dayKey(day)]
}

func allBefore(entries []action.Entry, now time.Time) bool {
	for _, e := range entries {
		if e.At.After(now) {
			return false
		}
	}
	return true
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// targetDay is the first day starting at or after t: a fire exactly at
// midnight plans that day, any later fire plans the next one.
func targetDay(t time.Time) time.Time {
	m := midnight(t)
	if t.Equal(m) {
		return m
	}
	return m.AddDate(0, 0, 1)
}

func dayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
