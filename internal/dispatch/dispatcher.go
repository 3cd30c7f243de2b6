package dispatch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-grow/internal/action"
	"github.com/nerrad567/gray-logic-grow/internal/actionlog"
	"github.com/nerrad567/gray-logic-grow/internal/clock"
	"github.com/nerrad567/gray-logic-grow/internal/command"
	"github.com/nerrad567/gray-logic-grow/internal/transport"
)

// Logger defines the logging interface used by the Dispatcher.
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

// Sender delivers encoded commands to the controller.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
}

// Entities supplies the ordered entity ids that receive log records.
type Entities interface {
	IDs() []string
}

// Outcome is the result of one Dispatch.
type Outcome struct {
	State   State
	Entry   action.Entry
	Records []actionlog.Record

	// Err is the encode or transport failure, if any.
	Err error
	// LogErr is the log write failure, if any. It does not change State.
	LogErr error
	// NotifyErr is the fan-out failure, if any.
	NotifyErr error
}

// Stats counts dispatch results since the dispatcher was created.
type Stats struct {
	Logged           uint64    `json:"logged"`
	LoggedFailed     uint64    `json:"logged_failed"`
	Dropped          uint64    `json:"dropped_unknown_command"`
	LogWriteFailures uint64    `json:"log_write_failures"`
	NotifyFailures   uint64    `json:"notify_failures"`
	LastDispatch     time.Time `json:"last_dispatch,omitzero"`
}

// Dispatcher turns due entries into hardware commands and log records.
//
// Thread Safety:
//   - Dispatch is meant to be called from the scheduler loop only; the
//     hardware link takes one command at a time.
//   - Stats is safe to call from any goroutine.
type Dispatcher struct {
	sender   Sender
	entities Entities
	sink     actionlog.Sink
	notifier actionlog.Notifier
	clock    clock.Clock
	newID    func() string
	logger   Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a dispatcher.
//
// Parameters:
//   - sender: Transport that delivers encoded commands to the controller
//   - entities: Registry listing the entities that receive a record
//   - sink: Durable action log (CSV, SQLite or both via actionlog.Multi)
//   - notifier: Event fan-out after logging (may be nil)
//   - c: Clock used for record timestamps
func New(sender Sender, entities Entities, sink actionlog.Sink, notifier actionlog.Notifier, c clock.Clock) *Dispatcher {
	if c == nil {
		c = clock.Real{}
	}
	return &Dispatcher{
		sender:   sender,
		entities: entities,
		sink:     sink,
		notifier: notifier,
		clock:    c,
		newID:    uuid.NewString,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// Handle adapts Dispatch to scheduler.Handler.
func (d *Dispatcher) Handle(ctx context.Context, entry action.Entry) {
	d.Dispatch(ctx, entry)
}

// Dispatch encodes, sends and logs entry.
func (d *Dispatcher) Dispatch(ctx context.Context, entry action.Entry) Outcome {
	out := Outcome{State: StatePending, Entry: entry}
	out.advance(StateDue)

	payload, err := command.Encode(entry.Command)
	if err != nil {
		out.advance(StateDroppedUnknownCommand)
		out.Err = err
		d.logger.Error("dropping entry with unknown command",
			"command", string(entry.Command), "at", entry.At, "error", err)
		d.record(out)
		return out
	}

	out.advance(StateDispatching)
	sendErr := d.sender.Send(ctx, payload)
	now := d.clock.Now()

	metadata := maps.Clone(entry.Metadata)
	if metadata == nil {
		metadata = make(map[string]string)
	}
	status := actionlog.StatusOK
	if sendErr != nil {
		status = actionlog.StatusFailed
		metadata[actionlog.MetaStatus] = actionlog.StatusFailed
		metadata[actionlog.MetaError] = failureReason(sendErr)
		out.Err = sendErr
		d.logger.Error("command send failed",
			"command", string(entry.Command), "error", sendErr)
	} else {
		d.logger.Info("command sent", "command", string(entry.Command), "actor", entry.Actor())
	}

	for _, id := range d.entities.IDs() {
		out.Records = append(out.Records, actionlog.Record{
			ID:        d.newID(),
			EntityID:  id,
			Timestamp: now,
			Actor:     entry.Actor(),
			Command:   string(entry.Command),
			Status:    status,
			Metadata:  maps.Clone(metadata),
		})
	}

	if len(out.Records) > 0 {
		if err := d.sink.Append(ctx, out.Records); err != nil {
			out.LogErr = err
			d.logger.Error("action log write failed",
				"command", string(entry.Command), "records", len(out.Records), "error", err)
		}
	}

	if sendErr != nil {
		out.advance(StateLoggedFailed)
	} else {
		out.advance(StateLogged)
	}

	if d.notifier != nil && len(out.Records) > 0 {
		if err := d.notifier.Notify(ctx, out.Records); err != nil {
			out.NotifyErr = err
			d.logger.Warn("action notification failed", "command", string(entry.Command), "error", err)
		}
	}

	d.record(out)
	return out
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *Dispatcher) record(out Outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch out.State {
	case StateLogged:
		d.stats.Logged++
	case StateLoggedFailed:
		d.stats.LoggedFailed++
	case StateDroppedUnknownCommand:
		d.stats.Dropped++
	}
	if out.LogErr != nil {
		d.stats.LogWriteFailures++
	}
	if out.NotifyErr != nil {
		d.stats.NotifyFailures++
	}
	if out.State != StateDroppedUnknownCommand {
		d.stats.LastDispatch = d.clock.Now()
	}
}

func (o *Outcome) advance(next State) {
	if !o.State.CanTransition(next) {
		panic(fmt.Sprintf("dispatch: invalid transition %s -> %s", o.State, next))
	}
	o.State = next
}

// failureReason prefers the transport's short reason over the full chain.
func failureReason(err error) string {
	var terr *transport.Error
	if errors.As(err, &terr) {
		return terr.Op + ": " + terr.Reason
	}
	return err.Error()
}
