package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-grow/internal/clock"
	"github.com/nerrad567/gray-logic-grow/internal/infrastructure/config"
)

// DefaultTimeout bounds one Send when none is configured.
const DefaultTimeout = 5 * time.Second

// Logger defines the logging interface used by the transport.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Transport sends command bytes to the controller, one connection per call.
type Transport struct {
	opener  Opener
	timeout time.Duration
	settle  time.Duration
	sleeper clock.Sleeper
	logger  Logger
}

// New creates a Transport for the configured endpoint.
//
// Parameters:
//   - cfg: Transport configuration (address, baud rate, timeout, settle delay)
//
// Returns:
//   - *Transport: Ready to Send; no port is held between calls
//   - error: ErrTransport if the address cannot be parsed
func New(cfg config.TransportConfig) (*Transport, error) {
	opener, err := ParseAddress(cfg.Address, cfg.BaudRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return NewWithOpener(opener, cfg.Timeout, cfg.SettleDelay), nil
}

// NewWithOpener creates a Transport around an arbitrary Opener.
// A non-positive timeout selects DefaultTimeout.
func NewWithOpener(opener Opener, timeout, settle time.Duration) *Transport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Transport{
		opener:  opener,
		timeout: timeout,
		settle:  settle,
		sleeper: clock.Real{},
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the transport.
func (t *Transport) SetLogger(logger Logger) {
	t.logger = logger
}

// Send opens the endpoint, writes payload and closes it. The port is closed
// on every path. Failures are *Error values wrapping ErrTransport.
func (t *Transport) Send(ctx context.Context, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	port, err := t.opener.Open(ctx)
	if err != nil {
		return newError("open", timeoutCause(ctx, err))
	}

	closer := &onceCloser{c: port}
	defer func() {
		if cerr := closer.Close(); cerr != nil {
			t.logger.Warn("closing controller port", "error", cerr)
		}
	}()

	if t.settle > 0 {
		if err := t.sleeper.Sleep(ctx, t.settle); err != nil {
			return newError("settle", timeoutCause(ctx, err))
		}
	}

	if err := writeContext(ctx, port, closer, payload); err != nil {
		return newError("write", timeoutCause(ctx, err))
	}

	// Serial ports can discard unsent output on close
	if d, ok := port.(interface{ Drain() error }); ok {
		if err := runContext(ctx, closer, d.Drain); err != nil {
			if ctx.Err() != nil {
				return newError("drain", timeoutCause(ctx, err))
			}
			t.logger.Warn("draining controller port", "error", err)
		}
	}

	t.logger.Debug("payload sent", "bytes", len(payload))
	return nil
}

// writeContext writes payload, giving up when ctx is done. Ports that
// support write deadlines get one; others are closed to unblock the write.
func writeContext(ctx context.Context, port Port, closer io.Closer, payload []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		if d, ok := port.(interface{ SetWriteDeadline(time.Time) error }); ok {
			_ = d.SetWriteDeadline(dl) //nolint:errcheck // the goroutine below still bounds the write
		}
	}

	return runContext(ctx, closer, func() error {
		n, err := port.Write(payload)
		if err == nil && n < len(payload) {
			err = io.ErrShortWrite
		}
		return err
	})
}

// runContext runs a blocking port call, closing the port to unblock it
// when ctx is done first.
func runContext(ctx context.Context, closer io.Closer, call func() error) error {
	done := make(chan error, 1)
	go func() { done <- call() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		closer.Close() //nolint:errcheck // unblocks the pending call
		return ctx.Err()
	}
}

// timeoutCause reports a deadline as the reason when it caused err.
func timeoutCause(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}

type onceCloser struct {
	c    io.Closer
	once sync.Once
	err  error
}

func (o *onceCloser) Close() error {
	o.once.Do(func() { o.err = o.c.Close() })
	return o.err
}
