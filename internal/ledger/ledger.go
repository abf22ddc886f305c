// Package ledger drives a ledger(1) REPL subprocess. One session owns the
// process; commands are written to its stdin one at a time, each followed by
// an echo of a sentinel line that marks where the command's stdout ends.
// Responses stream back as events, so megabyte dumps never accumulate in
// memory.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const marker = "__END_OF_RESPONSE__"

// DefaultQueueSize bounds how many commands may wait for the session at once.
const DefaultQueueSize = 16

type DateFormat int

const (
	// DateISO makes dumps print dates as YYYY-MM-DD.
	DateISO DateFormat = iota
	// DateEpochSeconds makes dumps print dates as Unix seconds.
	DateEpochSeconds
)

// Config describes how to run the ledger binary.
type Config struct {
	// Command is the binary to run. Defaults to "ledger".
	Command string
	// File is passed as `-f File` when set; otherwise the binary reads its
	// own environment for a journal.
	File string
	// QueueSize caps pending commands. Defaults to DefaultQueueSize.
	QueueSize int
	// DateFormat selects how Transactions asks for dates.
	DateFormat DateFormat
	Logger     *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.Command == "" {
		c.Command = "ledger"
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("ledger: session closed")

// Handle is a live session. All commands funnel through one worker
// goroutine, so responses never interleave.
type Handle struct {
	cfg    Config
	logger *zap.Logger

	commands chan *request
	closing  chan struct{}
	closed   chan struct{}

	// mu gates admission: Close flips stopped under the write lock, so
	// every command admitted before shutdown is already queued when the
	// worker drains.
	mu      sync.RWMutex
	stopped bool

	once     sync.Once
	closeErr error
}

type request struct {
	command string
	resp    *Response
}

// Start launches the binary and waits for it to answer a first sentinel.
// Whatever banner noise the tool prints on startup is discarded.
func Start(cfg Config) (*Handle, error) {
	cfg = cfg.withDefaults()
	proc, err := startProcess(cfg)
	if err != nil {
		return nil, err
	}
	h, err := start(cfg, proc)
	if err != nil {
		_ = proc.kill()
		_ = proc.wait()
		return nil, err
	}
	return h, nil
}

func start(cfg Config, proc *process) (*Handle, error) {
	h := &Handle{
		cfg:      cfg,
		logger:   cfg.Logger,
		commands: make(chan *request, cfg.QueueSize),
		closing:  make(chan struct{}),
		closed:   make(chan struct{}),
	}
	w := &worker{
		handle: h,
		stdin:  proc.stdin,
		wait:   proc.wait,
		stdout: make(chan readResult),
		stderr: make(chan readResult),
		logger: cfg.Logger,
	}
	go pump(proc.stdout, w.stdout, h.closed)
	go pump(proc.stderr, w.stderr, h.closed)
	if err := w.prime(); err != nil {
		close(h.closed)
		return nil, err
	}
	h.logger.Info("ledger session started",
		zap.String("command", cfg.Command),
		zap.String("file", cfg.File))
	go w.run()
	return h, nil
}

// Send queues a command. ctx covers only admission to the queue; once
// accepted, the command runs to completion and its events arrive on the
// returned Response. Abandoning the Response discards the rest of its
// output without desynchronizing the session.
func (h *Handle) Send(ctx context.Context, command string) (*Response, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.stopped {
		return nil, ErrClosed
	}
	req := &request{command: command, resp: newResponse()}
	select {
	case h.commands <- req:
		return req.resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stream runs a command and returns its stdout line by line.
func (h *Handle) Stream(ctx context.Context, command string) (*Lines, error) {
	resp, err := h.Send(ctx, command)
	if err != nil {
		return nil, err
	}
	return &Lines{resp: resp}, nil
}

// Command runs a command and collects its whole stdout. Prefer Stream for
// output that may not fit in memory.
func (h *Handle) Command(ctx context.Context, command string) ([]string, error) {
	lines, err := h.Stream(ctx, command)
	if err != nil {
		return nil, err
	}
	defer lines.Close()
	var out []string
	for lines.Scan() {
		out = append(out, lines.Text())
	}
	return out, lines.Err()
}

// Transactions dumps the journal and decodes it transaction by transaction.
// Extra query terms narrow the dump the same way they would on the command
// line.
func (h *Handle) Transactions(ctx context.Context, query ...string) (*TransactionScanner, error) {
	resp, err := h.Send(ctx, h.dumpCommand(query))
	if err != nil {
		return nil, err
	}
	return newTransactionScanner(resp), nil
}

func (h *Handle) dumpCommand(query []string) string {
	format := "%Y-%m-%d"
	if h.cfg.DateFormat == DateEpochSeconds {
		format = "%s"
	}
	parts := append([]string{"--date-format", format, "emacs"}, query...)
	return strings.Join(parts, " ")
}

// Close stops accepting commands, serves the ones already queued, then
// closes the tool's stdin and waits for it to exit.
func (h *Handle) Close() error {
	h.once.Do(func() {
		h.mu.Lock()
		h.stopped = true
		h.mu.Unlock()
		close(h.closing)
	})
	<-h.closed
	return h.closeErr
}

func ioError(stream string, err error) Event {
	return Event{Kind: EventError, Err: fmt.Errorf("%s closed: %w", stream, err)}
}
