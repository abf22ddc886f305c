package ledger

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// worker serves the command queue against one subprocess. It is the only
// goroutine that touches stdin, and the only consumer of the two pumps.
//
// Streams die independently. A dead stdout fails every later command, since
// the sentinel can never arrive. A dead stderr is final for the command that
// observed it; after that the session runs on stdout alone.
type worker struct {
	handle *Handle
	stdin  io.WriteCloser
	wait   func() error

	stdout chan readResult
	stderr chan readResult
	// Set when the matching channel is nilled out, so later commands can
	// report why the stream is gone.
	stdoutErr error
	stderrErr error

	logger *zap.Logger
}

func (w *worker) run() {
	h := w.handle
	defer close(h.closed)
	for {
		select {
		case req := <-h.commands:
			w.serve(req)
		case <-h.closing:
			for {
				select {
				case req := <-h.commands:
					w.serve(req)
				default:
					h.closeErr = w.shutdown()
					return
				}
			}
		}
	}
}

// prime eats everything both streams produce until the first sentinel, so
// startup banners never leak into the first real response. An EOF on stdout
// here means the binary refused to start a session.
//
// The write runs concurrently: a tool may fill its output pipe with banner
// text before it first reads stdin, so writing and draining cannot be
// sequential.
func (w *worker) prime() error {
	write := make(chan error, 1)
	go func() { write <- w.writeCommand("") }()
	for {
		select {
		case err := <-write:
			if err != nil {
				return fmt.Errorf("prime: %w", err)
			}
			write = nil
		case res := <-w.stdout:
			if res.err != nil {
				w.stdout = nil
				w.stdoutErr = res.err
				return fmt.Errorf("prime: stdout closed: %w", res.err)
			}
			if res.line == marker {
				return nil
			}
		case res := <-w.stderr:
			if res.err != nil {
				w.stderr = nil
				w.stderrErr = res.err
			}
		}
	}
}

func (w *worker) serve(req *request) {
	resp := req.resp
	if w.stdoutErr != nil {
		resp.finish(ioError("stdout", w.stdoutErr))
		return
	}
	started := time.Now()
	w.logger.Debug("ledger command", zap.String("command", req.command))

	if err := w.writeCommand(req.command); err != nil {
		resp.finish(Event{Kind: EventError, Err: fmt.Errorf("write command: %w", err)})
		return
	}

	var stderrLines []string
	dropped := false
	for {
		// Drain stderr first so diagnostics queued behind a busy stdout
		// are in the buffer by the time the sentinel is judged.
		if w.stderr != nil {
			select {
			case res := <-w.stderr:
				if ev, terminal := w.stderrResult(res, &stderrLines); terminal {
					resp.finish(ev)
					w.drainStdout()
					return
				}
				continue
			default:
			}
		}

		select {
		case res := <-w.stdout:
			if res.err != nil {
				w.stdout = nil
				w.stdoutErr = res.err
				resp.finish(ioError("stdout", res.err))
				return
			}
			if res.line == marker {
				if len(stderrLines) > 0 {
					resp.finish(commandErrorEvent(stderrLines))
				} else {
					resp.finish(Event{Kind: EventDone})
				}
				w.logger.Debug("ledger command done",
					zap.Duration("took", time.Since(started)),
					zap.Int("stderr_lines", len(stderrLines)))
				return
			}
			if !dropped && !resp.deliver(Event{Kind: EventLine, Line: res.line}) {
				dropped = true
			}
		case res := <-w.stderr:
			if ev, terminal := w.stderrResult(res, &stderrLines); terminal {
				resp.finish(ev)
				w.drainStdout()
				return
			}
		}
	}
}

// stderrResult folds one stderr read into the command's buffer. Closure with
// buffered diagnostics is the tool reporting a failed command; closure with
// nothing buffered means the stream itself broke.
func (w *worker) stderrResult(res readResult, buf *[]string) (Event, bool) {
	if res.err == nil {
		*buf = append(*buf, res.line)
		return Event{}, false
	}
	w.stderr = nil
	w.stderrErr = res.err
	if len(*buf) > 0 {
		return commandErrorEvent(*buf), true
	}
	return ioError("stderr", res.err), true
}

// drainStdout discards stdout up to the sentinel after a command ended on a
// stderr closure, so the next command starts on a clean frame.
func (w *worker) drainStdout() {
	for w.stdout != nil {
		res := <-w.stdout
		if res.err != nil {
			w.stdout = nil
			w.stdoutErr = res.err
			return
		}
		if res.line == marker {
			return
		}
	}
}

// writeCommand sends the command, when there is one, followed by the echo
// that frames its response.
func (w *worker) writeCommand(command string) error {
	var b []byte
	if command != "" {
		b = append(b, command...)
		b = append(b, '\n')
	}
	b = append(b, "echo "...)
	b = append(b, marker...)
	b = append(b, '\n')
	_, err := w.stdin.Write(b)
	return err
}

func (w *worker) shutdown() error {
	if err := w.stdin.Close(); err != nil {
		w.logger.Debug("close stdin", zap.Error(err))
	}
	err := w.wait()
	w.logger.Info("ledger session stopped", zap.Error(err))
	return err
}
