package ledger

import (
	"strings"
	"sync"
)

type EventKind int

const (
	EventLine EventKind = iota
	EventDone
	EventError
)

func (k EventKind) String() string {
	names := []string{"Line", "Done", "Error"}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// Event is one step of a command response. Line events carry a stdout line
// without its terminator; exactly one Done or Error event ends the stream.
type Event struct {
	Kind EventKind
	Line string
	Err  error
}

// CommandError means the tool rejected the command and wrote diagnostics to
// stderr. The session keeps serving later commands.
type CommandError struct {
	Stderr string
}

func (e *CommandError) Error() string { return e.Stderr }

const responseBuffer = 64

// Response receives the events of a single command. Closing it tells the
// session to drain and discard whatever is left of this command's output.
type Response struct {
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func newResponse() *Response {
	return &Response{
		events: make(chan Event, responseBuffer),
		done:   make(chan struct{}),
	}
}

// Events yields this command's events. The channel closes after the
// terminal event.
func (r *Response) Events() <-chan Event {
	return r.events
}

// Close abandons the response. Safe to call more than once.
func (r *Response) Close() {
	r.once.Do(func() { close(r.done) })
}

// deliver forwards ev unless the consumer went away.
func (r *Response) deliver(ev Event) bool {
	select {
	case r.events <- ev:
		return true
	case <-r.done:
		return false
	}
}

// finish delivers the terminal event and closes the stream.
func (r *Response) finish(ev Event) {
	r.deliver(ev)
	close(r.events)
}

func commandErrorEvent(stderrLines []string) Event {
	joined := strings.TrimSpace(strings.Join(stderrLines, "\n"))
	return Event{Kind: EventError, Err: &CommandError{Stderr: joined}}
}
