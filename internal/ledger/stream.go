package ledger

// Lines iterates a command's stdout in the bufio.Scanner style:
//
//	for lines.Scan() {
//	    use(lines.Text())
//	}
//	if err := lines.Err(); err != nil { ... }
type Lines struct {
	resp *Response
	line string
	err  error
	done bool
}

func (l *Lines) Scan() bool {
	if l.done {
		return false
	}
	ev, ok := <-l.resp.events
	if !ok {
		l.done = true
		return false
	}
	switch ev.Kind {
	case EventLine:
		l.line = ev.Line
		return true
	case EventError:
		l.err = ev.Err
	}
	l.done = true
	return false
}

func (l *Lines) Text() string { return l.line }

func (l *Lines) Err() error { return l.err }

// Close abandons the rest of the output. The session discards it.
func (l *Lines) Close() {
	l.done = true
	l.resp.Close()
}
