package ledger

import (
	"fmt"

	"github.com/ngalaiko/ledger-desktop/internal/journal"
	"github.com/ngalaiko/ledger-desktop/internal/sexpr"
)

// TransactionScanner decodes an emacs-format dump as it streams in. Each
// stdout line feeds the incremental parser; complete top-level forms become
// transactions without waiting for the dump to end.
type TransactionScanner struct {
	resp     *Response
	parser   *sexpr.Parser
	pending  []sexpr.Value
	tx       *journal.Transaction
	err      error
	finished bool
	done     bool
}

func newTransactionScanner(resp *Response) *TransactionScanner {
	return &TransactionScanner{resp: resp, parser: sexpr.New()}
}

// Scan advances to the next transaction. On a parse or decode failure it
// records the error, abandons the response and returns false; the session
// survives to serve later commands.
func (s *TransactionScanner) Scan() bool {
	if s.done {
		return false
	}
	for {
		if len(s.pending) > 0 {
			form := s.pending[0]
			s.pending = s.pending[1:]
			list, ok := form.(sexpr.List)
			if !ok {
				s.fail(fmt.Errorf("expected a transaction list, got %s", form))
				return false
			}
			tx, err := journal.DecodeTransaction(list)
			if err != nil {
				s.fail(fmt.Errorf("decode transaction: %w", err))
				return false
			}
			s.tx = tx
			return true
		}
		if s.finished {
			s.done = true
			return false
		}
		ev, ok := <-s.resp.events
		if !ok {
			s.done = true
			return false
		}
		switch ev.Kind {
		case EventLine:
			if err := s.feed(ev.Line); err != nil {
				s.fail(fmt.Errorf("parse dump: %w", err))
				return false
			}
			s.pending = append(s.pending, s.parser.Drain()...)
		case EventDone:
			values, err := s.parser.Finish()
			if err != nil {
				s.fail(fmt.Errorf("parse dump: %w", err))
				return false
			}
			s.pending = append(s.pending, values...)
			s.finished = true
		case EventError:
			s.fail(ev.Err)
			return false
		}
	}
}

func (s *TransactionScanner) feed(line string) error {
	if err := s.parser.Take(line); err != nil {
		return err
	}
	return s.parser.Take("\n")
}

func (s *TransactionScanner) fail(err error) {
	s.err = err
	s.done = true
	s.resp.Close()
}

// Transaction returns the transaction produced by the last Scan.
func (s *TransactionScanner) Transaction() *journal.Transaction { return s.tx }

func (s *TransactionScanner) Err() error { return s.err }

// Close abandons the rest of the dump.
func (s *TransactionScanner) Close() {
	s.done = true
	s.resp.Close()
}
