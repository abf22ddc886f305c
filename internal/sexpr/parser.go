// Package sexpr parses the S-expression dump emitted by the ledger CLI.
//
// Input arrives in chunks of unknown alignment. The whole dump is one outer
// list; the parser never materializes it. Instead each direct child of the
// outer list is queued as soon as it completes, so consumers can decode
// records while the dump is still streaming.
package sexpr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrUnmatchedClose     = errors.New("unmatched closing parenthesis")
	ErrUnterminatedString = errors.New("unterminated string literal")
	ErrMultipleTopLevel   = errors.New("multiple top-level forms")
)

// UnclosedError reports how many lists were still open at Finish.
type UnclosedError struct {
	Count int
}

func (e *UnclosedError) Error() string {
	return fmt.Sprintf("%d unclosed parentheses", e.Count)
}

// IntegerError reports an atom that looked numeric but did not parse as a
// signed 64-bit integer.
type IntegerError struct {
	Atom string
	Err  error
}

func (e *IntegerError) Error() string {
	return fmt.Sprintf("invalid integer %q: %v", e.Atom, e.Err)
}

func (e *IntegerError) Unwrap() error { return e.Err }

type Parser struct {
	atom    strings.Builder
	str     strings.Builder
	inStr   bool
	escaped bool
	stack   [][]Value
	output  []Value
	outer   bool
}

func New() *Parser {
	return &Parser{}
}

// Parse runs a complete input through a fresh parser and returns every
// streamed value.
func Parse(input string) ([]Value, error) {
	p := New()
	if err := p.Take(input); err != nil {
		return nil, err
	}
	return p.Finish()
}

// Take consumes the next chunk. Chunk boundaries may fall anywhere between
// runes; state carries across calls. After an error the parser is spent.
func (p *Parser) Take(chunk string) error {
	for _, r := range chunk {
		if p.inStr {
			p.stringRune(r)
			continue
		}
		switch {
		case r == '(':
			if err := p.flushAtom(); err != nil {
				return err
			}
			if len(p.stack) == 0 {
				if p.outer {
					return ErrMultipleTopLevel
				}
				p.outer = true
			}
			p.stack = append(p.stack, nil)
		case r == ')':
			if err := p.flushAtom(); err != nil {
				return err
			}
			n := len(p.stack)
			if n == 0 {
				return ErrUnmatchedClose
			}
			top := p.stack[n-1]
			p.stack = p.stack[:n-1]
			if len(p.stack) > 0 || !p.outer {
				p.push(List(top))
			}
			// The outer list closes silently: its children are
			// already in the output queue.
		case r == '"':
			if err := p.flushAtom(); err != nil {
				return err
			}
			p.inStr = true
		case unicode.IsSpace(r):
			if err := p.flushAtom(); err != nil {
				return err
			}
		default:
			p.atom.WriteRune(r)
		}
	}
	return nil
}

// Drain removes and returns the values completed so far.
func (p *Parser) Drain() []Value {
	out := p.output
	p.output = nil
	return out
}

// Finish flushes any trailing atom and returns the remaining values. It
// fails if a string or any list is still open.
func (p *Parser) Finish() ([]Value, error) {
	if p.inStr {
		return nil, ErrUnterminatedString
	}
	if err := p.flushAtom(); err != nil {
		return nil, err
	}
	if n := len(p.stack); n > 0 {
		return nil, &UnclosedError{Count: n}
	}
	return p.Drain(), nil
}

func (p *Parser) stringRune(r rune) {
	switch {
	case p.escaped:
		p.escaped = false
		switch r {
		case 'n':
			p.str.WriteByte('\n')
		case 't':
			p.str.WriteByte('\t')
		default:
			p.str.WriteRune(r)
		}
	case r == '\\':
		p.escaped = true
	case r == '"':
		p.push(String(p.str.String()))
		p.str.Reset()
		p.inStr = false
	default:
		p.str.WriteRune(r)
	}
}

// flushAtom completes the pending atom, if any. Atoms that start with a
// digit or '-' must be valid integers; the dump never emits bare words in
// that shape.
func (p *Parser) flushAtom() error {
	if p.atom.Len() == 0 {
		return nil
	}
	s := p.atom.String()
	p.atom.Reset()
	if c := s[0]; c == '-' || (c >= '0' && c <= '9') {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return &IntegerError{Atom: s, Err: err}
		}
		p.push(Integer(n))
		return nil
	}
	p.push(Atom(s))
	return nil
}

// push queues v at the streaming level or appends it to the open list.
func (p *Parser) push(v Value) {
	if len(p.stack) == 1 && p.outer {
		p.output = append(p.output, v)
		return
	}
	if n := len(p.stack); n > 0 {
		p.stack[n-1] = append(p.stack[n-1], v)
		return
	}
	p.output = append(p.output, v)
}
