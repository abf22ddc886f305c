// Package journal turns the S-expression dump of the ledger CLI into typed
// records and provides derived read-only views over them.
package journal

import (
	"fmt"
	"time"

	"github.com/ngalaiko/ledger-desktop/internal/accounts"
	"github.com/ngalaiko/ledger-desktop/internal/sexpr"
)

type Transaction struct {
	File        string
	Line        int64
	Date        time.Time
	Description string
	Postings    []Posting
}

type Posting struct {
	Account accounts.Account
	Amount  Amount
	Note    string
}

// LengthError reports a form with fewer elements than the layout requires.
type LengthError struct {
	Want int
	Got  int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("expected a list of at least %d elements, got %d", e.Want, e.Got)
}

// FieldError reports a form element of the wrong kind.
type FieldError struct {
	Index int
	Field string
	Want  string
	Got   sexpr.Value
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("position %d (%s): expected %s, got %s", e.Index, e.Field, e.Want, kindName(e.Got))
}

func kindName(v sexpr.Value) string {
	switch v.(type) {
	case sexpr.Atom:
		return "atom"
	case sexpr.Integer:
		return "integer"
	case sexpr.String:
		return "string"
	case sexpr.List:
		return "list"
	default:
		return "nothing"
	}
}

// DecodeTransaction decodes one dumped transaction form. The layout is
// positional: file, line, date, a flag the viewer ignores, description, then
// one list per posting. The date arrives as an ISO string or as epoch
// seconds depending on the requested dump mode; both are accepted.
func DecodeTransaction(form sexpr.List) (*Transaction, error) {
	if len(form) < 5 {
		return nil, &LengthError{Want: 5, Got: len(form)}
	}
	file, ok := form[0].(sexpr.String)
	if !ok {
		return nil, &FieldError{Index: 0, Field: "file", Want: "string", Got: form[0]}
	}
	line, ok := form[1].(sexpr.Integer)
	if !ok {
		return nil, &FieldError{Index: 1, Field: "line", Want: "integer", Got: form[1]}
	}
	var date time.Time
	switch v := form[2].(type) {
	case sexpr.String:
		parsed, err := time.Parse("2006-01-02", string(v))
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", string(v), err)
		}
		date = parsed
	case sexpr.Integer:
		date = time.Unix(int64(v), 0).UTC()
	default:
		return nil, &FieldError{Index: 2, Field: "date", Want: "string or integer", Got: form[2]}
	}
	description, ok := form[4].(sexpr.String)
	if !ok {
		return nil, &FieldError{Index: 4, Field: "description", Want: "string", Got: form[4]}
	}

	tx := &Transaction{
		File:        string(file),
		Line:        int64(line),
		Date:        date,
		Description: string(description),
	}
	for i, v := range form[5:] {
		list, ok := v.(sexpr.List)
		if !ok {
			return nil, &FieldError{Index: i + 5, Field: "posting", Want: "list", Got: v}
		}
		posting, err := DecodePosting(list)
		if err != nil {
			return nil, fmt.Errorf("posting %d: %w", i, err)
		}
		tx.Postings = append(tx.Postings, posting)
	}
	return tx, nil
}

// DecodePosting decodes one posting form: id, account, amount, status and an
// optional note. Id and status are ignored; the note is kept verbatim.
func DecodePosting(form sexpr.List) (Posting, error) {
	if len(form) < 4 {
		return Posting{}, &LengthError{Want: 4, Got: len(form)}
	}
	name, ok := form[1].(sexpr.String)
	if !ok {
		return Posting{}, &FieldError{Index: 1, Field: "account", Want: "string", Got: form[1]}
	}
	text, ok := form[2].(sexpr.String)
	if !ok {
		return Posting{}, &FieldError{Index: 2, Field: "amount", Want: "string", Got: form[2]}
	}
	amount, err := ParseAmount(string(text))
	if err != nil {
		return Posting{}, fmt.Errorf("invalid amount %q: %w", string(text), err)
	}
	posting := Posting{
		Account: accounts.Parse(string(name)),
		Amount:  amount,
	}
	if len(form) == 5 {
		note, ok := form[4].(sexpr.String)
		if !ok {
			return Posting{}, &FieldError{Index: 4, Field: "note", Want: "string", Got: form[4]}
		}
		posting.Note = string(note)
	}
	return posting, nil
}
