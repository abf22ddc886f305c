package sexpr

import (
	"strconv"
	"strings"
)

// Value is one parsed S-expression form: Atom, Integer, String or List.
type Value interface {
	value()
	String() string
}

type Atom string

type Integer int64

type String string

type List []Value

func (Atom) value()    {}
func (Integer) value() {}
func (String) value()  {}
func (List) value()    {}

func (a Atom) String() string { return string(a) }

func (i Integer) String() string { return strconv.FormatInt(int64(i), 10) }

func (s String) String() string { return strconv.Quote(string(s)) }

func (l List) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}
