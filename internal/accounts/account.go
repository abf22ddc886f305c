package accounts

import "strings"

// Account is a colon-separated account path, e.g. "assets:bank:checking".
// Segments never contain empty strings.
type Account struct {
	Segments []string
}

func Parse(name string) Account {
	parts := strings.Split(name, ":")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return Account{Segments: segments}
}

func (a Account) String() string {
	return strings.Join(a.Segments, ":")
}

// Leaf returns the last path segment, or "" for the root account.
func (a Account) Leaf() string {
	if len(a.Segments) == 0 {
		return ""
	}
	return a.Segments[len(a.Segments)-1]
}

func (a Account) Parent() (Account, bool) {
	if len(a.Segments) == 0 {
		return Account{}, false
	}
	return Account{Segments: a.Segments[:len(a.Segments)-1]}, true
}

func (a Account) Depth() int {
	return len(a.Segments)
}

func (a Account) Equal(other Account) bool {
	if len(a.Segments) != len(other.Segments) {
		return false
	}
	for i := range a.Segments {
		if a.Segments[i] != other.Segments[i] {
			return false
		}
	}
	return true
}

// IsParentOf reports whether a is a strict ancestor of other.
func (a Account) IsParentOf(other Account) bool {
	if len(a.Segments) >= len(other.Segments) {
		return false
	}
	for i := range a.Segments {
		if a.Segments[i] != other.Segments[i] {
			return false
		}
	}
	return true
}
