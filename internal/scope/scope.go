// Package scope maps short numeric tokens to the entities of the last listing.
package scope

import (
	"slices"
	"strconv"
	"strings"
)

// Kind tags which entity type a scope holds.
type Kind int

const (
	// KindClass holds domain.Batch values.
	KindClass Kind = iota + 1
	// KindStudent holds domain.Student values.
	KindStudent
	// KindConcept holds domain.Concept values.
	KindConcept
	// KindGap holds domain.Concept values from the weak list.
	KindGap
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindStudent:
		return "student"
	case KindConcept:
		return "concept"
	case KindGap:
		return "gap"
	default:
		return "unknown"
	}
}

// Entry is one numbered line of a listing.
type Entry struct {
	Token string
	Name  string
	Group string
	Value any
}

// Scope is an immutable token -> entity mapping. Tokens are "1".."N" in
// display order with no gaps.
type Scope struct {
	kind    Kind
	entries []Entry
}

// New numbers items in list order.
func New[T any](kind Kind, items []T, name func(T) string) *Scope {
	s := &Scope{kind: kind, entries: make([]Entry, 0, len(items))}
	for i, item := range items {
		s.entries = append(s.entries, Entry{
			Token: strconv.Itoa(i + 1),
			Name:  name(item),
			Value: item,
		})
	}
	return s
}

// NewGrouped partitions items by group (stable, following order) and numbers
// them in the resulting display order. Items whose group is not in order go
// last.
func NewGrouped[T any](kind Kind, items []T, name, group func(T) string, order []string) *Scope {
	rank := func(g string) int {
		if i := slices.Index(order, g); i >= 0 {
			return i
		}
		return len(order)
	}
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return rank(group(a)) - rank(group(b))
	})

	s := New(kind, sorted, name)
	for i := range s.entries {
		s.entries[i].Group = group(sorted[i])
	}
	return s
}

// Kind returns the entity kind.
func (s *Scope) Kind() Kind {
	if s == nil {
		return 0
	}
	return s.kind
}

// Len returns the number of entries.
func (s *Scope) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Entries returns a copy of the entries in token order.
func (s *Scope) Entries() []Entry {
	if s == nil {
		return nil
	}
	return slices.Clone(s.entries)
}

// Tokens returns the tokens in order.
func (s *Scope) Tokens() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Token
	}
	return out
}

// Resolve looks input up as a token first, then as a case-insensitive exact
// name. Duplicate names resolve to the first entry. A nil scope never matches.
func (s *Scope) Resolve(input string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return Entry{}, false
	}
	for _, e := range s.entries {
		if e.Token == input {
			return e, true
		}
	}
	for _, e := range s.entries {
		if strings.EqualFold(e.Name, input) {
			return e, true
		}
	}
	return Entry{}, false
}

// MatchName finds the first item whose name equals input, ignoring case.
func MatchName[T any](items []T, name func(T) string, input string) (T, bool) {
	input = strings.TrimSpace(input)
	for _, item := range items {
		if input != "" && strings.EqualFold(name(item), input) {
			return item, true
		}
	}
	var zero T
	return zero, false
}
