// Package pagination pages through a user's activity with sort-key cursors.
//
// A Pager keeps one Cursor per visited page so it can move in both
// directions without numeric offsets. Cursor entries are only ever appended
// or refreshed; nothing is removed until the owning view goes away.
package pagination

import (
	"fmt"
	"sync"

	"github.com/ripixel/fitglue-community/pkg/domain/social"
)

// Direction indicates which way a fetch moves through the feed.
type Direction string

const (
	// DirectionNext fetches items older than the cursor.
	DirectionNext Direction = "next"
	// DirectionPrev fetches items newer than the cursor.
	DirectionPrev Direction = "prev"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionNext || d == DirectionPrev
}

// ParseDirection maps "", "next" and "prev" onto a Direction. Empty means next.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case "", DirectionNext:
		return DirectionNext, nil
	case DirectionPrev:
		return DirectionPrev, nil
	}
	return "", fmt.Errorf("invalid direction: %q", s)
}

// Cursor holds the first and last sort keys of one displayed page.
type Cursor struct {
	First *social.SortKey `json:"first"`
	Last  *social.SortKey `json:"last"`
}

// CursorFromItems builds the cursor for a page. Items must be non-empty.
func CursorFromItems(items []social.ActivityItem) Cursor {
	first := items[0].Key()
	last := items[len(items)-1].Key()
	return Cursor{First: &first, Last: &last}
}

// CursorStore is the per-session cursor sequence. Entry 0 is the empty
// cursor that leads into the first page; entry i+1 holds the bounds of page i.
type CursorStore struct {
	mu      sync.RWMutex
	cursors []Cursor
}

// NewCursorStore returns a store seeded with the empty leading cursor.
func NewCursorStore() *CursorStore {
	return &CursorStore{cursors: []Cursor{{}}}
}

// Get returns the cursor at index i.
func (s *CursorStore) Get(i int) (Cursor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.cursors) {
		return Cursor{}, false
	}
	return s.cursors[i], true
}

// Set stores c at index i. i may refresh an existing entry or append the
// next one; leaving a gap is an error.
func (s *CursorStore) Set(i int, c Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case i < 0 || i > len(s.cursors):
		return fmt.Errorf("cursor index %d out of range (len %d)", i, len(s.cursors))
	case i == len(s.cursors):
		s.cursors = append(s.cursors, c)
	default:
		s.cursors[i] = c
	}
	return nil
}

// Len returns the number of stored cursors, including the leading empty one.
func (s *CursorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cursors)
}
