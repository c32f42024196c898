// pkg/route/table.go
package route

import (
	"errors"
	"sort"
)

// HandlerRef identifies a callable inside one application's scripting environment.
// Only the environment that issued it can resolve it.
type HandlerRef uint32

// Key is the exact (method, path) pair a handler is registered under.
type Key struct {
	Method Method
	Path   string
}

var ErrNotFound = errors.New("route: not found")

// Table maps (method, path) to a handler. It is filled while the owning
// application initialises and is read-only afterwards.
type Table struct {
	entries map[Key]HandlerRef
}

func NewTable() *Table {
	return &Table{entries: make(map[Key]HandlerRef)}
}

// Register inserts or overwrites the handler for (m, path).
func (t *Table) Register(m Method, path string, h HandlerRef) {
	t.entries[Key{Method: m, Path: path}] = h
}

// Lookup returns the handler registered for exactly (m, path).
func (t *Table) Lookup(m Method, path string) (HandlerRef, error) {
	h, ok := t.entries[Key{Method: m, Path: path}]
	if !ok {
		return 0, ErrNotFound
	}
	return h, nil
}

func (t *Table) Len() int { return len(t.entries) }

// Keys lists the registered keys ordered by path, then method.
func (t *Table) Keys() []Key {
	out := make([]Key, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}
