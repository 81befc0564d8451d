// Package arena provides an append-only slot store addressed by stable
// handles.
package arena

import "fmt"

// Index is a handle to a value stored in an Arena.
type Index int

// Unknown is the handle of an absent value. It never refers to a stored value.
const Unknown Index = -1

// Valid reports whether the handle may refer to a stored value.
func (i Index) Valid() bool {
	return i >= 0
}

func (i Index) String() string {
	if !i.Valid() {
		return "unknown"
	}
	return fmt.Sprintf("#%d", int(i))
}

// Arena stores values in insertion order. Values are never removed, so a
// handle stays valid for the lifetime of the arena.
type Arena[V any] struct {
	values []V
}

// New returns an arena with room for capacity values.
func New[V any](capacity int) *Arena[V] {
	return &Arena[V]{
		values: make([]V, 0, capacity),
	}
}

// Insert appends v and returns its handle.
func (a *Arena[V]) Insert(v V) Index {
	a.values = append(a.values, v)
	return Index(len(a.values) - 1)
}

// Get returns a pointer to the value referred by i. The pointer is valid until
// the next call to Insert.
func (a *Arena[V]) Get(i Index) (*V, bool) {
	if !i.Valid() || int(i) >= len(a.values) {
		return nil, false
	}
	return &a.values[i], true
}

// MustGet is like Get but panics when i does not refer to a stored value.
func (a *Arena[V]) MustGet(i Index) *V {
	v, ok := a.Get(i)
	if !ok {
		panic(fmt.Sprintf("arena: no value at %s (len %d)", i, len(a.values)))
	}
	return v
}

// IndexAt returns the handle of the value inserted at the given position,
// whatever its content is. It lets callers compute the handle of a slot that
// will only be filled later.
func (a *Arena[V]) IndexAt(position int) Index {
	if position < 0 || position >= len(a.values) {
		panic(fmt.Sprintf("arena: position %d out of range (len %d)", position, len(a.values)))
	}
	return Index(position)
}

// Len returns the number of stored values.
func (a *Arena[V]) Len() int {
	return len(a.values)
}
