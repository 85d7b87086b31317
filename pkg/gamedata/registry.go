package gamedata

import (
	"errors"
	"fmt"
)

// ErrKeyExists is returned when registering a name that is already taken.
var ErrKeyExists = errors.New("key already exists")

// Registry assigns dense ids, in registration order, to named values.
type Registry[T any] struct {
	ids    map[string]int
	values []T
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{ids: make(map[string]int)}
}

// Register adds value under name and returns its id.
func (r *Registry[T]) Register(name string, value T) (int, error) {
	if _, ok := r.ids[name]; ok {
		return 0, fmt.Errorf("register %q: %w", name, ErrKeyExists)
	}
	id := len(r.values)
	r.ids[name] = id
	r.values = append(r.values, value)
	return id, nil
}

func (r *Registry[T]) IDByName(name string) (int, bool) {
	id, ok := r.ids[name]
	return id, ok
}

func (r *Registry[T]) ByID(id int) (T, bool) {
	if id < 0 || id >= len(r.values) {
		var zero T
		return zero, false
	}
	return r.values[id], true
}

func (r *Registry[T]) Len() int { return len(r.values) }

// All returns the values in id order.
func (r *Registry[T]) All() []T {
	out := make([]T, len(r.values))
	copy(out, r.values)
	return out
}
