// Package registry holds the insertion-ordered lookup tables an environment
// is configured with: MIME types, compilers, processors, compressors and
// public assets. Go maps do not keep order and the suffix table derived from
// these registries is order-sensitive, so every table here remembers the
// order in which keys were first registered.
package registry

import (
	"slices"
	"sync"
)

// Ordered maps string keys to values and iterates in registration order.
// Re-registering an existing key replaces its value in place.
type Ordered[V any] struct {
	mu       sync.RWMutex
	keys     []string
	values   map[string]V
	onChange func()
}

// NewOrdered returns an empty registry.
func NewOrdered[V any]() *Ordered[V] {
	return &Ordered[V]{values: make(map[string]V)}
}

// OnChange installs fn to be called after every mutation.
func (o *Ordered[V]) OnChange(fn func()) {
	o.mu.Lock()
	o.onChange = fn
	o.mu.Unlock()
}

func (o *Ordered[V]) changed() {
	o.mu.RLock()
	fn := o.onChange
	o.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Register binds key to value.
func (o *Ordered[V]) Register(key string, value V) {
	o.mu.Lock()
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
	o.mu.Unlock()
	o.changed()
}

// Unregister removes key. Missing keys are ignored.
func (o *Ordered[V]) Unregister(key string) {
	o.mu.Lock()
	_, ok := o.values[key]
	if ok {
		delete(o.values, key)
		o.keys = slices.DeleteFunc(o.keys, func(k string) bool { return k == key })
	}
	o.mu.Unlock()
	if ok {
		o.changed()
	}
}

// Get returns the value bound to key.
func (o *Ordered[V]) Get(key string) (V, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.values[key]
	return v, ok
}

// Has reports whether key is registered.
func (o *Ordered[V]) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Keys returns the registered keys in registration order.
func (o *Ordered[V]) Keys() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.keys)
}

// Len returns the number of registered keys.
func (o *Ordered[V]) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.keys)
}

// Entry is one key/value pair of an Ordered registry.
type Entry[V any] struct {
	Key   string
	Value V
}

// Entries returns a snapshot of the registry in registration order.
func (o *Ordered[V]) Entries() []Entry[V] {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Entry[V], 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, Entry[V]{Key: k, Value: o.values[k]})
	}
	return out
}

// Lists maps string keys to ordered lists of values. It backs the
// preprocessor and postprocessor registries, where several processors may
// run for one MIME type.
type Lists[V any] struct {
	mu       sync.RWMutex
	keys     []string
	values   map[string][]V
	onChange func()
}

// NewLists returns an empty list registry.
func NewLists[V any]() *Lists[V] {
	return &Lists[V]{values: make(map[string][]V)}
}

// OnChange installs fn to be called after every mutation.
func (l *Lists[V]) OnChange(fn func()) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

func (l *Lists[V]) changed() {
	l.mu.RLock()
	fn := l.onChange
	l.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Register appends value to the list for key.
func (l *Lists[V]) Register(key string, value V) {
	l.mu.Lock()
	if _, ok := l.values[key]; !ok {
		l.keys = append(l.keys, key)
	}
	l.values[key] = append(l.values[key], value)
	l.mu.Unlock()
	l.changed()
}

// UnregisterFunc drops every value under key for which match returns true.
func (l *Lists[V]) UnregisterFunc(key string, match func(V) bool) {
	l.mu.Lock()
	before := len(l.values[key])
	if before > 0 {
		l.values[key] = slices.DeleteFunc(l.values[key], match)
	}
	removed := len(l.values[key]) != before
	l.mu.Unlock()
	if removed {
		l.changed()
	}
}

// Clear drops the whole list for key.
func (l *Lists[V]) Clear(key string) {
	l.mu.Lock()
	_, ok := l.values[key]
	delete(l.values, key)
	l.keys = slices.DeleteFunc(l.keys, func(k string) bool { return k == key })
	l.mu.Unlock()
	if ok {
		l.changed()
	}
}

// Get returns a copy of the list for key, nil when nothing is registered.
func (l *Lists[V]) Get(key string) []V {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.values[key])
}

// Keys returns the keys that have ever held a value, in registration order.
func (l *Lists[V]) Keys() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.keys)
}

// Set is an insertion-ordered set of strings.
type Set struct {
	mu    sync.RWMutex
	items []string
}

// NewSet returns a set holding items, duplicates dropped.
func NewSet(items ...string) *Set {
	s := &Set{}
	for _, it := range items {
		s.Add(it)
	}
	return s
}

// Add inserts item if it is not already present.
func (s *Set) Add(item string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.items, item) {
		s.items = append(s.items, item)
	}
}

// Remove deletes item.
func (s *Set) Remove(item string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.DeleteFunc(s.items, func(x string) bool { return x == item })
}

// Contains reports whether item is present.
func (s *Set) Contains(item string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.items, item)
}

// Items returns the members in insertion order.
func (s *Set) Items() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}
