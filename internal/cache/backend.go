// Package cache persists build products between runs. A Backend is a plain
// byte store; Store layers typed asset records and a dependents index on top.
package cache

import "errors"

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("cache closed")

// Backend is a key/value byte store. Get reports a miss with ok == false and
// a nil error. Concurrent readers and last-writer-wins writers must be safe.
type Backend interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// Nop stores nothing; every Get misses.
type Nop struct{}

func (Nop) Get(string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(string, []byte) error         { return nil }
func (Nop) Delete(string) error              { return nil }
func (Nop) Close() error                     { return nil }
