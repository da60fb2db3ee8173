package asset

import "github.com/agentic-research/gears/internal/asseterr"

// CallStack is the per-build context shared by every asset of one top-level
// build. It records which absolute paths are in flight, to report cycles,
// and which are finished, so an asset reachable along several requirement
// paths is built once. A CallStack is not safe for concurrent use; each
// build gets its own.
type CallStack struct {
	stack    []string
	inFlight map[string]bool
	done     map[string]*Asset
}

// NewCallStack returns an empty call stack.
func NewCallStack() *CallStack {
	return &CallStack{
		inFlight: make(map[string]bool),
		done:     make(map[string]*Asset),
	}
}

// Enter marks path as in flight. Re-entering a path that is already in
// flight is a CircularDependencyError carrying the chain.
func (c *CallStack) Enter(path string) error {
	if c.inFlight[path] {
		return &asseterr.CircularDependencyError{Path: path, Chain: c.Chain()}
	}
	c.inFlight[path] = true
	c.stack = append(c.stack, path)
	return nil
}

// Leave pops path.
func (c *CallStack) Leave(path string) {
	delete(c.inFlight, path)
	for i := len(c.stack) - 1; i >= 0; i-- {
		if c.stack[i] == path {
			c.stack = append(c.stack[:i], c.stack[i+1:]...)
			return
		}
	}
}

// Contains reports whether path is in flight.
func (c *CallStack) Contains(path string) bool { return c.inFlight[path] }

// Chain returns the in-flight paths, outermost first.
func (c *CallStack) Chain() []string { return append([]string(nil), c.stack...) }

// Len returns the number of in-flight paths.
func (c *CallStack) Len() int { return len(c.stack) }

func (c *CallStack) finished(path string) (*Asset, bool) {
	a, ok := c.done[path]
	return a, ok
}

func (c *CallStack) finish(a *Asset) { c.done[a.AbsolutePath] = a }
