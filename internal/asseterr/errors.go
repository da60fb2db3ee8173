// Package asseterr defines the error taxonomy shared by every stage of the
// pipeline. Structured errors match their sentinel through errors.Is, so
// callers can branch on the kind of failure without caring which stage
// produced it.
package asseterr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFileNotFound reports a resolution failure: a missing concrete
	// file, logical target, or directory.
	ErrFileNotFound = errors.New("file not found")

	// ErrCircularDependency reports a path re-entered while already in flight.
	ErrCircularDependency = errors.New("circular dependency")

	// ErrProcessFailed reports an external compiler or compressor failure.
	ErrProcessFailed = errors.New("process failed")

	// ErrImproperlyConfigured reports an invalid registry or finder setup.
	ErrImproperlyConfigured = errors.New("improperly configured")

	// ErrInvalidDirective reports a malformed or unknown directive.
	ErrInvalidDirective = errors.New("invalid directive")

	// ErrUnicode reports a source file that is not valid UTF-8.
	ErrUnicode = errors.New("unicode decode error")
)

// FileNotFoundError carries the path that could not be resolved.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

func (e *FileNotFoundError) Is(target error) bool { return target == ErrFileNotFound }

// NotFound returns a FileNotFoundError for path.
func NotFound(path string) error {
	return &FileNotFoundError{Path: path}
}

// CircularDependencyError carries the offending absolute path and the
// in-flight chain that led back to it.
type CircularDependencyError struct {
	Path  string
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("circular dependency: %s", e.Path)
	}
	return fmt.Sprintf("circular dependency: %s (%s -> %s)", e.Path, strings.Join(e.Chain, " -> "), e.Path)
}

func (e *CircularDependencyError) Is(target error) bool { return target == ErrCircularDependency }

// ProcessError is returned when an external tool exits non-zero. Stderr
// holds whatever the tool wrote to its error stream.
type ProcessError struct {
	Handler string
	Path    string
	Stderr  string
	Err     error
}

func (e *ProcessError) Error() string {
	var b strings.Builder
	b.WriteString(e.Handler)
	b.WriteString(" failed")
	if e.Path != "" {
		b.WriteString(" for ")
		b.WriteString(e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		b.WriteString("\n")
		b.WriteString(s)
	}
	return b.String()
}

func (e *ProcessError) Is(target error) bool { return target == ErrProcessFailed }

func (e *ProcessError) Unwrap() error { return e.Err }

// ConfigError reports an invalid configuration detected at construction time.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "improperly configured: " + e.Msg }

func (e *ConfigError) Is(target error) bool { return target == ErrImproperlyConfigured }

// Improperly returns a ConfigError with a formatted message.
func Improperly(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// DirectiveError reports a directive that could not be executed.
type DirectiveError struct {
	Path      string
	Directive string
	Msg       string
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("%s: %q: %s", e.Path, e.Directive, e.Msg)
}

func (e *DirectiveError) Is(target error) bool { return target == ErrInvalidDirective }

// UnicodeError carries the path of a file whose bytes are not valid UTF-8.
type UnicodeError struct {
	Path string
	Msg  string
}

func (e *UnicodeError) Error() string { return fmt.Sprintf("%s: %s", e.Path, e.Msg) }

func (e *UnicodeError) Is(target error) bool { return target == ErrUnicode }
