// Package external runs the subprocesses that back exec compilers and
// compressors: source on stdin, result on stdout, stderr kept for errors.
package external

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/agentic-research/gears/internal/asseterr"
)

var argFuncs = template.FuncMap{
	"dir":  filepath.Dir,
	"base": filepath.Base,
}

// Command is an argv whose elements are text/template strings rendered
// against per-invocation data before each run.
type Command struct {
	// Name labels the handler in errors and logs.
	Name string
	Args []string
	// Timeout bounds one run. Zero means no limit beyond ctx.
	Timeout time.Duration
	// Env is appended to the inherited environment.
	Env []string
}

// New returns a command named name running args.
func New(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

func renderArg(arg string, data any) (string, error) {
	if !strings.Contains(arg, "{{") {
		return arg, nil
	}
	t, err := template.New("").Funcs(argFuncs).Parse(arg)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Argv renders the argument templates against data.
func (c Command) Argv(data any) ([]string, error) {
	out := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		r, err := renderArg(a, data)
		if err != nil {
			return nil, fmt.Errorf("%s: render argument %q: %w", c.Name, a, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Run feeds input to the command and returns its stdout. path names the
// asset being processed, for error reports. A failure to start or a
// non-zero exit is a *asseterr.ProcessError carrying stderr.
func (c Command) Run(ctx context.Context, path, input string, data any) (string, error) {
	if len(c.Args) == 0 {
		return "", asseterr.Improperly("%s: empty command", c.Name)
	}
	argv, err := c.Argv(data)
	if err != nil {
		return "", err
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	cmd.Stdin = strings.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return "", &asseterr.ProcessError{
			Handler: c.Name,
			Path:    path,
			Stderr:  stderr.String(),
			Err:     err,
		}
	}
	return stdout.String(), nil
}
