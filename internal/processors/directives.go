// Package processors holds the built-in preprocessors and postprocessors.
package processors

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/agentic-research/gears/internal/asset"
	"github.com/agentic-research/gears/internal/asseterr"
	"github.com/agentic-research/gears/internal/ctxlog"
	"github.com/agentic-research/gears/internal/directives"
	"github.com/kballard/go-shellquote"
)

// Directives reads the directive header of an asset, strips it from the
// processed source, and applies each directive to the asset's requirements,
// dependencies and params.
type Directives struct{}

func (Directives) Name() string { return "directives" }

func (d Directives) Process(ctx context.Context, a *asset.Asset) error {
	parser := directives.Parser{HashComments: a.Attributes.MIMEType != asset.MIMETypeCSS}
	list, body := parser.Parse(a.ProcessedSource)
	a.ProcessedSource = body

	log := ctxlog.FromContext(ctx)
	for _, dir := range list {
		args, err := shellquote.Split(dir.Text)
		if err != nil {
			return &asseterr.DirectiveError{Path: a.Attributes.Path, Directive: dir.Text, Msg: err.Error()}
		}
		if len(args) == 0 {
			continue
		}
		log.Debug("directive", "path", a.Attributes.Path, "line", dir.Line, "verb", args[0])
		if err := d.apply(ctx, a, dir.Text, args[0], args[1:]); err != nil {
			return err
		}
	}
	return nil
}

func (d Directives) apply(ctx context.Context, a *asset.Asset, text, verb string, args []string) error {
	bad := func(msg string) error {
		return &asseterr.DirectiveError{Path: a.Attributes.Path, Directive: text, Msg: msg}
	}
	arity := func(n int) error {
		if len(args) != n {
			return bad(fmt.Sprintf("%s takes %d argument(s), got %d", verb, n, len(args)))
		}
		return nil
	}

	switch verb {
	case "require":
		if err := arity(1); err != nil {
			return err
		}
		return d.require(ctx, a, args[0])
	case "require_directory", "require_tree":
		if err := arity(1); err != nil {
			return err
		}
		return d.requireDirectory(ctx, a, args[0], verb == "require_tree")
	case "require_self":
		if err := arity(0); err != nil {
			return err
		}
		a.Requirements.AddSelf()
		return nil
	case "depend_on":
		if err := arity(1); err != nil {
			return err
		}
		abs, _, err := a.Environment().FindPath(relative(a, args[0]))
		if err != nil {
			return err
		}
		return a.Dependencies.Add(abs)
	case "params":
		if len(args) == 0 {
			return bad("params takes at least one key=value argument")
		}
		for _, kv := range args {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || k == "" {
				return bad(fmt.Sprintf("malformed param %q", kv))
			}
			a.Params[k] = v
		}
		return nil
	default:
		return bad("unknown directive " + verb)
	}
}

// relative joins p to the directory of the requiring asset.
func relative(a *asset.Asset, p string) string {
	return path.Clean(path.Join(a.Attributes.Dir, p))
}

// require resolves p logically relative to the requiring file. A path
// without a recognized format inherits the requiring file's suffix.
func (Directives) require(ctx context.Context, a *asset.Asset, p string) error {
	env := a.Environment()
	rel := relative(a, p)
	if env.NewAttributes(rel).FormatExtension == "" {
		rel += strings.Join(a.Attributes.Suffix, "")
	}
	attrs, abs, err := env.Find(env.NewAttributes(rel), true)
	if err != nil {
		return err
	}
	req, err := a.Require(ctx, attrs, abs)
	if err != nil {
		return err
	}
	a.Requirements.Add(req)
	return nil
}

// requireDirectory requires every asset of the same MIME type below p,
// sorted by logical path. The directories listed become dependencies so
// added or removed files invalidate the asset.
func (Directives) requireDirectory(ctx context.Context, a *asset.Asset, p string, recursive bool) error {
	env := a.Environment()
	rel := relative(a, p)
	dirAbs, info, err := env.FindPath(rel)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return asseterr.NotFound(rel)
	}
	listed, err := env.List(rel, recursive, a.Attributes.MIMEType)
	if err != nil {
		return err
	}

	if err := a.Dependencies.Add(dirAbs); err != nil {
		return err
	}
	if recursive {
		for _, l := range listed {
			for dir := path.Dir(l.Attributes.Path); dir != rel && dir != "."; dir = path.Dir(dir) {
				abs, _, err := env.FindPath(dir)
				if err != nil {
					return err
				}
				if err := a.Dependencies.Add(abs); err != nil {
					return err
				}
			}
		}
	}

	for _, l := range listed {
		if l.AbsolutePath == a.AbsolutePath {
			continue
		}
		req, err := a.Require(ctx, l.Attributes, l.AbsolutePath)
		if err != nil {
			return err
		}
		a.Requirements.Add(req)
	}
	return nil
}
