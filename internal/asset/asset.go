package asset

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentic-research/gears/internal/ctxlog"
)

// Asset is the build state of one source file within one top-level build.
// A static asset passes through untouched: no processors run and its
// bundled and compressed sources equal its source.
type Asset struct {
	Attributes   *Attributes
	AbsolutePath string
	Static       bool

	Source          string
	ProcessedSource string
	Requirements    *Requirements
	Dependencies    *Dependencies
	// Params holds values set by the params directive.
	Params map[string]string

	env       *Environment
	calls     *CallStack
	modTime   time.Time
	hexdigest string
	// expired is true when this build reprocessed the asset instead of
	// restoring it from the cache.
	expired bool

	bundled    *string
	compressed *string
}

func (e *Environment) newAsset(attrs *Attributes, abs string, calls *CallStack) *Asset {
	a := &Asset{
		Attributes:   attrs,
		AbsolutePath: abs,
		Static:       attrs.IsStatic(),
		Params:       make(map[string]string),
		env:          e,
		calls:        calls,
	}
	a.Requirements = newRequirements(a)
	a.Dependencies = newDependencies(e)
	return a
}

// Environment returns the environment the asset is built in.
func (a *Asset) Environment() *Environment { return a.env }

// Calls returns the call stack of the build this asset belongs to.
func (a *Asset) Calls() *CallStack { return a.calls }

// ModTime returns the source file's modification time at build time.
func (a *Asset) ModTime() time.Time { return a.modTime }

// Hexdigest is the SHA-1 of Source.
func (a *Asset) Hexdigest() string { return a.hexdigest }

// Expired reports whether the asset was reprocessed in this build because
// it or one of its dependencies changed.
func (a *Asset) Expired() bool { return a.expired }

// BundleExpired reports whether any asset in the flattened requirement
// graph is expired.
func (a *Asset) BundleExpired() bool {
	for _, r := range a.Requirements.All() {
		if r.expired {
			return true
		}
	}
	return false
}

// Public reports whether the asset was marked public by a params directive.
func (a *Asset) Public() bool { return a.Params["public"] == "true" }

// ExecData is the data exec handlers render their argument templates with.
type ExecData struct {
	Name         string
	AbsolutePath string
	LogicalPath  string
}

// ExecData returns the template data describing this asset.
func (a *Asset) ExecData() ExecData {
	return ExecData{
		Name:         a.Attributes.PathWithoutSuffix,
		AbsolutePath: a.AbsolutePath,
		LogicalPath:  a.Attributes.LogicalPath,
	}
}

// Require loads the asset at abs as part of this asset's build, sharing the
// call stack. It does not add it to the requirements.
func (a *Asset) Require(ctx context.Context, attrs *Attributes, abs string) (*Asset, error) {
	return a.env.load(ctx, attrs, abs, a.calls)
}

// load builds or restores the asset at abs within calls.
func (e *Environment) load(ctx context.Context, attrs *Attributes, abs string, calls *CallStack) (*Asset, error) {
	if done, ok := calls.finished(abs); ok {
		return done, nil
	}
	if err := calls.Enter(abs); err != nil {
		return nil, err
	}
	defer calls.Leave(abs)

	a := e.newAsset(attrs, abs, calls)
	info, err := e.Stat(abs)
	if err != nil {
		return nil, err
	}
	a.modTime = info.ModTime()

	if a.Static {
		data, err := e.Read(abs)
		if err != nil {
			return nil, err
		}
		a.Source = string(data)
	} else if a.Source, err = e.ReadText(abs); err != nil {
		return nil, err
	}
	a.hexdigest = hexdigest([]byte(a.Source))

	log := ctxlog.FromContext(ctx)
	restored, err := e.restore(ctx, a)
	if err != nil {
		return nil, err
	}
	if restored {
		log.Debug("cache hit", "path", attrs.Path)
	} else {
		log.Debug("cache miss", "path", attrs.Path)
		a.expired = true
		if err := a.process(ctx); err != nil {
			return nil, err
		}
		if err := e.Cache.SaveAsset(a.record()); err != nil {
			return nil, fmt.Errorf("save %s: %w", attrs.Path, err)
		}
	}
	calls.finish(a)
	return a, nil
}

// process runs preprocessors, then compilers innermost first, then
// postprocessors.
func (a *Asset) process(ctx context.Context) error {
	a.ProcessedSource = a.Source
	if a.Static {
		return nil
	}
	log := ctxlog.FromContext(ctx)
	run := func(stage string, p Processor) error {
		log.Debug("run handler", "stage", stage, "handler", HandlerName(p), "path", a.Attributes.Path)
		if err := p.Process(ctx, a); err != nil {
			return fmt.Errorf("%s %s: %w", stage, a.Attributes.Path, err)
		}
		return nil
	}
	for _, p := range a.Attributes.Preprocessors() {
		if err := run("preprocess", p); err != nil {
			return err
		}
	}
	for i := len(a.Attributes.Compilers) - 1; i >= 0; i-- {
		if err := run("compile", a.Attributes.Compilers[i]); err != nil {
			return err
		}
	}
	for _, p := range a.Attributes.Postprocessors() {
		if err := run("postprocess", p); err != nil {
			return err
		}
	}
	return nil
}

// BundledSource concatenates the processed sources of the flattened
// requirement graph, each trimmed of trailing newlines and separated by a
// blank line.
func (a *Asset) BundledSource(ctx context.Context) (string, error) {
	if a.bundled != nil {
		return *a.bundled, nil
	}
	if a.Static {
		a.bundled = &a.Source
		return a.Source, nil
	}

	all := a.Requirements.All()
	digest := treeDigest(all)
	if !a.BundleExpired() {
		if rec, ok := a.env.loadSource(ctx, a.AbsolutePath, stageBundled); ok && rec.Digest == digest {
			a.bundled = &rec.Source
			return rec.Source, nil
		}
	}

	parts := make([]string, len(all))
	for i, r := range all {
		parts[i] = strings.TrimRight(r.ProcessedSource, "\n")
	}
	bundled := strings.Join(parts, "\n\n") + "\n"
	if err := a.env.saveSource(a.AbsolutePath, stageBundled, bundled, digest); err != nil {
		return "", err
	}
	a.bundled = &bundled
	return bundled, nil
}

// CompressedSource runs the bundle through the compressor registered for
// the MIME type, if any.
func (a *Asset) CompressedSource(ctx context.Context) (string, error) {
	if a.compressed != nil {
		return *a.compressed, nil
	}
	bundled, err := a.BundledSource(ctx)
	if err != nil {
		return "", err
	}
	comp := a.Attributes.Compressor()
	if a.Static || comp == nil {
		a.compressed = &bundled
		return bundled, nil
	}

	digest := hexdigest([]byte(bundled))
	if !a.BundleExpired() {
		if rec, ok := a.env.loadSource(ctx, a.AbsolutePath, stageCompressed); ok && rec.Digest == digest {
			a.compressed = &rec.Source
			return rec.Source, nil
		}
	}

	ctxlog.FromContext(ctx).Debug("compress", "handler", HandlerName(comp), "path", a.Attributes.Path)
	compressed, err := comp.Compress(ctx, bundled)
	if err != nil {
		return "", fmt.Errorf("compress %s: %w", a.Attributes.Path, err)
	}
	if err := a.env.saveSource(a.AbsolutePath, stageCompressed, compressed, digest); err != nil {
		return "", err
	}
	a.compressed = &compressed
	return compressed, nil
}

// FinalHexdigest is the SHA-1 of the compressed source.
func (a *Asset) FinalHexdigest(ctx context.Context) (string, error) {
	s, err := a.CompressedSource(ctx)
	if err != nil {
		return "", err
	}
	return hexdigest([]byte(s)), nil
}

// HexdigestPath returns the fingerprinted output path of the asset.
func (a *Asset) HexdigestPath(ctx context.Context) (string, error) {
	d, err := a.FinalHexdigest(ctx)
	if err != nil {
		return "", err
	}
	return a.Attributes.HexdigestPath(d), nil
}

func (a *Asset) String() string { return a.AbsolutePath }
