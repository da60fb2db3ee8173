// Package pipeline assembles an asset.Environment from an api.Config and
// drives whole builds.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentic-research/gears/api"
	"github.com/agentic-research/gears/internal/asset"
	"github.com/agentic-research/gears/internal/asseterr"
	"github.com/agentic-research/gears/internal/cache"
	"github.com/agentic-research/gears/internal/config"
	"github.com/agentic-research/gears/internal/ctxlog"
	"github.com/agentic-research/gears/internal/finder"
	"github.com/agentic-research/gears/internal/handlers"
	"github.com/agentic-research/gears/internal/manifest"
	"github.com/agentic-research/gears/internal/processors"
	"github.com/agentic-research/gears/internal/saver"
)

// NewBackend opens the cache backend selected by cfg. It returns nil for
// the none backend.
func NewBackend(cfg *api.Config) (cache.Backend, error) {
	switch cfg.Cache.Backend {
	case config.BackendMemory:
		return cache.NewMemory(cfg.Cache.Size)
	case config.BackendSQLite:
		return cache.NewSQLite(config.Abs(cfg, cfg.Cache.Path))
	case config.BackendFile:
		return cache.NewFile(config.Abs(cfg, cfg.Cache.Path))
	case config.BackendNone, "":
		return nil, nil
	}
	return nil, asseterr.Improperly("unknown cache backend %q", cfg.Cache.Backend)
}

// NewEnvironment returns an environment with the default MIME types and
// processors plus everything cfg declares:
//
//   - the directives preprocessor for CSS and JavaScript
//   - the semicolons postprocessor for JavaScript
//   - the hexdigest paths postprocessor for CSS
//   - the syntax postprocessor for both when validation is on
//   - configured MIME types, compilers and compressors
//
// The caller closes env.Cache.
func NewEnvironment(cfg *api.Config) (*asset.Environment, error) {
	dirs := config.Directories(cfg)
	f, err := finder.NewFileSystemFinder(dirs)
	if err != nil {
		return nil, err
	}
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}

	env := asset.New(asset.Options{
		Root:           config.Abs(cfg, cfg.Root),
		Fingerprinting: cfg.Fingerprinting,
		Cache:          backend,
	})
	env.RegisterDefaults()
	env.Finders.Register(f)

	for _, m := range cfg.MIMETypes {
		env.MIMETypes.Register(m.Extension, m.Type)
	}
	for _, p := range cfg.Public {
		env.PublicAssets.Add(p)
	}

	env.Preprocessors.Register(asset.MIMETypeCSS, processors.Directives{})
	env.Preprocessors.Register(asset.MIMETypeJS, processors.Directives{})
	env.Postprocessors.Register(asset.MIMETypeJS, processors.Semicolons{})
	env.Postprocessors.Register(asset.MIMETypeCSS, processors.HexdigestPaths{})
	if cfg.Validate {
		env.Postprocessors.Register(asset.MIMETypeCSS, processors.Syntax{})
		env.Postprocessors.Register(asset.MIMETypeJS, processors.Syntax{})
		env.Postprocessors.Register(asset.MIMETypeCSS, processors.Lint{})
		env.Postprocessors.Register(asset.MIMETypeJS, processors.Lint{})
	}

	for _, c := range cfg.Compilers {
		compiler, ok := handlers.Compiler(c.Extension, c.Command)
		if !ok {
			compiler = handlers.NewExecCompiler(c.Extension[1:], c.ResultMIMEType, c.Command)
		} else if c.ResultMIMEType != "" {
			compiler.Result = c.ResultMIMEType
		}
		env.Compilers.Register(c.Extension, compiler)
	}
	for _, c := range cfg.Compressors {
		compressor, ok := handlers.Compressor(c.MIMEType, c.Command)
		if !ok {
			compressor = handlers.NewExecCompressor(c.MIMEType, c.Command)
		}
		env.Compressors.Register(c.MIMEType, compressor)
	}
	return env, nil
}

// Targets returns the logical paths a build without explicit paths covers:
// the public assets that resolve, and with all set every asset marked
// public by a params directive.
func Targets(ctx context.Context, env *asset.Environment, all bool) ([]string, error) {
	log := ctxlog.FromContext(ctx)
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range env.PublicAssets.Items() {
		if _, _, err := env.FindLogical(p); err != nil {
			if errors.Is(err, asseterr.ErrFileNotFound) {
				log.Debug("public asset not found", "logical", p)
				continue
			}
			return nil, err
		}
		add(p)
	}
	if !all {
		return out, nil
	}

	listed, err := env.ListAll()
	if errors.Is(err, asseterr.ErrFileNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	for _, l := range listed {
		if l.Attributes.MIMEType == asset.DefaultMIMEType {
			continue
		}
		a, err := env.BuildAsset(ctx, l.Attributes.LogicalPath)
		if err != nil {
			return nil, err
		}
		if a.Public() {
			add(l.Attributes.LogicalPath)
		}
	}
	return out, nil
}

// Build builds each logical path and saves it through s. It stops at the
// first failure; the manifest is flushed for whatever was saved.
func Build(ctx context.Context, env *asset.Environment, s *saver.Saver, paths []string) ([]saver.Result, error) {
	var results []saver.Result
	var buildErr error
	for _, p := range paths {
		a, err := env.BuildAsset(ctx, p)
		if err != nil {
			buildErr = fmt.Errorf("build %s: %w", p, err)
			break
		}
		res, err := s.Save(ctx, a)
		if err != nil {
			buildErr = fmt.Errorf("save %s: %w", p, err)
			break
		}
		results = append(results, res)
	}
	if err := s.Flush(); err != nil {
		return results, errors.Join(buildErr, fmt.Errorf("dump manifest: %w", err))
	}
	return results, buildErr
}

// OpenSaver returns a saver for cfg's output root, loading the manifest
// when fingerprinting is on.
func OpenSaver(cfg *api.Config) (*saver.Saver, error) {
	opts := saver.Options{
		Root:        config.Abs(cfg, cfg.Root),
		Precompress: cfg.Precompress,
	}
	if cfg.Fingerprinting && cfg.Manifest != "" {
		m, err := manifest.Load(config.Abs(cfg, cfg.Manifest))
		if err != nil {
			return nil, err
		}
		opts.Manifest = m
	}
	return saver.New(opts)
}
