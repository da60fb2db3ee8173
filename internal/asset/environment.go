// Package asset implements the build core: resolving logical paths to
// source files, the asset model with its requirement graph, and the cache
// checks that decide what must be rebuilt.
package asset

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/agentic-research/gears/internal/asseterr"
	"github.com/agentic-research/gears/internal/cache"
	"github.com/agentic-research/gears/internal/ctxlog"
	"github.com/agentic-research/gears/internal/finder"
	"github.com/agentic-research/gears/internal/registry"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/zeebo/blake3"
)

// Default MIME types registered by RegisterDefaults.
const (
	MIMETypeCSS = "text/css"
	MIMETypeJS  = "application/javascript"
)

// Options configures a new Environment.
type Options struct {
	// Root is the output directory built assets are saved to.
	Root string
	// Fingerprinting enables content-hashed output names and url() rewrites.
	Fingerprinting bool
	// Cache stores build products across runs. Nil disables caching.
	Cache cache.Backend
}

// Environment holds the registries and finders one pipeline is configured
// with. Registries may be changed between builds; the suffix table and the
// cache namespace are recomputed lazily after any change.
type Environment struct {
	Root           string
	Fingerprinting bool

	Finders        finder.Finders
	MIMETypes      *registry.Ordered[string]
	Compilers      *registry.Ordered[Compiler]
	Preprocessors  *registry.Lists[Processor]
	Postprocessors *registry.Lists[Processor]
	Compressors    *registry.Ordered[Compressor]
	PublicAssets   *registry.Set

	Cache *cache.Store

	host billy.Filesystem

	mu        sync.Mutex
	suffixes  *registry.Suffixes
	namespace string
}

// New returns an environment with empty registries.
func New(opts Options) *Environment {
	e := &Environment{
		Root:           opts.Root,
		Fingerprinting: opts.Fingerprinting,
		MIMETypes:      registry.NewOrdered[string](),
		Compilers:      registry.NewOrdered[Compiler](),
		Preprocessors:  registry.NewLists[Processor](),
		Postprocessors: registry.NewLists[Processor](),
		Compressors:    registry.NewOrdered[Compressor](),
		PublicAssets:   registry.NewSet(),
		Cache:          cache.NewStore(opts.Cache),
		host:           osfs.New("/"),
	}
	e.MIMETypes.OnChange(e.invalidate)
	e.Compilers.OnChange(e.invalidate)
	e.Preprocessors.OnChange(e.invalidate)
	e.Postprocessors.OnChange(e.invalidate)
	e.Compressors.OnChange(e.invalidate)
	return e
}

// RegisterDefaults registers the CSS and JavaScript MIME types and the
// default public assets. Processors are registered by the caller.
func (e *Environment) RegisterDefaults() {
	e.MIMETypes.Register(".css", MIMETypeCSS)
	e.MIMETypes.Register(".js", MIMETypeJS)
	e.PublicAssets.Add("css/style.css")
	e.PublicAssets.Add("js/script.js")
}

func (e *Environment) invalidate() {
	e.mu.Lock()
	e.suffixes = nil
	e.namespace = ""
	e.mu.Unlock()
}

// Suffixes returns the suffix table for the current registries.
func (e *Environment) Suffixes() *registry.Suffixes {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.suffixes == nil {
		var specs []registry.CompilerSpec
		for _, c := range e.Compilers.Entries() {
			specs = append(specs, registry.CompilerSpec{Extension: c.Key, ResultMIMEType: c.Value.ResultMIMEType()})
		}
		e.suffixes = registry.BuildSuffixes(e.MIMETypes.Entries(), specs)
	}
	return e.suffixes
}

// Namespace returns a digest of the registries. Cache keys are prefixed
// with it so records built under another configuration are never served.
func (e *Environment) Namespace() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.namespace == "" {
		e.namespace = e.describe()
	}
	return e.namespace
}

func (e *Environment) describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fingerprinting=%t\n", e.Fingerprinting)
	for _, m := range e.MIMETypes.Entries() {
		fmt.Fprintf(&b, "mimetype %s %s\n", m.Key, m.Value)
	}
	for _, c := range e.Compilers.Entries() {
		fmt.Fprintf(&b, "compiler %s %s %s\n", c.Key, c.Value.ResultMIMEType(), HandlerName(c.Value))
	}
	for _, mt := range e.Preprocessors.Keys() {
		for _, p := range e.Preprocessors.Get(mt) {
			fmt.Fprintf(&b, "preprocessor %s %s\n", mt, HandlerName(p))
		}
	}
	for _, mt := range e.Postprocessors.Keys() {
		for _, p := range e.Postprocessors.Get(mt) {
			fmt.Fprintf(&b, "postprocessor %s %s\n", mt, HandlerName(p))
		}
	}
	for _, c := range e.Compressors.Entries() {
		fmt.Fprintf(&b, "compressor %s %s\n", c.Key, HandlerName(c.Value))
	}
	sum := blake3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}

// prepare pins the cache namespace before a build touches the store.
func (e *Environment) prepare() {
	e.Cache.SetNamespace(e.Namespace())
}

// Read returns the bytes of the file at the absolute path p.
func (e *Environment) Read(p string) ([]byte, error) {
	data, err := util.ReadFile(e.host, p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, asseterr.NotFound(p)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

// ReadText returns the file at p as text. Bytes that are not valid UTF-8
// are a UnicodeError.
func (e *Environment) ReadText(p string) (string, error) {
	data, err := e.Read(p)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", &asseterr.UnicodeError{Path: p, Msg: "invalid UTF-8 byte sequence"}
	}
	return string(data), nil
}

// Stat returns file info for the absolute path p.
func (e *Environment) Stat(p string) (os.FileInfo, error) {
	info, err := e.host.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, asseterr.NotFound(p)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	return info, nil
}

// FindPath resolves a concrete root-relative path to an absolute one.
// Directories match.
func (e *Environment) FindPath(rel string) (string, os.FileInfo, error) {
	return e.Finders.Find(rel)
}

// findFile resolves rel concretely and requires a regular file.
func (e *Environment) findFile(rel string) (string, bool, error) {
	abs, info, err := e.Finders.Find(rel)
	if errors.Is(err, asseterr.ErrFileNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if info.IsDir() {
		return "", false, nil
	}
	return abs, true, nil
}

// resolve tries one path: literally, then with logical suffix expansion.
func (e *Environment) resolve(p string, logical bool) (*Attributes, string, error) {
	abs, ok, err := e.findFile(p)
	if err != nil {
		return nil, "", err
	}
	if ok {
		return e.NewAttributes(p), abs, nil
	}
	if !logical {
		return nil, "", asseterr.NotFound(p)
	}

	attrs := e.NewAttributes(p)
	stem := attrs.PathWithoutSuffix
	candidates := e.Suffixes().ForMIMEType(attrs.MIMEType)
	if attrs.FormatExtension == "" {
		stem = attrs.Path
		candidates = e.Suffixes().Strings()
	}
	for _, suffix := range candidates {
		candidate := stem + suffix
		if candidate == p {
			continue
		}
		abs, ok, err := e.findFile(candidate)
		if err != nil {
			return nil, "", err
		}
		if ok {
			return e.NewAttributes(candidate), abs, nil
		}
	}
	return nil, "", asseterr.NotFound(p)
}

// Find resolves attrs through its search paths; the first hit wins. With
// logical set, each search path is also tried with every registered suffix
// producing its MIME type.
func (e *Environment) Find(attrs *Attributes, logical bool) (*Attributes, string, error) {
	for _, p := range attrs.SearchPaths {
		found, abs, err := e.resolve(p, logical)
		if errors.Is(err, asseterr.ErrFileNotFound) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return found, abs, nil
	}
	return nil, "", asseterr.NotFound(attrs.Path)
}

// FindLogical resolves a logical path such as js/app.js.
func (e *Environment) FindLogical(p string) (*Attributes, string, error) {
	return e.Find(e.NewAttributes(p), true)
}

// Listed is one asset produced by List.
type Listed struct {
	Attributes   *Attributes
	AbsolutePath string
}

// List returns the assets below dir whose MIME type is mimetype (any type
// when mimetype is ""), sorted by logical path.
func (e *Environment) List(dir string, recursive bool, mimetype string) ([]Listed, error) {
	entries, err := e.Finders.List(dir, recursive)
	if err != nil {
		return nil, err
	}
	var out []Listed
	for _, en := range entries {
		attrs := e.NewAttributes(en.Path)
		if mimetype != "" && attrs.MIMEType != mimetype {
			continue
		}
		out = append(out, Listed{Attributes: attrs, AbsolutePath: en.AbsolutePath})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Attributes.LogicalPath < out[j].Attributes.LogicalPath
	})
	return out, nil
}

// ListAll returns every asset reachable through the finders, sorted by
// logical path.
func (e *Environment) ListAll() ([]Listed, error) {
	return e.List(".", true, "")
}

// BuildAsset resolves the logical path p and builds it with a fresh call
// stack.
func (e *Environment) BuildAsset(ctx context.Context, p string) (*Asset, error) {
	attrs, abs, err := e.FindLogical(p)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("resolved asset", "logical", p, "path", abs)
	e.prepare()
	return e.load(ctx, attrs, abs, NewCallStack())
}

// Invalidate evicts cached records made stale by a change to the absolute
// path p and returns the affected assets.
func (e *Environment) Invalidate(p string) ([]string, error) {
	e.prepare()
	return e.Cache.Invalidate(filepath.Clean(p))
}
