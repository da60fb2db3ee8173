// Package config loads gears.hcl into an api.Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/agentic-research/gears/api"
	"github.com/agentic-research/gears/internal/asseterr"
	"github.com/agentic-research/gears/internal/handlers"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "gears.hcl"

// Environment variables that override the file.
const (
	EnvConfig       = "GEARS_CONFIG"
	EnvCacheBackend = "GEARS_CACHE_BACKEND"
	EnvCachePath    = "GEARS_CACHE_PATH"
	EnvLogLevel     = "GEARS_LOG_LEVEL"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendNone   = "none"
)

// Precompressed encodings.
const (
	EncodingGzip = "gzip"
	EncodingZstd = "zstd"
)

// hclFile mirrors the file layout. Scalars are pointers so absent
// attributes keep their defaults.
type hclFile struct {
	Root           *string  `hcl:"root,optional"`
	Fingerprinting *bool    `hcl:"fingerprinting,optional"`
	Manifest       *string  `hcl:"manifest,optional"`
	Directories    []string `hcl:"directories,optional"`
	Public         []string `hcl:"public,optional"`
	Validate       *bool    `hcl:"validate,optional"`
	Precompress    []string `hcl:"precompress,optional"`

	Cache       *hclCache       `hcl:"cache,block"`
	MIMETypes   []hclMIMEType   `hcl:"mimetype,block"`
	Compilers   []hclCompiler   `hcl:"compiler,block"`
	Compressors []hclCompressor `hcl:"compressor,block"`
}

type hclCache struct {
	Backend *string `hcl:"backend,optional"`
	Path    *string `hcl:"path,optional"`
	Size    *int    `hcl:"size,optional"`
}

type hclMIMEType struct {
	Extension string `hcl:"extension,label"`
	Type      string `hcl:"type"`
}

type hclCompiler struct {
	Extension      string   `hcl:"extension,label"`
	ResultMIMEType string   `hcl:"result_mimetype,optional"`
	Command        []string `hcl:"command,optional"`
}

type hclCompressor struct {
	MIMEType string   `hcl:"mimetype,label"`
	Command  []string `hcl:"command,optional"`
}

// Default returns a configuration that builds assets/ into public/static
// with an in-memory cache.
func Default() *api.Config {
	return &api.Config{
		BaseDir:     ".",
		Root:        "public/static",
		Manifest:    "public/static/.manifest.json",
		Directories: []string{"assets"},
		Cache: api.Cache{
			Backend: BackendMemory,
			Size:    4096,
		},
	}
}

// Path picks the configuration file: the explicit path, then
// GEARS_CONFIG, then gears.hcl if it exists. An empty result means
// defaults only.
func Path(explicit string, getenv func(string) string) string {
	if explicit != "" {
		return explicit
	}
	if p := getenv(EnvConfig); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile
	}
	return ""
}

// Load reads the file at path over the defaults, applies environment
// overrides and validates the result. An empty path loads defaults only.
func Load(path string, getenv func(string) string) (*api.Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	ApplyEnv(cfg, getenv)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *api.Config) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return asseterr.Improperly("config file %s does not exist", path)
	}
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("parse %s: %w", path, &asseterr.ConfigError{Msg: diags.Error()})
	}

	var raw hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return fmt.Errorf("decode %s: %w", path, &asseterr.ConfigError{Msg: diags.Error()})
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	cfg.BaseDir = abs
	merge(cfg, &raw)
	return nil
}

func merge(cfg *api.Config, raw *hclFile) {
	set(&cfg.Root, raw.Root)
	set(&cfg.Fingerprinting, raw.Fingerprinting)
	set(&cfg.Manifest, raw.Manifest)
	set(&cfg.Validate, raw.Validate)
	if raw.Directories != nil {
		cfg.Directories = raw.Directories
	}
	if raw.Public != nil {
		cfg.Public = raw.Public
	}
	if raw.Precompress != nil {
		cfg.Precompress = raw.Precompress
	}
	if c := raw.Cache; c != nil {
		set(&cfg.Cache.Backend, c.Backend)
		set(&cfg.Cache.Path, c.Path)
		set(&cfg.Cache.Size, c.Size)
	}
	for _, m := range raw.MIMETypes {
		cfg.MIMETypes = append(cfg.MIMETypes, api.MIMEType{Extension: m.Extension, Type: m.Type})
	}
	for _, c := range raw.Compilers {
		cfg.Compilers = append(cfg.Compilers, api.Compiler{
			Extension:      c.Extension,
			ResultMIMEType: c.ResultMIMEType,
			Command:        c.Command,
		})
	}
	for _, c := range raw.Compressors {
		cfg.Compressors = append(cfg.Compressors, api.Compressor{MIMEType: c.MIMEType, Command: c.Command})
	}
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// ApplyEnv overrides the cache settings from GEARS_CACHE_BACKEND and
// GEARS_CACHE_PATH.
func ApplyEnv(cfg *api.Config, getenv func(string) string) {
	if getenv == nil {
		return
	}
	if v := getenv(EnvCacheBackend); v != "" {
		cfg.Cache.Backend = v
	}
	if v := getenv(EnvCachePath); v != "" {
		cfg.Cache.Path = v
	}
}

// Validate reports the first inconsistency as a ConfigError.
func Validate(cfg *api.Config) error {
	if len(cfg.Directories) == 0 {
		return asseterr.Improperly("at least one source directory is required")
	}
	if cfg.Root == "" {
		return asseterr.Improperly("root must not be empty")
	}

	switch cfg.Cache.Backend {
	case BackendMemory, BackendNone:
	case BackendSQLite, BackendFile:
		if cfg.Cache.Path == "" {
			return asseterr.Improperly("cache backend %q needs a path", cfg.Cache.Backend)
		}
	default:
		return asseterr.Improperly("unknown cache backend %q", cfg.Cache.Backend)
	}
	if cfg.Cache.Size < 0 {
		return asseterr.Improperly("cache size must not be negative")
	}

	for _, enc := range cfg.Precompress {
		if enc != EncodingGzip && enc != EncodingZstd {
			return asseterr.Improperly("unknown precompress encoding %q", enc)
		}
	}

	seen := make(map[string]bool)
	for _, m := range cfg.MIMETypes {
		if !strings.HasPrefix(m.Extension, ".") {
			return asseterr.Improperly("mimetype extension %q must start with a dot", m.Extension)
		}
		if m.Type == "" {
			return asseterr.Improperly("mimetype %q has no type", m.Extension)
		}
		if seen[m.Extension] {
			return asseterr.Improperly("mimetype %q declared twice", m.Extension)
		}
		seen[m.Extension] = true
	}

	clear(seen)
	for _, c := range cfg.Compilers {
		if !strings.HasPrefix(c.Extension, ".") {
			return asseterr.Improperly("compiler extension %q must start with a dot", c.Extension)
		}
		if _, builtin := handlers.Compiler(c.Extension, nil); !builtin && !hasCommand(c.Command) {
			return asseterr.Improperly("compiler %q has no command", c.Extension)
		}
		if seen[c.Extension] {
			return asseterr.Improperly("compiler %q declared twice", c.Extension)
		}
		seen[c.Extension] = true
	}

	clear(seen)
	for _, c := range cfg.Compressors {
		if c.MIMEType == "" {
			return asseterr.Improperly("compressor without a MIME type")
		}
		if _, builtin := handlers.Compressor(c.MIMEType, nil); !builtin && !hasCommand(c.Command) {
			return asseterr.Improperly("compressor %q has no command", c.MIMEType)
		}
		if seen[c.MIMEType] {
			return asseterr.Improperly("compressor %q declared twice", c.MIMEType)
		}
		seen[c.MIMEType] = true
	}
	return nil
}

func hasCommand(argv []string) bool {
	return len(argv) > 0 && argv[0] != ""
}

// Abs resolves p against the configuration's base directory.
func Abs(cfg *api.Config, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(cfg.BaseDir, p)
}

// Directories returns the source directories as absolute paths, in order
// and without duplicates.
func Directories(cfg *api.Config) []string {
	var out []string
	for _, d := range cfg.Directories {
		a := Abs(cfg, d)
		if !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	return out
}
