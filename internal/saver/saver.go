// Package saver writes built assets below the output root: the logical
// path, the fingerprinted path when fingerprinting is on, precompressed
// variants, and the manifest.
package saver

import (
	"bytes"
	"context"
	"fmt"

	"github.com/agentic-research/gears/internal/asset"
	"github.com/agentic-research/gears/internal/ctxlog"
	"github.com/agentic-research/gears/internal/manifest"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Encodings understood by Options.Precompress, with their file suffixes.
const (
	Gzip = "gzip"
	Zstd = "zstd"
)

var encodingSuffix = map[string]string{
	Gzip: ".gz",
	Zstd: ".zst",
}

// Options configures a Saver.
type Options struct {
	// Root is the output directory.
	Root string
	// Manifest, when set, receives logical to fingerprinted entries and is
	// dumped by Flush.
	Manifest *manifest.Manifest
	// Precompress lists extra encodings written next to every output.
	Precompress []string
}

// Saver is safe for concurrent Save calls on distinct assets.
type Saver struct {
	fs          billy.Filesystem
	manifest    *manifest.Manifest
	precompress []string
	zstd        *zstd.Encoder
}

// Result describes the files written for one asset.
type Result struct {
	LogicalPath   string
	HexdigestPath string
	Files         []string
	Size          int
}

// New returns a saver writing below opts.Root.
func New(opts Options) (*Saver, error) {
	s := &Saver{
		fs:          osfs.New(opts.Root),
		manifest:    opts.Manifest,
		precompress: opts.Precompress,
	}
	for _, enc := range opts.Precompress {
		switch enc {
		case Gzip:
		case Zstd:
			w, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
			if err != nil {
				return nil, fmt.Errorf("zstd encoder: %w", err)
			}
			s.zstd = w
		default:
			return nil, fmt.Errorf("unknown precompress encoding %q", enc)
		}
	}
	return s, nil
}

// Save writes a's compressed source.
func (s *Saver) Save(ctx context.Context, a *asset.Asset) (Result, error) {
	source, err := a.CompressedSource(ctx)
	if err != nil {
		return Result{}, err
	}
	data := []byte(source)
	res := Result{LogicalPath: a.Attributes.LogicalPath, Size: len(data)}

	targets := []string{res.LogicalPath}
	if a.Environment().Fingerprinting {
		p, err := a.HexdigestPath(ctx)
		if err != nil {
			return Result{}, err
		}
		res.HexdigestPath = p
		targets = append(targets, p)
	}

	for _, name := range targets {
		written, err := s.write(name, data)
		if err != nil {
			return Result{}, err
		}
		res.Files = append(res.Files, written...)
	}

	if s.manifest != nil && res.HexdigestPath != "" {
		s.manifest.Set(res.LogicalPath, res.HexdigestPath)
	}
	ctxlog.FromContext(ctx).Info("saved asset",
		"logical", res.LogicalPath,
		"fingerprinted", res.HexdigestPath,
		"bytes", res.Size,
	)
	return res, nil
}

// write stores data at name and at each precompressed variant.
func (s *Saver) write(name string, data []byte) ([]string, error) {
	if err := util.WriteFile(s.fs, name, data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", name, err)
	}
	files := []string{name}
	for _, enc := range s.precompress {
		encoded, err := s.encode(enc, data)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", enc, name, err)
		}
		variant := name + encodingSuffix[enc]
		if err := util.WriteFile(s.fs, variant, encoded, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", variant, err)
		}
		files = append(files, variant)
	}
	return files, nil
}

func (s *Saver) encode(enc string, data []byte) ([]byte, error) {
	switch enc {
	case Gzip:
		var buf bytes.Buffer
		w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case Zstd:
		return s.zstd.EncodeAll(data, nil), nil
	}
	return nil, fmt.Errorf("unknown encoding %q", enc)
}

// Flush dumps the manifest, if any.
func (s *Saver) Flush() error {
	if s.manifest == nil {
		return nil
	}
	return s.manifest.Dump()
}

// Close releases the encoders.
func (s *Saver) Close() error {
	if s.zstd != nil {
		return s.zstd.Close()
	}
	return nil
}
