package processors

import (
	"context"
	"errors"
	"path"
	"regexp"
	"strings"

	"github.com/agentic-research/gears/internal/asset"
	"github.com/agentic-research/gears/internal/asseterr"
)

var urlRE = regexp.MustCompile(`url\((['"]?)\s*([^'")]*?)\s*(['"]?)\)`)

// HexdigestPaths rewrites url() references in stylesheets to the
// fingerprinted path of the referenced asset. It does nothing unless the
// environment fingerprints its output.
type HexdigestPaths struct{}

func (HexdigestPaths) Name() string { return "hexdigest_paths" }

func (h HexdigestPaths) Process(ctx context.Context, a *asset.Asset) error {
	if !a.Environment().Fingerprinting {
		return nil
	}
	var firstErr error
	out := urlRE.ReplaceAllStringFunc(a.ProcessedSource, func(m string) string {
		if firstErr != nil {
			return m
		}
		sub := urlRE.FindStringSubmatch(m)
		if sub[1] != sub[3] {
			return m
		}
		rewritten, err := h.rewrite(ctx, a, sub[2])
		if err != nil {
			firstErr = err
			return m
		}
		return "url(" + sub[1] + rewritten + sub[1] + ")"
	})
	if firstErr != nil {
		return firstErr
	}
	a.ProcessedSource = out
	return nil
}

// rewrite maps one url() target. Absolute, protocol and data URLs and
// targets that do not resolve are returned unchanged.
func (HexdigestPaths) rewrite(ctx context.Context, a *asset.Asset, target string) (string, error) {
	if target == "" || strings.HasPrefix(target, "/") || strings.HasPrefix(target, "data:") ||
		strings.HasPrefix(target, "#") || strings.Contains(target, "://") || strings.HasPrefix(target, "//") {
		return target, nil
	}
	clean, tail := target, ""
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		clean, tail = target[:i], target[i:]
	}

	env := a.Environment()
	logical := path.Clean(path.Join(a.Attributes.Dir, clean))
	attrs, abs, err := env.FindLogical(logical)
	if errors.Is(err, asseterr.ErrFileNotFound) {
		return target, nil
	}
	if err != nil {
		return "", err
	}
	ref, err := a.Require(ctx, attrs, abs)
	if err != nil {
		return "", err
	}
	if err := a.Dependencies.Add(abs); err != nil {
		return "", err
	}
	hexPath, err := ref.HexdigestPath(ctx)
	if err != nil {
		return "", err
	}
	return relPath(a.Attributes.Dir, hexPath) + tail, nil
}

// relPath returns target relative to the directory dir, both slash-separated
// and root-relative.
func relPath(dir, target string) string {
	if dir == "" || dir == "." {
		return target
	}
	from := strings.Split(dir, "/")
	to := strings.Split(target, "/")
	i := 0
	for i < len(from) && i < len(to)-1 && from[i] == to[i] {
		i++
	}
	parts := make([]string, 0, len(from)-i+len(to)-i)
	for range from[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, to[i:]...)
	return strings.Join(parts, "/")
}
