package asset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agentic-research/gears/internal/cache"
	"github.com/agentic-research/gears/internal/ctxlog"
)

const (
	stageBundled    = cache.StageBundled
	stageCompressed = cache.StageCompressed
)

// restore fills a from its data record when the record is still fresh. The
// requirement graph is rebuilt from the stored edges without running any
// processor.
func (e *Environment) restore(ctx context.Context, a *Asset) (bool, error) {
	rec, err := e.Cache.LoadAsset(a.AbsolutePath)
	if errors.Is(err, cache.ErrCorrupt) {
		ctxlog.FromContext(ctx).Warn("discarding cache record", "path", a.AbsolutePath, "err", err)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", a.Attributes.Path, err)
	}
	if rec == nil || e.recordExpired(a, rec) {
		return false, nil
	}

	a.ProcessedSource = rec.ProcessedSource
	for k, v := range rec.Params {
		a.Params[k] = v
	}
	for _, d := range rec.Dependencies {
		a.Dependencies.restore(Dependency{Path: d.Path, ModTime: time.Unix(0, d.ModTime), Hexdigest: d.Hexdigest})
	}
	for _, r := range rec.Before {
		req, err := a.Require(ctx, e.NewAttributes(r.Path), r.AbsolutePath)
		if err != nil {
			return false, err
		}
		a.Requirements.before = append(a.Requirements.before, req)
	}
	for _, r := range rec.After {
		req, err := a.Require(ctx, e.NewAttributes(r.Path), r.AbsolutePath)
		if err != nil {
			return false, err
		}
		a.Requirements.after = append(a.Requirements.after, req)
	}
	a.Requirements.selfAdded = len(rec.After) > 0
	return true, nil
}

// recordExpired compares a against its stored record: a newer mtime, a
// different content digest, a changed dependency, or a requirement that no
// longer resolves to the stored file makes it stale.
func (e *Environment) recordExpired(a *Asset, rec *cache.AssetRecord) bool {
	if a.modTime.UnixNano() > rec.ModTime || a.hexdigest != rec.Hexdigest {
		return true
	}
	for _, edges := range [][]cache.Requirement{rec.Before, rec.After} {
		for _, r := range edges {
			abs, ok, err := e.findFile(r.Path)
			if err != nil || !ok || abs != r.AbsolutePath {
				return true
			}
		}
	}
	for _, d := range rec.Dependencies {
		cur, err := e.snapshot(d.Path)
		if err != nil {
			return true
		}
		if cur.ModTime.UnixNano() > d.ModTime || cur.Hexdigest != d.Hexdigest {
			return true
		}
	}
	return false
}

func (a *Asset) record() *cache.AssetRecord {
	rec := &cache.AssetRecord{
		AbsolutePath:    a.AbsolutePath,
		ModTime:         a.modTime.UnixNano(),
		Hexdigest:       a.hexdigest,
		ProcessedSource: a.ProcessedSource,
	}
	if len(a.Params) > 0 {
		rec.Params = a.Params
	}
	for _, r := range a.Requirements.before {
		rec.Before = append(rec.Before, cache.Requirement{AbsolutePath: r.AbsolutePath, Path: r.Attributes.Path})
	}
	for _, r := range a.Requirements.after {
		rec.After = append(rec.After, cache.Requirement{AbsolutePath: r.AbsolutePath, Path: r.Attributes.Path})
	}
	for _, d := range a.Dependencies.items {
		rec.Dependencies = append(rec.Dependencies, cache.Dependency{
			Path:      d.Path,
			ModTime:   d.ModTime.UnixNano(),
			Hexdigest: d.Hexdigest,
		})
	}
	return rec
}

func (e *Environment) loadSource(ctx context.Context, p string, stage cache.Stage) (*cache.SourceRecord, bool) {
	rec, err := e.Cache.LoadSource(p, stage)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("discarding cache record", "path", p, "stage", stage, "err", err)
		return nil, false
	}
	return rec, rec != nil
}

func (e *Environment) saveSource(p string, stage cache.Stage, source, digest string) error {
	if err := e.Cache.SaveSource(p, stage, &cache.SourceRecord{Source: source, Digest: digest}); err != nil {
		return fmt.Errorf("save %s %s: %w", stage, p, err)
	}
	return nil
}

// treeDigest identifies a flattened requirement graph by path and processed
// content, so a bundle record is only reused for the exact same inputs.
func treeDigest(all []*Asset) string {
	var b strings.Builder
	for _, a := range all {
		b.WriteString(a.AbsolutePath)
		b.WriteByte(0)
		b.WriteString(hexdigest([]byte(a.ProcessedSource)))
		b.WriteByte('\n')
	}
	return hexdigest([]byte(b.String()))
}
