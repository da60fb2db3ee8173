package processors

import (
	"context"

	"github.com/agentic-research/gears/internal/asset"
	"github.com/agentic-research/gears/internal/ctxlog"
	"github.com/agentic-research/gears/internal/linter"
)

// Lint logs linter findings for the processed source at warn level. It
// never changes the source or fails the build.
type Lint struct{}

func (Lint) Name() string { return "lint" }

func (Lint) Process(ctx context.Context, a *asset.Asset) error {
	diags, err := linter.Lint(ctx, []byte(a.ProcessedSource), a.Attributes.MIMEType)
	if err != nil {
		return err
	}
	log := ctxlog.FromContext(ctx)
	for _, d := range diags {
		log.Warn("lint", "path", a.Attributes.Path, "line", d.Line+1, "rule", d.Rule, "detail", d.Message)
	}
	return nil
}
