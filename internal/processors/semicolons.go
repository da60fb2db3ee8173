package processors

import (
	"context"
	"strings"

	"github.com/agentic-research/gears/internal/asset"
)

// Semicolons terminates JavaScript sources with a semicolon so bundles
// can be concatenated safely.
type Semicolons struct{}

func (Semicolons) Name() string { return "semicolons" }

func (Semicolons) Process(_ context.Context, a *asset.Asset) error {
	if NeedsSemicolon(a.ProcessedSource) {
		a.ProcessedSource += ";\n"
	}
	return nil
}

// NeedsSemicolon reports whether source is non-blank and does not already
// end in a semicolon, ignoring trailing whitespace.
func NeedsSemicolon(source string) bool {
	trimmed := strings.TrimRight(source, " \t\r\n\f\v")
	return trimmed != "" && !strings.HasSuffix(trimmed, ";")
}
