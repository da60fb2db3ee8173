package asset

import (
	"context"
	"fmt"
)

// Processor rewrites an asset in place. It may replace ProcessedSource, add
// requirements, or add dependencies.
type Processor interface {
	Process(ctx context.Context, a *Asset) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, a *Asset) error

func (f ProcessorFunc) Process(ctx context.Context, a *Asset) error { return f(ctx, a) }

// Compiler is a processor bound to a source extension. ResultMIMEType is
// the type it produces, or "" for template engines that keep the type of
// their input.
type Compiler interface {
	Processor
	ResultMIMEType() string
}

// Compressor minifies a finished bundle.
type Compressor interface {
	Compress(ctx context.Context, source string) (string, error)
}

// Named is implemented by handlers that report a stable name for logs and
// the cache namespace.
type Named interface {
	Name() string
}

// HandlerName returns h's name, falling back to its Go type.
func HandlerName(h any) string {
	if n, ok := h.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}
