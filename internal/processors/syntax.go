package processors

import (
	"context"
	"fmt"

	"github.com/agentic-research/gears/internal/asset"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/javascript"
)

// SyntaxError locates the first parse error in a processed source.
type SyntaxError struct {
	Path   string
	Line   uint32 // 0-indexed
	Column uint32 // 0-indexed
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: syntax error", e.Path, e.Line+1, e.Column+1)
}

// Syntax parses the processed source with tree-sitter and fails the build
// on a syntax error. MIME types without a grammar pass through.
type Syntax struct{}

func (Syntax) Name() string { return "syntax" }

func (Syntax) Process(ctx context.Context, a *asset.Asset) error {
	return Validate(ctx, a.Attributes.MIMEType, a.Attributes.Path, []byte(a.ProcessedSource))
}

func languageFor(mimetype string) *sitter.Language {
	switch mimetype {
	case asset.MIMETypeJS:
		return javascript.GetLanguage()
	case asset.MIMETypeCSS:
		return css.GetLanguage()
	default:
		return nil
	}
}

// Validate parses content as mimetype and returns a *SyntaxError for the
// first ERROR or MISSING node.
func Validate(ctx context.Context, mimetype, name string, content []byte) error {
	lang := languageFor(mimetype)
	if lang == nil {
		return nil
	}
	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return fmt.Errorf("tree-sitter parse failed for %s: %w", name, err)
	}
	root := tree.RootNode()
	if root == nil {
		return fmt.Errorf("tree-sitter returned nil root for %s", name)
	}
	if !root.HasError() {
		return nil
	}
	if n := firstError(root); n != nil {
		return &SyntaxError{Path: name, Line: n.StartPoint().Row, Column: n.StartPoint().Column}
	}
	return &SyntaxError{Path: name}
}

func firstError(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.HasError() || child.IsError() || child.IsMissing() {
			if found := firstError(child); found != nil {
				return found
			}
		}
	}
	return nil
}
