// Package linter reports suspicious constructs in processed JavaScript and
// CSS. Findings are advisory and never fail a build.
package linter

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/javascript"
)

const (
	mimeJS  = "application/javascript"
	mimeCSS = "text/css"
)

type Diagnostic struct {
	Rule    string
	Message string
	Line    uint32 // 0-indexed
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s (%s)", d.Line+1, d.Message, d.Rule)
}

type rule struct {
	name  string
	query string
	// check returns a message for a capture, or "" to skip it.
	check func(n *sitter.Node, content []byte) string
}

var jsRules = []rule{
	{
		name:  "no-debugger",
		query: `(debugger_statement) @stmt`,
		check: func(*sitter.Node, []byte) string { return "debugger statement" },
	},
	{
		name: "no-console",
		query: `(call_expression
			function: (member_expression
				object: (identifier) @obj))`,
		check: func(n *sitter.Node, content []byte) string {
			if n.Content(content) != "console" {
				return ""
			}
			return "console call"
		},
	},
}

var cssRules = []rule{
	{
		name:  "no-empty-rule",
		query: `(rule_set (block) @block)`,
		check: func(n *sitter.Node, _ []byte) string {
			if n.NamedChildCount() > 0 {
				return ""
			}
			return "empty rule set"
		},
	},
}

// Lint checks content of the given MIME type. Types without rules return
// nil.
func Lint(ctx context.Context, content []byte, mimetype string) ([]Diagnostic, error) {
	var (
		lang  *sitter.Language
		rules []rule
	)
	switch mimetype {
	case mimeJS:
		lang, rules = javascript.GetLanguage(), jsRules
	case mimeCSS:
		lang, rules = css.GetLanguage(), cssRules
	default:
		return nil, nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()

	var diags []Diagnostic
	for _, r := range rules {
		q, err := sitter.NewQuery([]byte(r.query), lang)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.name, err)
		}
		qc := sitter.NewQueryCursor()
		qc.Exec(q, root)
		for {
			m, ok := qc.NextMatch()
			if !ok {
				break
			}
			for _, c := range m.Captures {
				if msg := r.check(c.Node, content); msg != "" {
					diags = append(diags, Diagnostic{Rule: r.name, Message: msg, Line: c.Node.StartPoint().Row})
				}
			}
		}
		qc.Close()
		q.Close()
	}
	return diags, nil
}
