package directives

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func texts(ds []Directive) []string {
	var out []string
	for _, d := range ds {
		out = append(out, d.Text)
	}
	return out
}

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		hash       bool
		source     string
		directives []string
		body       string
	}{
		{
			name:   "no directives",
			source: "var a = 1;\n",
			body:   "var a = 1;\n",
		},
		{
			name:   "strips surrounding whitespace",
			source: "\n\n   var a = 1;\n\n\n",
			body:   "var a = 1;\n",
		},
		{
			name: "multiline comment",
			source: "/*\n *= require reset\n *= require base\n */\n\n" +
				"body { color: red; }\n",
			directives: []string{"require reset", "require base"},
			body:       "body { color: red; }\n",
		},
		{
			name:       "slash comments",
			source:     "//= require jquery\n//= require underscore\n\n$(function () {});\n",
			directives: []string{"require jquery", "require underscore"},
			body:       "$(function () {});\n",
		},
		{
			name:       "dash comments",
			hash:       true,
			source:     "#= require jquery\n#= require_tree .\n\nalert 'hi'\n",
			directives: []string{"require jquery", "require_tree ."},
			body:       "alert 'hi'\n",
		},
		{
			name: "multiple comment blocks",
			source: "/* header\n *= require jquery\n *= require underscore\n */\n" +
				"// app\n//= require backbone\n\n" +
				"/*\n *= require models\n *= require collections\n *= require views\n */\n" +
				"App.start();\n",
			directives: []string{
				"require jquery", "require underscore", "require backbone",
				"require models", "require collections", "require views",
			},
			body: "App.start();\n",
		},
		{
			name: "skips comments after the header",
			source: "//= require jquery\n\nvar a;\n\n" +
				"//= require underscore\n",
			directives: []string{"require jquery"},
			body:       "var a;\n\n//= require underscore\n",
		},
		{
			name:       "drops plain header comments",
			source:     "/* Copyright */\n// more\nvar a;\n",
			directives: nil,
			body:       "var a;\n",
		},
		{
			name:       "quoted unicode argument",
			source:     "//= require \"библиотека/ядро\"\nx();\n",
			directives: []string{`require "библиотека/ядро"`},
			body:       "x();\n",
		},
		{
			name:       "closing delimiter on directive line",
			source:     "/*\n *= require a */\nb {}\n",
			directives: []string{"require a"},
			body:       "b {}\n",
		},
		{
			name:   "hash is code without hash comments",
			source: "#main { color: red; }\n",
			body:   "#main { color: red; }\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, body := Parser{HashComments: tt.hash}.Parse(tt.source)
			assert.Equal(t, tt.directives, texts(ds))
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestParse_LineNumbers(t *testing.T) {
	ds, _ := Parser{}.Parse("/*\n * Title\n *= require a\n *= require b\n */\n")
	assert.Equal(t, []Directive{{Line: 3, Text: "require a"}, {Line: 4, Text: "require b"}}, ds)
}

func TestParse_LineNumbersAfterLeadingBlankLines(t *testing.T) {
	ds, body := Parser{}.Parse("\n\n// = require a\n//= require b\nrun();\n")
	assert.Equal(t, []Directive{{Line: 3, Text: "require a"}, {Line: 4, Text: "require b"}}, ds)
	assert.Equal(t, "run();\n", body)
}

func TestSplit_HeaderShapes(t *testing.T) {
	for _, src := range []string{
		"\n\n/*\nmultiline comment\n */",
		"/* comment */\n\n/* comment */",
		"  // this\n\n  // is\n  // comment",
	} {
		header, body := Parser{}.Split(src)
		assert.Equal(t, src, header)
		assert.Empty(t, body)
	}

	src := "  # this\n  \n  # is\n  # comment"
	header, _ := Parser{HashComments: true}.Split(src)
	assert.Equal(t, src, header)
}

func TestIsDirective(t *testing.T) {
	for _, line := range []string{" *= require jquery", " * =require jquery", "//= require jquery", " #= require jquery"} {
		assert.True(t, IsDirective(line), line)
	}
	for _, line := range []string{" * require jquery", "// require jquery", "= require jquery"} {
		assert.False(t, IsDirective(line), line)
	}
}
