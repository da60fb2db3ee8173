// Package directives splits the leading comment header off a source file
// and extracts the directive lines it contains, e.g.
//
//	/*
//	 *= require jquery
//	 *= require_tree .
//	 */
package directives

import (
	"regexp"
	"strings"
)

var (
	// headerRE matches a run of comments at the very top of a file: block
	// comments, and consecutive // or # line comments, with whitespace
	// between them.
	headerRE = regexp.MustCompile(`\A(?s:\s*(?:/\*.*?\*/|//[^\n]*))+`)

	// hashHeaderRE additionally accepts # line comments.
	hashHeaderRE = regexp.MustCompile(`\A(?s:\s*(?:/\*.*?\*/|//[^\n]*|#[^\n]*))+`)

	// directiveRE matches one directive line inside the header.
	directiveRE = regexp.MustCompile(`^\s*(?:\*|//|#)\s*=\s*(\w[^\n]*?)\s*(?:\*/)?\s*$`)
)

// Directive is one extracted directive line.
type Directive struct {
	// Line is the 1-based line number in the original source.
	Line int
	Text string
}

// Parser splits headers. With HashComments set, # line comments count as
// header comments; leave it off for languages where # starts code, such
// as CSS selectors.
type Parser struct {
	HashComments bool
}

// Split returns the header and the remaining body.
func (p Parser) Split(source string) (header, body string) {
	start, end := p.header(source)
	return source[start:end], source[end:]
}

// header returns the byte span of the header in source; start == end when
// there is none.
func (p Parser) header(source string) (start, end int) {
	re := headerRE
	if p.HashComments {
		re = hashHeaderRE
	}
	loc := re.FindStringIndex(source)
	if loc == nil {
		return 0, 0
	}
	return loc[0], loc[1]
}

// Parse extracts the directives from the header and returns them with the
// body that follows the header, trimmed and newline-terminated. Header
// text that is not a directive is dropped.
func (p Parser) Parse(source string) ([]Directive, string) {
	start, end := p.header(source)
	first := strings.Count(source[:start], "\n") + 1
	var out []Directive
	for i, line := range strings.Split(source[start:end], "\n") {
		if m := directiveRE.FindStringSubmatch(line); m != nil {
			out = append(out, Directive{Line: first + i, Text: m[1]})
		}
	}
	return out, strings.TrimSpace(source[end:]) + "\n"
}

// IsDirective reports whether line is a directive line.
func IsDirective(line string) bool {
	return directiveRE.MatchString(line)
}
