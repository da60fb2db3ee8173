package asset

import (
	"path"
	"regexp"
	"slices"
	"strings"
)

// DefaultMIMEType is reported for paths without a recognized format.
const DefaultMIMEType = "application/octet-stream"

var extensionRE = regexp.MustCompile(`\.[^.]+`)

// Attributes is everything derivable from a root-relative path and the
// environment's registries. It is computed once by NewAttributes and never
// changes afterwards.
type Attributes struct {
	env *Environment

	// Path is the relative (or logical) path as given, slash-separated.
	Path string
	// Dir is the directory part of Path, "" at the root.
	Dir string
	// Extensions are the dot-prefixed tokens of the basename, in order.
	Extensions []string
	// FormatExtension names the output type, "" when none is recognized.
	FormatExtension string
	// Suffix is the tail of Extensions that encodes type and compiler chain.
	Suffix []string
	// PathWithoutSuffix is Path with the joined Suffix removed.
	PathWithoutSuffix string
	// LogicalPath is the path the built asset is published under.
	LogicalPath string
	// CompilerExtensions and Compilers list the compilers to run, outermost
	// first. They are applied in reverse.
	CompilerExtensions []string
	Compilers          []Compiler
	MIMEType           string
	// SearchPaths are the candidates probed when resolving Path.
	SearchPaths []string

	// Implied is set when FormatExtension was derived from the outermost
	// compiler's result type rather than read from the filename.
	Implied bool
}

// NewAttributes computes the attributes of p against the current registries.
func (e *Environment) NewAttributes(p string) *Attributes {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	a := &Attributes{
		env:  e,
		Path: p,
		Dir:  path.Dir(p),
	}
	if a.Dir == "." {
		a.Dir = ""
	}
	a.Extensions = extensionRE.FindAllString(path.Base(p), -1)

	formatIndex := -1
	for i := len(a.Extensions) - 1; i >= 0; i-- {
		ext := a.Extensions[i]
		if e.Compilers.Has(ext) {
			continue
		}
		if e.MIMETypes.Has(ext) {
			formatIndex = i
			break
		}
	}

	switch {
	case formatIndex >= 0:
		a.FormatExtension = a.Extensions[formatIndex]
		a.Suffix = slices.Clone(a.Extensions[formatIndex:])
		for _, ext := range a.Suffix[1:] {
			if e.Compilers.Has(ext) {
				a.CompilerExtensions = append(a.CompilerExtensions, ext)
			}
		}
	case a.implyFormat():
	default:
		a.Suffix = slices.Clone(a.Extensions)
		if len(a.Suffix) > 1 {
			for _, ext := range a.Suffix[1:] {
				if e.Compilers.Has(ext) {
					a.CompilerExtensions = append(a.CompilerExtensions, ext)
				}
			}
		}
	}

	for _, ext := range a.CompilerExtensions {
		if c, ok := e.Compilers.Get(ext); ok {
			a.Compilers = append(a.Compilers, c)
		}
	}

	a.PathWithoutSuffix = strings.TrimSuffix(p, strings.Join(a.Suffix, ""))
	if a.FormatExtension != "" {
		a.LogicalPath = a.PathWithoutSuffix + a.FormatExtension
	} else {
		a.LogicalPath = p
	}

	a.MIMEType = DefaultMIMEType
	if mt, ok := e.MIMETypes.Get(a.FormatExtension); ok && a.FormatExtension != "" {
		a.MIMEType = mt
	}

	a.SearchPaths = []string{p}
	if path.Base(a.PathWithoutSuffix) != "index" {
		a.SearchPaths = append(a.SearchPaths, path.Join(a.PathWithoutSuffix, "index")+strings.Join(a.Suffix, ""))
	}
	return a
}

// implyFormat handles names such as app.coffee: when the filename ends in a
// run of compiler extensions and the outermost one produces a registered
// MIME type, the first extension registered for that type becomes the
// format and the run becomes the suffix.
func (a *Attributes) implyFormat() bool {
	e := a.env
	start := len(a.Extensions)
	for start > 0 && e.Compilers.Has(a.Extensions[start-1]) {
		start--
	}
	if start == len(a.Extensions) {
		return false
	}
	outer, _ := e.Compilers.Get(a.Extensions[start])
	result := outer.ResultMIMEType()
	if result == "" {
		return false
	}
	for _, m := range e.MIMETypes.Entries() {
		if m.Value == result {
			a.FormatExtension = m.Key
			a.Implied = true
			a.Suffix = slices.Clone(a.Extensions[start:])
			a.CompilerExtensions = slices.Clone(a.Suffix)
			return true
		}
	}
	return false
}

// Environment returns the environment the attributes were computed against.
func (a *Attributes) Environment() *Environment { return a.env }

// Preprocessors returns the preprocessors registered for the MIME type.
func (a *Attributes) Preprocessors() []Processor {
	return a.env.Preprocessors.Get(a.MIMEType)
}

// Postprocessors returns the postprocessors registered for the MIME type.
func (a *Attributes) Postprocessors() []Processor {
	return a.env.Postprocessors.Get(a.MIMEType)
}

// Compressor returns the compressor registered for the MIME type, or nil.
func (a *Attributes) Compressor() Compressor {
	c, ok := a.env.Compressors.Get(a.MIMEType)
	if !ok {
		return nil
	}
	return c
}

// IsStatic reports whether the file passes through untouched: no
// processor, compiler or compressor applies to it.
func (a *Attributes) IsStatic() bool {
	return len(a.Preprocessors()) == 0 && len(a.Compilers) == 0 &&
		len(a.Postprocessors()) == 0 && a.Compressor() == nil
}

// HexdigestPath returns the fingerprinted output path for digest, e.g.
// js/app.<digest>.js.
func (a *Attributes) HexdigestPath(digest string) string {
	ext := a.FormatExtension
	if ext == "" {
		ext = strings.Join(a.Suffix, "")
	}
	return a.PathWithoutSuffix + "." + digest + ext
}

func (a *Attributes) String() string { return a.Path }
