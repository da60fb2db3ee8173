package registry

import "strings"

// Suffix is one valid extension chain together with the MIME type its
// build produces.
type Suffix struct {
	Extensions []string
	MIMEType   string
}

// String joins the extensions, e.g. ".js.coffee".
func (s Suffix) String() string {
	return strings.Join(s.Extensions, "")
}

// CompilerSpec describes a registered compiler for table construction.
// ResultMIMEType is empty for template engines that keep the input type.
type CompilerSpec struct {
	Extension      string
	ResultMIMEType string
}

// Suffixes is the table of every extension chain the environment can build.
type Suffixes struct {
	entries []Suffix
}

// BuildSuffixes computes the table from the MIME type registry and the
// compilers, both in registration order.
//
// Every MIME extension becomes a root suffix. A compiler with a result MIME
// type extends each chain of that type recorded so far, including chains
// earlier compilers produced, and also contributes a bare suffix of its own
// extension so implied-format files resolve. A compiler without a result
// type extends every suffix recorded so far.
func BuildSuffixes(mimetypes []Entry[string], compilers []CompilerSpec) *Suffixes {
	t := &Suffixes{}
	for _, m := range mimetypes {
		t.entries = append(t.entries, Suffix{Extensions: []string{m.Key}, MIMEType: m.Value})
	}
	// bare marks the implied-format entries; they are never extended by a
	// typed compiler.
	bare := make(map[int]bool)

	for _, c := range compilers {
		if c.ResultMIMEType == "" {
			snapshot := len(t.entries)
			for i := 0; i < snapshot; i++ {
				e := t.entries[i]
				t.entries = append(t.entries, Suffix{
					Extensions: append(append([]string{}, e.Extensions...), c.Extension),
					MIMEType:   e.MIMEType,
				})
			}
			continue
		}
		matched := false
		snapshot := len(t.entries)
		for i := 0; i < snapshot; i++ {
			e := t.entries[i]
			if bare[i] || e.MIMEType != c.ResultMIMEType {
				continue
			}
			matched = true
			t.entries = append(t.entries, Suffix{
				Extensions: append(append([]string{}, e.Extensions...), c.Extension),
				MIMEType:   c.ResultMIMEType,
			})
		}
		if matched {
			bare[len(t.entries)] = true
			t.entries = append(t.entries, Suffix{
				Extensions: []string{c.Extension},
				MIMEType:   c.ResultMIMEType,
			})
		}
	}
	return t
}

// All returns every suffix in table order.
func (t *Suffixes) All() []Suffix {
	return append([]Suffix(nil), t.entries...)
}

// ForMIMEType returns the joined suffix strings producing mimetype, in table order.
func (t *Suffixes) ForMIMEType(mimetype string) []string {
	var out []string
	for _, e := range t.entries {
		if e.MIMEType == mimetype {
			out = append(out, e.String())
		}
	}
	return out
}

// Strings returns every joined suffix string in table order.
func (t *Suffixes) Strings() []string {
	out := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.String())
	}
	return out
}
