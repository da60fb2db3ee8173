package api

// Config is the root configuration of a gears pipeline, usually read from
// gears.hcl. Relative paths are resolved against BaseDir.
type Config struct {
	// BaseDir is the directory the configuration was loaded from.
	BaseDir string `json:"base_dir"`
	// Root is the output directory built assets are saved to.
	Root string `json:"root"`
	// Fingerprinting enables content-hashed output names and url() rewrites.
	Fingerprinting bool `json:"fingerprinting"`
	// Manifest is the path of the logical-to-fingerprinted map. A .yml or
	// .yaml extension selects YAML, anything else JSON.
	Manifest string `json:"manifest,omitempty"`
	// Directories are the source locations, searched in order.
	Directories []string `json:"directories"`
	// Public lists logical paths built by default.
	Public []string `json:"public,omitempty"`
	// Validate enables the tree-sitter syntax check on JS and CSS output.
	Validate bool `json:"validate,omitempty"`
	// Precompress lists extra encodings written next to each output
	// ("gzip", "zstd").
	Precompress []string `json:"precompress,omitempty"`

	Cache       Cache        `json:"cache"`
	MIMETypes   []MIMEType   `json:"mimetypes,omitempty"`
	Compilers   []Compiler   `json:"compilers,omitempty"`
	Compressors []Compressor `json:"compressors,omitempty"`
}

// Cache selects the cache backend.
type Cache struct {
	// Backend is one of memory, sqlite, file or none.
	Backend string `json:"backend"`
	// Path is the database file (sqlite) or directory (file).
	Path string `json:"path,omitempty"`
	// Size bounds the memory backend in entries.
	Size int `json:"size,omitempty"`
}

// MIMEType registers an extension as a format.
type MIMEType struct {
	Extension string `json:"extension"`
	Type      string `json:"type"`
}

// Compiler binds an extension to an external command reading the source
// on stdin and writing the result to stdout. Arguments are text/template
// strings over {Name, AbsolutePath, LogicalPath}.
type Compiler struct {
	Extension      string   `json:"extension"`
	ResultMIMEType string   `json:"result_mimetype,omitempty"`
	Command        []string `json:"command"`
}

// Compressor binds a MIME type to an external minifier.
type Compressor struct {
	MIMEType string   `json:"mimetype"`
	Command  []string `json:"command"`
}
