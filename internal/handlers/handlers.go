// Package handlers provides compilers and compressors backed by external
// tools. Each variant is a Command plus the MIME type it produces; the
// subprocess plumbing is shared through package external.
package handlers

import (
	"context"
	"fmt"
	"sort"

	"github.com/agentic-research/gears/internal/asset"
	"github.com/agentic-research/gears/internal/external"
)

// ExecCompiler compiles an asset's processed source through a subprocess.
type ExecCompiler struct {
	Command external.Command
	Result  string
	// wrap post-processes the tool output, e.g. to register a template.
	wrap func(d asset.ExecData, out string) string
}

// NewExecCompiler returns a compiler running command and producing result.
func NewExecCompiler(name, result string, command []string) *ExecCompiler {
	return &ExecCompiler{Command: external.New(name, command...), Result: result}
}

func (c *ExecCompiler) Name() string           { return c.Command.Name }
func (c *ExecCompiler) ResultMIMEType() string { return c.Result }

func (c *ExecCompiler) Process(ctx context.Context, a *asset.Asset) error {
	d := a.ExecData()
	out, err := c.Command.Run(ctx, a.AbsolutePath, a.ProcessedSource, d)
	if err != nil {
		return err
	}
	if c.wrap != nil {
		out = c.wrap(d, out)
	}
	a.ProcessedSource = out
	return nil
}

// ExecCompressor compresses a bundle through a subprocess.
type ExecCompressor struct {
	Command external.Command
}

// NewExecCompressor returns a compressor running command.
func NewExecCompressor(name string, command []string) *ExecCompressor {
	return &ExecCompressor{Command: external.New(name, command...)}
}

func (c *ExecCompressor) Name() string { return c.Command.Name }

func (c *ExecCompressor) Compress(ctx context.Context, source string) (string, error) {
	return c.Command.Run(ctx, "", source, nil)
}

// Default commands. Each reads source on stdin and writes the result to stdout.
var (
	CoffeeScriptCommand = []string{"coffee", "--compile", "--stdio", "--bare"}
	LessCommand         = []string{"lessc", "-"}
	StylusCommand       = []string{"stylus", "--print", "--include", "{{dir .AbsolutePath}}"}
	HandlebarsCommand   = []string{"handlebars", "--simple", "/dev/stdin"}
	UglifyJSCommand     = []string{"uglifyjs", "--compress", "--mangle"}
	CleanCSSCommand     = []string{"cleancss"}
)

func pick(command, fallback []string) []string {
	if len(command) > 0 {
		return command
	}
	return fallback
}

// CoffeeScript compiles .coffee sources to JavaScript.
func CoffeeScript(command ...string) *ExecCompiler {
	return NewExecCompiler("coffeescript", asset.MIMETypeJS, pick(command, CoffeeScriptCommand))
}

// Less compiles .less sources to CSS.
func Less(command ...string) *ExecCompiler {
	return NewExecCompiler("less", asset.MIMETypeCSS, pick(command, LessCommand))
}

// Stylus compiles .styl sources to CSS. The source directory is passed as
// an include path so relative @import works.
func Stylus(command ...string) *ExecCompiler {
	return NewExecCompiler("stylus", asset.MIMETypeCSS, pick(command, StylusCommand))
}

const handlebarsWrapper = `(function() {
  var template  = Handlebars.template,
      templates = Handlebars.templates = Handlebars.templates || {};
  templates['%s'] = template(%s);
}).call(this);`

// Handlebars precompiles templates and registers each under its path
// without suffix in Handlebars.templates.
func Handlebars(command ...string) *ExecCompiler {
	c := NewExecCompiler("handlebars", asset.MIMETypeJS, pick(command, HandlebarsCommand))
	c.wrap = func(d asset.ExecData, out string) string {
		return fmt.Sprintf(handlebarsWrapper, d.Name, out)
	}
	return c
}

// UglifyJS minifies JavaScript bundles.
func UglifyJS(command ...string) *ExecCompressor {
	return NewExecCompressor("uglifyjs", pick(command, UglifyJSCommand))
}

// CleanCSS minifies CSS bundles.
func CleanCSS(command ...string) *ExecCompressor {
	return NewExecCompressor("cleancss", pick(command, CleanCSSCommand))
}

var builtinCompilers = map[string]func(...string) *ExecCompiler{
	".coffee":     CoffeeScript,
	".less":       Less,
	".styl":       Stylus,
	".hbs":        Handlebars,
	".handlebars": Handlebars,
}

var builtinCompressors = map[string]func(...string) *ExecCompressor{
	asset.MIMETypeJS:  UglifyJS,
	asset.MIMETypeCSS: CleanCSS,
}

// Compiler returns the built-in compiler for ext with command overriding
// its default argv, if ext has one.
func Compiler(ext string, command []string) (*ExecCompiler, bool) {
	f, ok := builtinCompilers[ext]
	if !ok {
		return nil, false
	}
	return f(command...), true
}

// Compressor returns the built-in compressor for mimetype, if any.
func Compressor(mimetype string, command []string) (*ExecCompressor, bool) {
	f, ok := builtinCompressors[mimetype]
	if !ok {
		return nil, false
	}
	return f(command...), true
}

// CompilerExtensions lists the extensions with a built-in compiler.
func CompilerExtensions() []string {
	out := make([]string, 0, len(builtinCompilers))
	for ext := range builtinCompilers {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
