// Package mcpserver exposes an asset environment to agents over the Model
// Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/agentic-research/gears/internal/asset"
	"github.com/agentic-research/gears/internal/ctxlog"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Source stages accepted by build_asset.
const (
	SourceProcessed  = "processed"
	SourceBundled    = "bundled"
	SourceCompressed = "compressed"
)

// Server wraps one environment. Every tool call builds with its own call
// stack, so calls may run concurrently.
type Server struct {
	env *asset.Environment
	mcp *server.MCPServer
}

// New registers the gears tools on a fresh MCP server.
func New(env *asset.Environment, version string) *Server {
	s := &Server{
		env: env,
		mcp: server.NewMCPServer("gears", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("resolve_asset",
		mcp.WithDescription("Resolve a logical asset path (e.g. js/app.js) to its source file and attributes"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Logical path")),
	), s.resolveAsset)

	s.mcp.AddTool(mcp.NewTool("build_asset",
		mcp.WithDescription("Build an asset and return its source"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Logical path")),
		mcp.WithString("source",
			mcp.Description("Which source to return"),
			mcp.Enum(SourceProcessed, SourceBundled, SourceCompressed),
		),
	), s.buildAsset)

	s.mcp.AddTool(mcp.NewTool("asset_requirements",
		mcp.WithDescription("List the flattened requirement order and tracked dependencies of an asset"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Logical path")),
	), s.assetRequirements)

	s.mcp.AddTool(mcp.NewTool("invalidate_path",
		mcp.WithDescription("Evict cached build products affected by a changed source file"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the changed file")),
	), s.invalidatePath)

	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio serves on stdin and stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

type resolved struct {
	LogicalPath  string   `json:"logical_path"`
	Path         string   `json:"path"`
	AbsolutePath string   `json:"absolute_path"`
	MIMEType     string   `json:"mime_type"`
	Suffix       []string `json:"suffix"`
	Compilers    []string `json:"compilers,omitempty"`
}

type built struct {
	LogicalPath   string `json:"logical_path"`
	HexdigestPath string `json:"hexdigest_path,omitempty"`
	Expired       bool   `json:"expired"`
	Source        string `json:"source"`
}

type requirements struct {
	LogicalPath  string   `json:"logical_path"`
	Requirements []string `json:"requirements"`
	Dependencies []string `json:"dependencies"`
}

type invalidated struct {
	Affected []string `json:"affected"`
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) resolveAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	attrs, abs, err := s.env.FindLogical(p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(resolved{
		LogicalPath:  attrs.LogicalPath,
		Path:         attrs.Path,
		AbsolutePath: abs,
		MIMEType:     attrs.MIMEType,
		Suffix:       attrs.Suffix,
		Compilers:    attrs.CompilerExtensions,
	})
}

func (s *Server) buildAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stage := req.GetString("source", SourceBundled)

	a, err := s.env.BuildAsset(ctx, p)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("build failed", "logical", p, "err", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := built{LogicalPath: a.Attributes.LogicalPath, Expired: a.Expired()}
	switch stage {
	case SourceProcessed:
		out.Source = a.ProcessedSource
	case SourceBundled:
		out.Source, err = a.BundledSource(ctx)
	case SourceCompressed:
		out.Source, err = a.CompressedSource(ctx)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown source %q", stage)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.env.Fingerprinting {
		if out.HexdigestPath, err = a.HexdigestPath(ctx); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	return jsonResult(out)
}

func (s *Server) assetRequirements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.env.BuildAsset(ctx, p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := requirements{
		LogicalPath:  a.Attributes.LogicalPath,
		Requirements: []string{},
		Dependencies: a.Dependencies.Paths(),
	}
	for _, r := range a.Requirements.All() {
		out.Requirements = append(out.Requirements, r.Attributes.Path)
	}
	return jsonResult(out)
}

func (s *Server) invalidatePath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !filepath.IsAbs(p) {
		return mcp.NewToolResultError(fmt.Sprintf("path %q is not absolute", p)), nil
	}
	affected, err := s.env.Invalidate(p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if affected == nil {
		affected = []string{}
	}
	ctxlog.FromContext(ctx).Info("invalidated", "path", p, "affected", len(affected))
	return jsonResult(invalidated{Affected: affected})
}
