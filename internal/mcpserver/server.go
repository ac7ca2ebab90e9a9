// Package mcpserver exposes transcript loading, search and correction as
// Model Context Protocol tools over stdio.
package mcpserver

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"transcript-search-service/internal/schema"
	"transcript-search-service/internal/service/session"
)

// Config holds the advertised server identity.
type Config struct {
	ServerName    string
	ServerVersion string
}

// Server wires the session pipeline to MCP tools.
type Server struct {
	config    Config
	mcpServer *sdk.Server
	store     *session.Store
	pipeline  *session.Pipeline
	validator *schema.Validator
}

// NewServer creates the MCP server and registers its tools.
func NewServer(cfg Config, store *session.Store, pipeline *session.Pipeline) *Server {
	if cfg.ServerName == "" {
		cfg.ServerName = "transcript-search"
	}
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	s := &Server{
		config:    cfg,
		store:     store,
		pipeline:  pipeline,
		validator: schema.New(),
	}

	s.mcpServer = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)
	s.registerTools()
	return s
}

// Run serves MCP over stdin/stdout until ctx is done or the client leaves.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &sdk.StdioTransport{})
}

// Connect serves a single client over t.
func (s *Server) Connect(ctx context.Context, t sdk.Transport) (*sdk.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name: "load_transcript",
		Description: "Load a transcript into a session, either by transcribing an audio file " +
			"or from text and timed segments. Returns the session ID used by the other tools.",
	}, s.handleLoad)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name: "search_transcript",
		Description: "Search a loaded transcript. Matching ignores case and accents; " +
			"near matches are scored and returned with their timestamp and surrounding text.",
	}, s.handleSearch)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name: "correct_transcript",
		Description: "Fix spelling and accents of a loaded transcript while keeping every " +
			"segment timestamp. Batches whose correction cannot be realigned keep their original text.",
	}, s.handleCorrect)
}
