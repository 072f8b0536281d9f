// Package mcp provides an MCP (Model Context Protocol) server exposing result
// decoding and stored events as tools.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/sift/pkg/storage"
	"github.com/papercomputeco/sift/pkg/utils"
)

const instructions = "sift decodes search result documents into events. " +
	"Use decode_results on a document you have, and list_events to page through events sift has already stored."

type Config struct {
	// Driver backs list_events.
	Driver storage.Driver

	// Noop serves an MCP server without tools.
	Noop bool

	Logger *slog.Logger
}

func (c Config) validate() error {
	switch {
	case c.Noop:
		return nil
	case c.Driver == nil:
		return errors.New("storage driver is required")
	case c.Logger == nil:
		return errors.New("logger is required")
	}
	return nil
}

type Server struct {
	config  Config
	handler http.Handler
}

// NewServer builds the MCP server and its stateless streamable HTTP handler.
func NewServer(c Config) (*Server, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	s := &Server{config: c}

	srv := mcp.NewServer(
		&mcp.Implementation{Name: "sift", Version: utils.Version},
		&mcp.ServerOptions{Instructions: instructions},
	)
	if !c.Noop {
		s.addTools(srv)
	}

	s.handler = mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return srv },
		&mcp.StreamableHTTPOptions{Stateless: true},
	)
	return s, nil
}

func (s *Server) addTools(srv *mcp.Server) {
	mcp.AddTool(srv, &mcp.Tool{Name: decodeToolName, Description: decodeDescription}, s.handleDecode)
	mcp.AddTool(srv, &mcp.Tool{Name: listEventsToolName, Description: listEventsDescription}, s.handleListEvents)
}

// Handler returns the HTTP handler mounted at /mcp.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// errorResult reports a tool failure to the client as content rather than a
// protocol error.
func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
