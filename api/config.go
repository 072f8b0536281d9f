// Package api provides an HTTP API server for decoding result streams and
// querying stored events.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// BodyLimit caps request bodies in bytes. Zero uses fiber's default.
	BodyLimit int

	// DisableMCP serves an empty MCP server at /mcp.
	DisableMCP bool
}
