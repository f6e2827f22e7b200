package server

// Route path constants
const (
	// OAuth 2.1 authorization server
	RouteRegister  = "/register"
	RouteAuthorize = "/authorize"
	RouteCallback  = "/callback"
	RouteToken     = "/token"
	RouteRevoke    = "/revoke"

	// Discovery
	RouteWellKnownAuthorizationServer = "/.well-known/oauth-authorization-server"
	RouteWellKnownProtectedResource   = "/.well-known/oauth-protected-resource"

	// MCP resource
	RouteMCP = "/mcp"

	RouteHealth = "/health"
)

// Header names used by the MCP streamable HTTP transport.
const (
	HeaderSessionID       = "Mcp-Session-Id"
	HeaderProtocolVersion = "Mcp-Protocol-Version"
)
