package server

import "net/http"

func (s *Server) initRoutes() {
	// OAuth2 authorization server
	s.RegisterRouteHandler("POST "+RouteRegister, ChainMiddleware(s.Register(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthorize, ChainMiddleware(s.Authorize(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.Callback(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteToken, ChainMiddleware(s.Token(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteRevoke, ChainMiddleware(s.Revoke(), s.APIMiddleware()...))

	// Discovery
	s.RegisterRouteHandler("GET "+RouteWellKnownAuthorizationServer, ChainMiddleware(s.WellKnownAuthorizationServer(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteWellKnownProtectedResource, ChainMiddleware(s.WellKnownProtectedResource(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteWellKnownProtectedResource+RouteMCP, ChainMiddleware(s.WellKnownProtectedResource(), s.APIMiddleware()...))

	// MCP resource (requires a valid access token)
	s.RegisterRouteHandler("POST "+RouteMCP, ChainMiddleware(s.MCPPost(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteMCP, ChainMiddleware(s.MCPStream(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("DELETE "+RouteMCP, ChainMiddleware(s.MCPDelete(), s.APIMiddleware(s.RequireAuth())...))

	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.Health(), s.APIMiddleware()...))

	// CORS preflight for every path
	s.RegisterRouteHandler("OPTIONS /{path...}", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.APIMiddleware()...))
}
