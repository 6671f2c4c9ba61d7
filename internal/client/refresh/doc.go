// Package refresh recovers from rejected access tokens.
//
// Coordinator collapses any number of concurrent "my token was rejected"
// reports into a single refresh-token exchange. Transport (net/http) and
// UnaryClientInterceptor (gRPC) attach the current access token to outgoing
// calls, ask the Coordinator for a new one when the server rejects it, and
// retry the call once.
//
// The bundled CLI talks HTTP only and never dials a gRPC connection;
// UnaryClientInterceptor is for embedders with a gRPC surface.
package refresh
