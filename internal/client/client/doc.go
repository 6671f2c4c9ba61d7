// Package client talks to the remote auth service.
//
// # Overview
//
// Client is the transport-agnostic contract used by the rest of the client:
// Login exchanges credentials for a token pair, Refresh exchanges a refresh
// token for a new pair, and Ping checks reachability. HTTPClient implements
// it over JSON:
//
//	POST {base}/login          {"username","password"}  -> {"token","refresh_token"}
//	POST {base}/token/refresh  {"refresh_token"}        -> {"token","refresh_token"}
//	GET  {base}/health
//
// Every request carries a fresh X-Request-ID.
//
// # Error Handling
//
// HTTP statuses are mapped to sentinel errors callers can match with
// errors.Is: ErrUnauthorized for 401/403, ErrUnavailable for transport
// failures and 502/503/504, ErrMalformedResponse for a 2xx body without both
// tokens.
package client
