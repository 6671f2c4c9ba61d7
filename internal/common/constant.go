package common

// AuthorizationHeaderName is the HTTP header (and lower-cased gRPC metadata
// key) that carries the bearer access token on outbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in the authorization header value.
const BearerPrefix = "Bearer "

// RequestIDHeaderName correlates client requests with auth server logs.
const RequestIDHeaderName = "X-Request-ID"
