package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/tokens"
	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/google/uuid"
)

const (
	loginPath   = "/login"
	refreshPath = "/token/refresh"
	healthPath  = "/health"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 1 << 20

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

type HTTPClient struct {
	baseURL string
	hc      *http.Client
	log     logging.Logger
}

// NewHTTPClient returns a client for the auth service at baseURL. hc may be
// nil, in which case http.DefaultClient is used. It must not be a client
// whose transport refreshes tokens, since Refresh itself goes through it.
func NewHTTPClient(baseURL string, hc *http.Client, log logging.Logger) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      hc,
		log:     log.With("component", "auth-client"),
	}
}

func (c *HTTPClient) Login(ctx context.Context, username string, password []byte) (tokens.Pair, error) {
	return c.exchange(ctx, loginPath, loginRequest{Username: username, Password: string(password)})
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (tokens.Pair, error) {
	return c.exchange(ctx, refreshPath, refreshRequest{RefreshToken: refreshToken})
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, healthPath, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	return mapStatus(resp.StatusCode)
}

func (c *HTTPClient) exchange(ctx context.Context, path string, payload any) (tokens.Pair, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return tokens.Pair{}, fmt.Errorf("encode request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return tokens.Pair{}, err
	}
	defer resp.Body.Close()

	if err := mapStatus(resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return tokens.Pair{}, err
	}

	var tr tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&tr); err != nil {
		return tokens.Pair{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if tr.Token == "" || tr.RefreshToken == "" {
		return tokens.Pair{}, fmt.Errorf("%w: missing token", ErrMalformedResponse)
	}
	return tokens.Pair{AccessToken: tr.Token, RefreshToken: tr.RefreshToken}, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set(common.RequestIDHeaderName, requestID)

	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Debug(ctx, "auth request failed", "path", path, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	c.log.Debug(ctx, "auth request done", "path", path, "request_id", requestID, "status", resp.StatusCode)
	return resp, nil
}

func mapStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusBadGateway, code == http.StatusServiceUnavailable, code == http.StatusGatewayTimeout:
		return ErrUnavailable
	default:
		return fmt.Errorf("unexpected status %d", code)
	}
}
