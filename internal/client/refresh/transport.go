package refresh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
)

// ErrBodyNotReplayable is returned when the token was refreshed but the
// rejected request's body cannot be sent again. The caller may resend the
// request; it will carry the new token.
var ErrBodyNotReplayable = errors.New("request body cannot be replayed")

// TokenSource supplies the access token and receives reachability reports.
type TokenSource interface {
	AccessToken(ctx context.Context) string
	SetOfflineState()
	SetOnlineState()
}

// Transport is an http.RoundTripper for protected API calls. A 401 response
// triggers Coordinator.Recover and a single retry with the new token.
type Transport struct {
	base        http.RoundTripper
	source      TokenSource
	coordinator *Coordinator
}

// NewTransport wraps base, or http.DefaultTransport when base is nil.
func NewTransport(base http.RoundTripper, source TokenSource, coordinator *Coordinator) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, source: source, coordinator: coordinator}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	token := t.source.AccessToken(ctx)
	resp, err := t.send(req, token)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	newToken, err := t.coordinator.Recover(ctx, token)
	if err != nil {
		discard(resp)
		return nil, fmt.Errorf("%w: %w", common.ErrNotAuthenticated, err)
	}

	retry := req.Clone(ctx)
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			discard(resp)
			return nil, ErrBodyNotReplayable
		}
		body, err := req.GetBody()
		if err != nil {
			discard(resp)
			return nil, fmt.Errorf("%w: %w", ErrBodyNotReplayable, err)
		}
		retry.Body = body
	}
	discard(resp)

	return t.send(retry, newToken)
}

func (t *Transport) send(req *http.Request, token string) (*http.Response, error) {
	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	} else {
		out.Header.Del(common.AuthorizationHeaderName)
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		t.source.SetOfflineState()
		return nil, err
	}
	t.source.SetOnlineState()
	return resp, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
