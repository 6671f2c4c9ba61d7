package refresh

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/session"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/tokens"
	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// protectedAPI accepts only "Bearer <valid>" and records every
// Authorization header and body it sees.
type protectedAPI struct {
	valid string

	mu      sync.Mutex
	headers []string
	bodies  []string
	hits    atomic.Int32
}

func (p *protectedAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.hits.Add(1)
	body, _ := io.ReadAll(r.Body)
	auth := r.Header.Get(common.AuthorizationHeaderName)

	p.mu.Lock()
	p.headers = append(p.headers, auth)
	p.bodies = append(p.bodies, string(body))
	p.mu.Unlock()

	if auth != common.BearerPrefix+p.valid {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	_, _ = w.Write([]byte("ok"))
}

func (p *protectedAPI) seenHeaders() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.headers...)
}

func (p *protectedAPI) seenBodies() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.bodies...)
}

func newClient(f *fixture, ex Exchanger) *http.Client {
	return &http.Client{Transport: NewTransport(nil, f.session, f.coordinator(ex, time.Second))}
}

func TestTransport_AttachesBearer(t *testing.T) {
	api := &protectedAPI{valid: "a1"}
	srv := httptest.NewServer(api)
	defer srv.Close()

	f := newFixture(t, tokens.Pair{AccessToken: "a1", RefreshToken: "r"})
	resp, err := newClient(f, &fakeExchanger{}).Get(srv.URL + "/items")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Bearer a1"}, api.seenHeaders())
}

func TestTransport_401RefreshAndRetryOnce(t *testing.T) {
	api := &protectedAPI{valid: "new"}
	srv := httptest.NewServer(api)
	defer srv.Close()

	f := newFixture(t, tokens.Pair{AccessToken: "old", RefreshToken: "r"})
	ex := &fakeExchanger{pair: tokens.Pair{AccessToken: "new", RefreshToken: "r2"}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := f.session.Events(ctx)

	resp, err := newClient(f, ex).Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Bearer old", "Bearer new"}, api.seenHeaders())
	assert.EqualValues(t, 1, ex.calls.Load())
	assert.Equal(t, session.Authenticated, f.session.State())
	assertNoEvent(t, events)
}

func TestTransport_RetryReplaysBody(t *testing.T) {
	api := &protectedAPI{valid: "new"}
	srv := httptest.NewServer(api)
	defer srv.Close()

	f := newFixture(t, tokens.Pair{AccessToken: "old", RefreshToken: "r"})
	ex := &fakeExchanger{pair: tokens.Pair{AccessToken: "new", RefreshToken: "r2"}}

	resp, err := newClient(f, ex).Post(srv.URL, "text/plain", strings.NewReader("payload"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"payload", "payload"}, api.seenBodies())
}

func TestTransport_MissingRefreshTokenIsNotAuthenticated(t *testing.T) {
	api := &protectedAPI{valid: "never"}
	srv := httptest.NewServer(api)
	defer srv.Close()

	f := newFixture(t, tokens.Pair{AccessToken: "old"})
	ex := &fakeExchanger{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := f.session.Events(ctx)

	_, err := newClient(f, ex).Get(srv.URL)

	require.ErrorIs(t, err, common.ErrNotAuthenticated)
	require.ErrorIs(t, err, common.ErrRefreshTokenMissing)
	assert.Equal(t, session.RefreshTokenMissing, recvEvent(t, events))
	assert.Equal(t, session.SessionExpired, recvEvent(t, events))
	assert.Equal(t, session.Unauthenticated, f.session.State())
	assert.Equal(t, tokens.Pair{}, f.onDisk())
	assert.EqualValues(t, 1, api.hits.Load(), "the original request must not be retried")
	assert.Zero(t, ex.calls.Load())
}

func TestTransport_ConcurrentRejectionsShareOneRefresh(t *testing.T) {
	api := &protectedAPI{valid: "new"}
	srv := httptest.NewServer(api)
	defer srv.Close()

	f := newFixture(t, tokens.Pair{AccessToken: "old", RefreshToken: "r"})
	ex := &fakeExchanger{
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
		pair:    tokens.Pair{AccessToken: "new", RefreshToken: "r2"},
	}
	client := newClient(f, ex)

	const n = 3
	statuses := make([]int, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			resp, err := client.Get(srv.URL)
			errs[i] = err
			if err == nil {
				statuses[i] = resp.StatusCode
				resp.Body.Close()
			}
		}(i)
	}

	<-ex.entered
	// Hold the exchange until every request has been rejected once.
	require.Eventually(t, func() bool {
		count := 0
		for _, h := range api.seenHeaders() {
			if h == "Bearer old" {
				count++
			}
		}
		return count == n
	}, 2*time.Second, 5*time.Millisecond)
	close(ex.gate)
	wg.Wait()

	assert.EqualValues(t, 1, ex.calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, http.StatusOK, statuses[i])
	}
	assert.Len(t, api.seenHeaders(), 2*n)
}

func TestTransport_ReachabilityDrivesOfflineState(t *testing.T) {
	api := &protectedAPI{valid: "a"}
	srv := httptest.NewServer(api)

	f := newFixture(t, tokens.Pair{AccessToken: "a", RefreshToken: "r"})
	client := newClient(f, &fakeExchanger{})
	url := srv.URL
	srv.Close()

	_, err := client.Get(url)
	require.Error(t, err)
	assert.Equal(t, session.OfflineAuthenticated, f.session.State())

	srv = httptest.NewServer(api)
	defer srv.Close()
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, session.Authenticated, f.session.State())
}

func TestTransport_NetworkErrorWhileUnauthenticatedStaysUnauthenticated(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := newFixture(t, tokens.Pair{})
	_, err := newClient(f, &fakeExchanger{}).Get(url)
	require.Error(t, err)
	assert.Equal(t, session.Unauthenticated, f.session.State())
}

func TestTransport_UnreplayableBodyAfterRefresh(t *testing.T) {
	api := &protectedAPI{valid: "new"}
	srv := httptest.NewServer(api)
	defer srv.Close()

	f := newFixture(t, tokens.Pair{AccessToken: "old", RefreshToken: "r"})
	ex := &fakeExchanger{pair: tokens.Pair{AccessToken: "new", RefreshToken: "r2"}}
	c := newClient(f, ex)

	req, err := http.NewRequest(http.MethodPost, srv.URL, io.NopCloser(strings.NewReader("payload")))
	require.NoError(t, err)
	require.Nil(t, req.GetBody)

	resp, err := c.Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	require.ErrorIs(t, err, ErrBodyNotReplayable)
	assert.NotErrorIs(t, err, common.ErrNotAuthenticated)
	assert.EqualValues(t, 1, api.hits.Load())
	assert.EqualValues(t, 1, ex.calls.Load())
	assert.Equal(t, "new", f.session.AccessToken(context.Background()))

	resp, err = c.Post(srv.URL, "text/plain", strings.NewReader("payload"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTransport_GetBodyFailureAfterRefresh(t *testing.T) {
	api := &protectedAPI{valid: "new"}
	srv := httptest.NewServer(api)
	defer srv.Close()

	f := newFixture(t, tokens.Pair{AccessToken: "old", RefreshToken: "r"})
	ex := &fakeExchanger{pair: tokens.Pair{AccessToken: "new", RefreshToken: "r2"}}

	req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader("payload"))
	require.NoError(t, err)
	bodyErr := errors.New("body source closed")
	req.GetBody = func() (io.ReadCloser, error) { return nil, bodyErr }

	resp, err := newClient(f, ex).Do(req)
	if resp != nil {
		resp.Body.Close()
	}
	require.ErrorIs(t, err, ErrBodyNotReplayable)
	require.ErrorIs(t, err, bodyErr)
	assert.EqualValues(t, 1, api.hits.Load())
}
