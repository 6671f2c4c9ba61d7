package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/claims"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/keystore"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/session"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/tokens"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/stretchr/testify/require"
)

// fakeExchanger records refresh calls. When gate is set every call blocks
// until the gate is closed or ctx ends.
type fakeExchanger struct {
	calls   atomic.Int32
	entered chan struct{}
	gate    chan struct{}

	mu        sync.Mutex
	lastToken string
	lastCtx   context.Context

	pair tokens.Pair
	err  error
}

func (f *fakeExchanger) Refresh(ctx context.Context, refreshToken string) (tokens.Pair, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastToken = refreshToken
	f.lastCtx = ctx
	f.mu.Unlock()

	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return tokens.Pair{}, ctx.Err()
		}
	}
	return f.pair, f.err
}

type fixture struct {
	dir     string
	keys    keystore.Provider
	store   *tokens.Store
	session *session.Manager
}

// newFixture builds a real file-backed session holding pair.
func newFixture(t *testing.T, pair tokens.Pair) *fixture {
	t.Helper()
	f := &fixture{dir: t.TempDir(), keys: keystore.NewMemoryProvider("")}
	f.store = f.openStore()
	f.session = session.New(f.store, claims.NewDecoder(), logging.Discard())

	ctx := context.Background()
	if !pair.IsZero() {
		require.NoError(t, f.session.SaveTokens(ctx, pair))
	}
	f.session.LoadInitialAuthStatus(ctx)
	return f
}

func (f *fixture) openStore() *tokens.Store {
	codec := tokens.NewCodec(tokens.NewCipher(f.keys), logging.Discard())
	return tokens.NewStore(tokens.NewFileBackend(f.dir), codec, logging.Discard())
}

// onDisk reads the pair through a fresh store, bypassing any snapshot.
func (f *fixture) onDisk() tokens.Pair {
	return f.openStore().ReadCurrent(context.Background())
}

func (f *fixture) coordinator(ex Exchanger, timeout time.Duration) *Coordinator {
	return NewCoordinator(f.session, ex, timeout, logging.Discard())
}

func recvEvent(t *testing.T, ch <-chan session.Event) session.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return 0
	}
}

func assertNoEvent(t *testing.T, ch <-chan session.Event) {
	t.Helper()
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %s", e)
	case <-time.After(50 * time.Millisecond):
	}
}
