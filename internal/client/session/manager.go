package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/claims"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/tokens"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
)

// TokenStore is the durable token pair the manager writes through.
type TokenStore interface {
	ReadCurrent(ctx context.Context) tokens.Pair
	UpdateAtomically(ctx context.Context, mutator func(tokens.Pair) tokens.Pair) (tokens.Pair, error)
}

// ClaimsDecoder turns an access token into claims, or nil.
type ClaimsDecoder interface {
	Decode(token string) *claims.UserClaims
}

// Manager is the session state machine. Create one per process and share it.
type Manager struct {
	store   TokenStore
	decoder ClaimsDecoder
	log     logging.Logger

	// mu serializes transitions; reads go through the atomics.
	mu     sync.Mutex
	state  atomic.Int32
	claims atomic.Pointer[claims.UserClaims]

	states    *replayHub[State]
	claimsHub *replayHub[*claims.UserClaims]
	events    *eventHub
}

func New(store TokenStore, decoder ClaimsDecoder, log logging.Logger) *Manager {
	m := &Manager{
		store:     store,
		decoder:   decoder,
		log:       log.With("component", "session"),
		states:    newReplayHub(Unauthenticated),
		claimsHub: newReplayHub[*claims.UserClaims](nil),
		events:    newEventHub(),
	}
	m.state.Store(int32(Unauthenticated))
	return m
}

// State returns the current state without blocking.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// CurrentUserClaims returns the last decoded claims snapshot, or nil.
func (m *Manager) CurrentUserClaims() *claims.UserClaims {
	return m.claims.Load()
}

func (m *Manager) AccessToken(ctx context.Context) string {
	return m.store.ReadCurrent(ctx).AccessToken
}

func (m *Manager) RefreshToken(ctx context.Context) string {
	return m.store.ReadCurrent(ctx).RefreshToken
}

// States streams the current state followed by every transition. The
// channel is closed when ctx ends.
func (m *Manager) States(ctx context.Context) <-chan State {
	return m.states.subscribe(ctx)
}

// Claims streams the claims snapshot the same way States does.
func (m *Manager) Claims(ctx context.Context) <-chan *claims.UserClaims {
	return m.claimsHub.subscribe(ctx)
}

// Events streams session events emitted after the call. Delivery is
// at-most-once.
func (m *Manager) Events(ctx context.Context) <-chan Event {
	return m.events.subscribe(ctx)
}

// LoadInitialAuthStatus derives the state from the stored tokens. A present
// access token means Authenticated even when it has already expired; the
// first rejected request will trigger a refresh.
func (m *Manager) LoadInitialAuthStatus(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pair := m.store.ReadCurrent(ctx)
	if pair.AccessToken == "" {
		m.setClaims(nil)
		m.setState(ctx, Unauthenticated)
		return
	}
	m.setClaims(m.decoder.Decode(pair.AccessToken))
	m.setState(ctx, Authenticated)
}

// SaveTokens persists pair, refreshes the claims snapshot and moves to
// Authenticated. If persisting fails nothing changes.
func (m *Manager) SaveTokens(ctx context.Context, pair tokens.Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.store.UpdateAtomically(ctx, func(tokens.Pair) tokens.Pair { return pair }); err != nil {
		m.log.Error(ctx, "failed to save tokens", "error", err)
		return fmt.Errorf("save tokens: %w", err)
	}
	m.setClaims(m.decoder.Decode(pair.AccessToken))
	m.setState(ctx, Authenticated)
	return nil
}

// ClearSession persists the empty pair, drops the claims, moves to
// Unauthenticated and emits SessionExpired. The in-memory transition happens
// even when persisting fails; the error is returned.
func (m *Manager) ClearSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.store.UpdateAtomically(ctx, func(tokens.Pair) tokens.Pair { return tokens.Pair{} })
	if err != nil {
		m.log.Error(ctx, "failed to persist cleared session", "error", err)
		err = fmt.Errorf("clear session: %w", err)
	}
	m.setClaims(nil)
	m.setState(ctx, Unauthenticated)
	m.emit(ctx, SessionExpired)
	return err
}

// HandleMissingRefreshToken emits RefreshTokenMissing and clears the session.
func (m *Manager) HandleMissingRefreshToken(ctx context.Context) error {
	m.emit(ctx, RefreshTokenMissing)
	return m.ClearSession(ctx)
}

// SetOfflineState moves Authenticated to OfflineAuthenticated. In any other
// state it does nothing.
func (m *Manager) SetOfflineState() {
	m.transitionIf(Authenticated, OfflineAuthenticated)
}

// SetOnlineState moves OfflineAuthenticated back to Authenticated. In any
// other state it does nothing.
func (m *Manager) SetOnlineState() {
	m.transitionIf(OfflineAuthenticated, Authenticated)
}

// ClearAccessToken drops only the access token, leaving the refresh token
// and the state untouched. The next protected call is rejected and goes
// through the refresh path.
func (m *Manager) ClearAccessToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.store.UpdateAtomically(ctx, func(p tokens.Pair) tokens.Pair {
		p.AccessToken = ""
		return p
	})
	if err != nil {
		return fmt.Errorf("clear access token: %w", err)
	}
	m.setClaims(nil)
	return nil
}

// ClearRefreshToken drops only the refresh token.
func (m *Manager) ClearRefreshToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.store.UpdateAtomically(ctx, func(p tokens.Pair) tokens.Pair {
		p.RefreshToken = ""
		return p
	})
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

func (m *Manager) transitionIf(from, to State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() != from {
		return
	}
	m.setState(context.Background(), to)
}

// setState and setClaims must be called with mu held.
func (m *Manager) setState(ctx context.Context, next State) {
	prev := State(m.state.Swap(int32(next)))
	if prev == next {
		return
	}
	m.log.Info(ctx, "session state changed", "from", prev.String(), "to", next.String())
	m.states.publish(next)
}

func (m *Manager) setClaims(c *claims.UserClaims) {
	prev := m.claims.Swap(c)
	if prev == nil && c == nil {
		return
	}
	m.claimsHub.publish(c)
}

func (m *Manager) emit(ctx context.Context, e Event) {
	m.log.Info(ctx, "session event", "event", e.String())
	m.events.broadcast(e)
}
