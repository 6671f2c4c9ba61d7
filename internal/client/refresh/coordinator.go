package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/tokens"
	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
)

// DefaultTimeout bounds a single refresh-token exchange.
const DefaultTimeout = 10 * time.Second

// Session is the part of session.Manager the coordinator drives.
type Session interface {
	AccessToken(ctx context.Context) string
	RefreshToken(ctx context.Context) string
	SaveTokens(ctx context.Context, pair tokens.Pair) error
	ClearSession(ctx context.Context) error
	HandleMissingRefreshToken(ctx context.Context) error
}

// Exchanger trades a refresh token for a new token pair.
type Exchanger interface {
	Refresh(ctx context.Context, refreshToken string) (tokens.Pair, error)
}

// Coordinator performs at most one refresh exchange per stale access token.
type Coordinator struct {
	session   Session
	exchanger Exchanger
	timeout   time.Duration
	log       logging.Logger

	// sem is a one-slot lock; a channel lets waiters give up on ctx.
	sem chan struct{}
	// attempts counts finished refresh attempts. Only changed while sem is held.
	attempts atomic.Uint64
}

func NewCoordinator(session Session, exchanger Exchanger, timeout time.Duration, log logging.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Coordinator{
		session:   session,
		exchanger: exchanger,
		timeout:   timeout,
		log:       log.With("component", "refresh"),
		sem:       make(chan struct{}, 1),
	}
}

// Recover is called with the access token a rejected request carried. It
// returns the access token to retry with.
//
// If the session already moved on to another token, that token is returned
// without touching the lock. Otherwise one caller at a time decides whether a
// refresh is still needed and performs it. A missing refresh token yields
// common.ErrRefreshTokenMissing and a failed exchange common.ErrRefreshFailed;
// both leave the session cleared and the caller must not retry. A caller whose
// ctx ends while waiting for the lock gets ctx.Err().
func (c *Coordinator) Recover(ctx context.Context, failedAccessToken string) (string, error) {
	if token, done, err := c.alreadyRefreshed(ctx, failedAccessToken); done {
		return token, err
	}

	seen := c.attempts.Load()

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-c.sem }()

	// Another holder finished an attempt while we waited. Its outcome stands,
	// even when the rejected token was blank and so cannot be compared.
	if c.attempts.Load() != seen {
		return c.outcome(ctx)
	}
	if token, done, err := c.alreadyRefreshed(ctx, failedAccessToken); done {
		return token, err
	}
	defer c.attempts.Add(1)

	// Session writes below must complete even if the caller gives up.
	ctx = context.WithoutCancel(ctx)

	refreshToken := c.session.RefreshToken(ctx)
	if refreshToken == "" {
		c.log.Warn(ctx, "refresh token missing, clearing session")
		if err := c.session.HandleMissingRefreshToken(ctx); err != nil {
			c.log.Error(ctx, "failed to clear session", "error", err)
		}
		return "", common.ErrRefreshTokenMissing
	}

	pair, err := c.exchange(ctx, refreshToken)
	if err == nil {
		err = c.session.SaveTokens(ctx, pair)
	}
	if err != nil {
		c.log.Warn(ctx, "token refresh failed, clearing session", "error", err)
		if clearErr := c.session.ClearSession(ctx); clearErr != nil {
			c.log.Error(ctx, "failed to clear session", "error", clearErr)
		}
		return "", fmt.Errorf("%w: %w", common.ErrRefreshFailed, err)
	}

	c.log.Info(ctx, "access token refreshed")
	return pair.AccessToken, nil
}

// alreadyRefreshed compares the session's access token with the rejected one.
// A different non-blank token means someone else refreshed. A blank one means
// the session was cleared meanwhile.
func (c *Coordinator) alreadyRefreshed(ctx context.Context, failed string) (string, bool, error) {
	current := c.session.AccessToken(ctx)
	switch {
	case current == failed:
		return "", false, nil
	case current == "":
		return "", true, fmt.Errorf("%w: session cleared", common.ErrRefreshFailed)
	default:
		return current, true, nil
	}
}

// outcome reports what the last attempt left behind: the current access
// token, or ErrRefreshFailed when the session was cleared.
func (c *Coordinator) outcome(ctx context.Context) (string, error) {
	if current := c.session.AccessToken(ctx); current != "" {
		return current, nil
	}
	return "", fmt.Errorf("%w: session cleared", common.ErrRefreshFailed)
}

func (c *Coordinator) exchange(ctx context.Context, refreshToken string) (tokens.Pair, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	pair, err := c.exchanger.Refresh(ctx, refreshToken)
	if err != nil {
		return tokens.Pair{}, err
	}
	if pair.AccessToken == "" {
		return tokens.Pair{}, errors.New("exchange returned no access token")
	}
	return pair, nil
}
