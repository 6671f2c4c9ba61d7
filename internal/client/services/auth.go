// Package services contains application services for the tokenkeeper client.
// This file defines the authentication service: login against the auth
// server, logout, and a liveness probe.
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/client"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/tokens"
	"github.com/dmitrijs2005/tokenkeeper/internal/common"
)

// Session is the part of session.Manager the auth service drives.
type Session interface {
	SaveTokens(ctx context.Context, pair tokens.Pair) error
	ClearSession(ctx context.Context) error
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate against the server and start a session with the
//     returned tokens.
//   - Logout: end the session locally.
//   - Ping: check server liveness.
type AuthService interface {
	Login(ctx context.Context, username string, password []byte) error
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
}

type authService struct {
	client  client.Client
	session Session
}

// NewAuthService constructs an AuthService bound to the given API client and
// session.
func NewAuthService(client client.Client, session Session) AuthService {
	return &authService{client: client, session: session}
}

// Login wipes password once the request has been made.
func (a *authService) Login(ctx context.Context, username string, password []byte) error {
	pair, err := a.client.Login(ctx, username, password)
	common.WipeByteArray(password)
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}
	if err := a.session.SaveTokens(ctx, pair); err != nil {
		return fmt.Errorf("session saving error: %w", err)
	}
	return nil
}

func (a *authService) Logout(ctx context.Context) error {
	return a.session.ClearSession(ctx)
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}
