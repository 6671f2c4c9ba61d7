package client

import (
	"context"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/tokens"
)

type Client interface {
	Login(ctx context.Context, username string, password []byte) (tokens.Pair, error)
	Refresh(ctx context.Context, refreshToken string) (tokens.Pair, error)
	Ping(ctx context.Context) error
}
