package refresh

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var authorizationMetadataKey = strings.ToLower(common.AuthorizationHeaderName)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(authorizationMetadataKey)
	if token != "" {
		md.Set(authorizationMetadataKey, common.BearerPrefix+token)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

// UnaryClientInterceptor attaches the access token to unary calls. On
// codes.Unauthenticated it recovers through coordinator and retries once.
// codes.Unavailable marks the session offline; any other outcome online.
func UnaryClientInterceptor(source TokenSource, coordinator *Coordinator) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		call := func(token string) error {
			err := invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
			if status.Code(err) == codes.Unavailable {
				source.SetOfflineState()
			} else {
				source.SetOnlineState()
			}
			return err
		}

		token := source.AccessToken(ctx)
		err := call(token)
		if status.Code(err) != codes.Unauthenticated {
			return err
		}

		newToken, rerr := coordinator.Recover(ctx, token)
		if rerr != nil {
			return fmt.Errorf("%w: %w", common.ErrNotAuthenticated, rerr)
		}
		return call(newToken)
	}
}
