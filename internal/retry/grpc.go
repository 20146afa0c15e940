// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retry

import (
	"context"

	"google.golang.org/grpc"
)

// UnaryInterceptor resets g after every successful unary call made through
// the client connection it is installed on.
func UnaryInterceptor(g *Gate) grpc.UnaryClientInterceptor {
	if g == nil {
		g = Shared
	}
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		err := invoker(ctx, method, req, reply, cc, opts...)
		if err == nil {
			g.ObserveSuccess()
		}
		return err
	}
}
