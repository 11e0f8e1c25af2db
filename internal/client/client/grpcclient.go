// Package client holds the gRPC connection the CLI uses to reach the drive
// server.
package client

import (
	"context"

	"github.com/dmitrijs2005/clouddrive/internal/common"
	gs "github.com/dmitrijs2005/clouddrive/internal/server/grpc"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	api         *gs.Client
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)
	if len(md.Get(common.RequestIDHeaderName)) == 0 {
		md.Set(common.RequestIDHeaderName, uuid.NewString())
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(withAccessToken(ctx, s.accessToken), method, req, reply, cc, opts...)
}

// NewGRPCClient prepares a lazy connection to endpointURL that sends
// accessToken with every call.
func NewGRPCClient(endpointURL, accessToken string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken}

	conn, err := grpc.NewClient(endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	)
	if err != nil {
		return nil, err
	}

	c.conn = conn
	c.api = gs.NewClient(conn)
	return c, nil
}

// Invoke calls a Drive method by its short name.
func (s *GRPCClient) Invoke(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	return s.api.Invoke(ctx, method, req, resp, opts...)
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}
