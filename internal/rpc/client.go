package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"go.klb.dev/copymate/internal/history"
	"go.klb.dev/copymate/internal/ipc"
)

// Client is a typed wrapper around a connection to the history service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	return c.cc.Invoke(ctx, method, req, resp, grpc.ForceCodec(Codec{}))
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (c *Client) List(ctx context.Context, limit int) ([]history.Entry, error) {
	var resp ListResponse
	if err := c.invoke(ctx, MethodList, &ListRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// Add records content without touching the clipboard.
func (c *Client) Add(ctx context.Context, content string) (bool, error) {
	var resp AddResponse
	if err := c.invoke(ctx, MethodAdd, &AddRequest{Content: content}, &resp); err != nil {
		return false, err
	}
	return resp.Inserted, nil
}

// Copy writes content to the clipboard through the daemon.
func (c *Client) Copy(ctx context.Context, content string) error {
	return c.invoke(ctx, MethodCopy, &CopyRequest{Content: content}, &CopyResponse{})
}

// Clear empties the history.
func (c *Client) Clear(ctx context.Context) error {
	return c.invoke(ctx, MethodClear, &ClearRequest{}, &ClearResponse{})
}

// Current returns the clipboard text as the daemon sees it now.
func (c *Client) Current(ctx context.Context) (string, error) {
	var resp CurrentResponse
	if err := c.invoke(ctx, MethodCurrent, &CurrentRequest{}, &resp); err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Status returns the daemon status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.invoke(ctx, MethodStatus, &StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Watch streams history-changed events to fn until ctx is done, the server
// ends the stream, or fn returns an error.
func (c *Client) Watch(ctx context.Context, fn func(WatchEvent) error) error {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], MethodWatch, grpc.ForceCodec(Codec{}))
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := stream.SendMsg(&WatchRequest{}); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	for {
		var ev WatchEvent
		if err := stream.RecvMsg(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}

// DialIPC returns a connection to the local daemon over the IPC endpoint.
// No auth is needed: the endpoint is owner-restricted by the OS.
func DialIPC() (*grpc.ClientConn, error) {
	return grpc.NewClient("passthrough:///copymate",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return ipc.Dial(ctx)
		}),
	)
}

// DialTCP returns a connection to a daemon's TCP listener. creds may be nil
// for a plaintext listener; token may be empty when auth is disabled.
func DialTCP(addr string, creds credentials.TransportCredentials, token string) (*grpc.ClientConn, error) {
	if creds == nil {
		creds = insecure.NewCredentials()
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if token != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearer(token)))
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}

type bearer string

func (b bearer) GetRequestMetadata(_ context.Context, _ ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + string(b)}, nil
}

func (bearer) RequireTransportSecurity() bool { return false }
