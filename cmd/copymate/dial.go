package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"

	"go.klb.dev/copymate/internal/ipc"
	"go.klb.dev/copymate/internal/rpc"
	"go.klb.dev/copymate/internal/tlsconf"
)

const defaultTimeout = 5 * time.Second

var errNoDaemon = errors.New("no copymate daemon running (start one with \"copymate daemon\" or pass --server)")

// session is an open connection to a daemon.
type session struct {
	*rpc.Client
	conn      *grpc.ClientConn
	transport string
	timeout   time.Duration
}

func (s *session) Close() { _ = s.conn.Close() }

// ctx returns a request context bounded by --timeout.
func (s *session) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.timeout)
}

// connect opens a session. The local IPC socket is used unless --server is
// set; TCP connections use TLS and bearer auth when --token is set, matching
// the daemon's listener.
func connect(v *viper.Viper) (*session, error) {
	timeout := v.GetDuration("timeout")
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	server := v.GetString("server")
	if server == "" {
		if !ipc.IsRunning() {
			return nil, errNoDaemon
		}
		conn, err := rpc.DialIPC()
		if err != nil {
			return nil, fmt.Errorf("dial ipc: %w", err)
		}
		return &session{
			Client:    rpc.NewClient(conn),
			conn:      conn,
			transport: fmt.Sprintf("ipc (%s)", ipc.SocketPath()),
			timeout:   timeout,
		}, nil
	}

	token := v.GetString("token")
	var creds credentials.TransportCredentials
	if token != "" {
		var err error
		creds, err = tlsconf.ClientCredentials(token)
		if err != nil {
			return nil, fmt.Errorf("tls credentials: %w", err)
		}
	}
	conn, err := rpc.DialTCP(server, creds, token)
	if err != nil {
		return nil, err
	}
	return &session{
		Client:    rpc.NewClient(conn),
		conn:      conn,
		transport: fmt.Sprintf("tcp (%s)", server),
		timeout:   timeout,
	}, nil
}

// isCode reports whether err is a gRPC status with code c.
func isCode(err error, c codes.Code) bool {
	return status.Code(err) == c
}

// describe turns a status error into a short message for the terminal.
func describe(op string, err error) error {
	if st, ok := status.FromError(err); ok {
		return fmt.Errorf("%s: %s", op, st.Message())
	}
	return fmt.Errorf("%s: %w", op, err)
}
