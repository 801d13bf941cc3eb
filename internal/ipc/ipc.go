// Package ipc locates and opens the local channel between the copymate daemon
// and its CLI tools. On Unix it is a socket restricted to the owner; on
// Windows a named pipe. The daemon serves the gRPC control API on it.
package ipc

import (
	"context"
	"net"
	"os"
	"time"
)

// SocketPath returns the platform-appropriate path for the IPC endpoint.
//
//   - $COPYMATE_SOCKET when set
//   - Linux:   $XDG_RUNTIME_DIR/copymate.sock
//   - macOS:   $TMPDIR/copymate.sock
//   - Windows: \\.\pipe\copymate
func SocketPath() string {
	if s := os.Getenv("COPYMATE_SOCKET"); s != "" {
		return s
	}
	return socketPath()
}

// Listen creates a listener on the IPC endpoint.
func Listen() (net.Listener, error) {
	return listenIPC(SocketPath())
}

// Dial connects to the IPC endpoint.
func Dial(ctx context.Context) (net.Conn, error) {
	return dialIPC(ctx, SocketPath())
}

// IsRunning reports whether a daemon appears to be listening. It does a
// cheap dial-and-close; no data is exchanged.
func IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	c, err := Dial(ctx)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}
