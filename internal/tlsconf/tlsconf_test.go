package tlsconf_test

import (
	"crypto/tls"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/copymate/internal/tlsconf"
)

func TestDerive_Deterministic(t *testing.T) {
	a, err := tlsconf.Derive("hunter2")
	require.NoError(t, err)
	b, err := tlsconf.Derive("hunter2")
	require.NoError(t, err)
	c, err := tlsconf.Derive("hunter3")
	require.NoError(t, err)

	assert.Equal(t, a.PublicKey(), b.PublicKey())
	assert.NotEqual(t, a.PublicKey(), c.PublicKey())
}

func TestDerive_EmptyToken(t *testing.T) {
	_, err := tlsconf.Derive("")
	assert.Error(t, err)
}

// handshake runs one TLS handshake over loopback TCP and returns the
// client's error. The kernel buffers both flights, so a client that rejects
// the server key can send its alert without the server reading it.
func handshake(t *testing.T, serverToken, clientToken string) error {
	t.Helper()
	srvCfg, err := tlsconf.ServerConfig(serverToken)
	require.NoError(t, err)
	cliID, err := tlsconf.Derive(clientToken)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	served := make(chan struct{})
	go func() {
		defer close(served)
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		_ = c.SetDeadline(time.Now().Add(5 * time.Second))
		s := tls.Server(c, srvCfg)
		if s.Handshake() == nil {
			_, _ = io.Copy(io.Discard, s)
		}
	}()

	cc, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	_ = cc.SetDeadline(time.Now().Add(5 * time.Second))

	err = tls.Client(cc, cliID.ClientConfig()).Handshake()
	_ = cc.Close()
	<-served
	return err
}

func TestHandshake_SameToken(t *testing.T) {
	assert.NoError(t, handshake(t, "tok", "tok"))
}

func TestHandshake_WrongToken(t *testing.T) {
	err := handshake(t, "tok", "other")
	require.Error(t, err)
	assert.True(t, errors.Is(err, tlsconf.ErrKeyMismatch), err)
}

func TestClientCredentials(t *testing.T) {
	creds, err := tlsconf.ClientCredentials("tok")
	require.NoError(t, err)
	assert.Equal(t, "tls", creds.Info().SecurityProtocol)
}
