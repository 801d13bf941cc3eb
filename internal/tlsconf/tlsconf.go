// Package tlsconf turns the daemon's shared token into TLS material for the
// optional TCP listener.
//
// Both ends derive the same ECDSA P-256 key from the token with HKDF. The
// server wraps it in a throwaway self-signed certificate; the client ignores
// the chain and only checks that the presented public key is the one its own
// token derives. A wrong token fails the handshake.
//
//	HKDF-SHA256(ikm=token, salt="copymate-tls-v1", info="listener-key")
package tlsconf

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"golang.org/x/crypto/hkdf"
	"google.golang.org/grpc/credentials"
)

const (
	salt       = "copymate-tls-v1"
	info       = "listener-key"
	serverName = "copymate"
)

// ErrKeyMismatch is returned by the client verifier when the server's key
// was derived from a different token.
var ErrKeyMismatch = errors.New("tlsconf: server key does not match token")

// Identity is the key material derived from one token.
type Identity struct {
	key *ecdsa.PrivateKey
	pub []byte // PKIX DER
}

// Derive computes the Identity for token. The same token always yields the
// same key.
func Derive(token string) (*Identity, error) {
	if token == "" {
		return nil, errors.New("tlsconf: empty token")
	}
	key, err := deriveKey(token)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: derive key: %w", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: marshal pubkey: %w", err)
	}
	return &Identity{key: key, pub: pub}, nil
}

// PublicKey returns the PKIX-encoded public key.
func (id *Identity) PublicKey() []byte {
	return bytes.Clone(id.pub)
}

// ServerConfig returns a config for tls.NewListener. ALPN offers h2 and
// http/1.1 so gRPC and HTTP/JSON clients can share the listener.
func (id *Identity) ServerConfig() (*tls.Config, error) {
	der, err := selfSigned(id.key)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: cert: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{der},
			PrivateKey:  id.key,
		}},
		NextProtos: []string{"h2", "http/1.1"},
		MinVersion: tls.VersionTLS13,
	}, nil
}

// ClientConfig returns a config that accepts only a server holding this
// Identity's key.
func (id *Identity) ClientConfig() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify:    true, //nolint:gosec // verified by VerifyPeerCertificate
		ServerName:            serverName,
		MinVersion:            tls.VersionTLS13,
		VerifyPeerCertificate: id.verify,
	}
}

// ClientCredentials wraps ClientConfig for grpc.WithTransportCredentials.
func (id *Identity) ClientCredentials() credentials.TransportCredentials {
	return credentials.NewTLS(id.ClientConfig())
}

func (id *Identity) verify(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		return errors.New("tlsconf: server presented no certificate")
	}
	cert, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return fmt.Errorf("tlsconf: parse server cert: %w", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
	if err != nil {
		return fmt.Errorf("tlsconf: marshal server pubkey: %w", err)
	}
	if !bytes.Equal(pub, id.pub) {
		return ErrKeyMismatch
	}
	return nil
}

// ServerConfig derives the server-side config for token in one call.
func ServerConfig(token string) (*tls.Config, error) {
	id, err := Derive(token)
	if err != nil {
		return nil, err
	}
	return id.ServerConfig()
}

// ClientCredentials derives client transport credentials for token.
func ClientCredentials(token string) (credentials.TransportCredentials, error) {
	id, err := Derive(token)
	if err != nil {
		return nil, err
	}
	return id.ClientCredentials(), nil
}

func deriveKey(token string) (*ecdsa.PrivateKey, error) {
	r := hkdf.New(sha256.New, []byte(token), []byte(salt), []byte(info))
	buf := make([]byte, 64)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("hkdf read: %w", err)
	}

	curve := elliptic.P256()
	n := curve.Params().N
	// k in [1, n-1]
	k := new(big.Int).SetBytes(buf)
	k.Mod(k, new(big.Int).Sub(n, big.NewInt(1)))
	k.Add(k, big.NewInt(1))

	key := &ecdsa.PrivateKey{D: k}
	key.Curve = curve
	key.X, key.Y = curve.ScalarBaseMult(k.FillBytes(make([]byte, 32)))
	return key, nil
}

// selfSigned returns a DER certificate for key. Only its public key matters
// to clients, so the serial is random and the validity window is wide.
func selfSigned(key *ecdsa.PrivateKey) ([]byte, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, err
	}
	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: serverName},
		DNSNames:              []string{serverName},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.AddDate(10, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	return x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
}
