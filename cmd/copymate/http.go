package main

import (
	"net/http"
	"time"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
)

// newHTTPServer returns the server for the HTTP side of the TCP listener.
// cmux hands it plain connections (TLS already terminated), so HTTP/2 has to
// be accepted unencrypted for clients that negotiated h2 via ALPN.
func newHTTPServer(mux *gwruntime.ServeMux) *http.Server {
	var protos http.Protocols
	protos.SetHTTP1(true)
	protos.SetUnencryptedHTTP2(true)
	return &http.Server{
		Handler:           mux,
		Protocols:         &protos,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
