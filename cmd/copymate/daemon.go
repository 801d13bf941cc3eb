package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soheilhy/cmux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"go.klb.dev/copymate/internal/clip"
	"go.klb.dev/copymate/internal/history"
	"go.klb.dev/copymate/internal/httpapi"
	"go.klb.dev/copymate/internal/ipc"
	"go.klb.dev/copymate/internal/logging"
	"go.klb.dev/copymate/internal/monitor"
	"go.klb.dev/copymate/internal/notify"
	"go.klb.dev/copymate/internal/rpc"
	"go.klb.dev/copymate/internal/tlsconf"
	"go.klb.dev/copymate/internal/tracker"
)

const stopGrace = 3 * time.Second

// newTracker is replaced in tests to observe the daemon's tracker.
var newTracker = tracker.New

func newDaemonCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Watch the clipboard and serve the history",
		Long: `Starts the clipboard monitor and serves the history to the other copymate
commands over the local IPC socket.

With --listen the same API is also served on TCP, gRPC and HTTP/JSON on one
port. Setting --token on a TCP listener enables TLS (key derived from the
token) and bearer auth; the local socket never requires a token.

Config file search order:
  /etc/copymate/copymate.toml
  $HOME/.config/copymate/copymate.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → COPYMATE_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runDaemon(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.Duration("interval", monitor.DefaultInterval, "clipboard poll interval")
	f.Int("capacity", history.DefaultCapacity, "maximum history entries")
	f.String("backend", clip.KindAuto, "clipboard backend: auto|native|exec|memory")
	f.String("listen", "", "optional TCP address for gRPC + HTTP (e.g. 127.0.0.1:8753)")
	f.String("token", "", "shared secret for the TCP listener (empty = no auth, no TLS)")
	f.Bool("disarm-on-write-failure", false, "clear the pending self-copy suppression when a copy fails")
	f.Bool("no-monitor", false, "serve the API without watching the clipboard")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(ctx context.Context, v *viper.Viper) error {
	setupLogging(v)

	listen := v.GetString("listen")
	token := v.GetString("token")

	backend, err := clip.Open(v.GetString("backend"))
	if err != nil {
		return err
	}
	defer backend.Close()

	tr := newTracker(backend, tracker.Config{
		Capacity:             v.GetInt("capacity"),
		Interval:             v.GetDuration("interval"),
		DisarmOnWriteFailure: v.GetBool("disarm-on-write-failure"),
	})
	defer tr.Close()
	logger := notify.NewFunc("log", 64, logEvent)
	defer logger.Close()
	tr.Listen(logger)

	st := tr.Status()
	slog.Info("copymate daemon starting",
		"version", Version,
		"backend", st.Backend,
		"capacity", st.Capacity,
		"interval", time.Duration(st.IntervalMS)*time.Millisecond,
		"listen", listen,
		"tls", listen != "" && token != "",
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	// IPC: local and owner-only, so no token.
	if ipc.IsRunning() {
		return fmt.Errorf("another daemon is already listening on %s", ipc.SocketPath())
	}
	ipcLn, err := ipc.Listen()
	if err != nil {
		return fmt.Errorf("ipc listen: %w", err)
	}
	slog.Info("IPC socket listening", "path", ipc.SocketPath())
	ipcSrv := grpc.NewServer(rpc.ServerOptions()...)
	rpc.Register(ipcSrv, rpc.New(tr, "", Version))
	g.Go(func() error { return ipcSrv.Serve(ipcLn) })

	// Only poll once this process owns the IPC endpoint.
	if !v.GetBool("no-monitor") {
		if _, err := tr.StartMonitoring(ctx); err != nil {
			ipcSrv.Stop()
			return fmt.Errorf("start monitoring: %w", err)
		}
	}

	var stops []func()
	if listen != "" {
		s, err := serveTCP(g, listen, token, rpc.New(tr, token, Version))
		if err != nil {
			ipcSrv.Stop()
			return err
		}
		stops = append(stops, s)
	}

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		stopGRPC(ipcSrv)
		for _, s := range stops {
			s()
		}
		return nil
	})

	err = g.Wait()
	if !v.GetBool("no-monitor") {
		<-tr.Monitor().Done()
	}
	return err
}

// serveTCP starts the optional TCP listener: gRPC and HTTP/JSON split by
// cmux, optionally under TLS. It returns a func that stops everything it
// started.
func serveTCP(g *errgroup.Group, addr, token string, svc *rpc.Service) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	if token != "" {
		cfg, err := tlsconf.ServerConfig(token)
		if err != nil {
			_ = ln.Close()
			return nil, fmt.Errorf("tls: %w", err)
		}
		ln = tls.NewListener(ln, cfg)
	}

	mux, err := httpapi.New(svc)
	if err != nil {
		_ = ln.Close()
		return nil, err
	}

	m := cmux.New(ln)
	grpcLn := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldPrefixSendSettings("content-type", "application/grpc"))
	httpLn := m.Match(cmux.Any())

	grpcSrv := grpc.NewServer(rpc.ServerOptions()...)
	rpc.Register(grpcSrv, svc)
	httpSrv := newHTTPServer(mux)

	slog.Info("listening", "addr", ln.Addr(), "tls", token != "")

	g.Go(func() error { return grpcSrv.Serve(grpcLn) })
	g.Go(func() error { return ignoreClosed(httpSrv.Serve(httpLn)) })
	g.Go(func() error { return ignoreClosed(m.Serve()) })

	return func() {
		stopGRPC(grpcSrv)
		sctx, cancel := context.WithTimeout(context.Background(), stopGrace)
		defer cancel()
		_ = httpSrv.Shutdown(sctx)
		_ = ln.Close()
	}, nil
}

// stopGRPC drains s, forcing it closed after stopGrace. Watch streams only
// end when their client goes away, so a plain GracefulStop can hang.
func stopGRPC(s *grpc.Server) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopGrace):
		s.Stop()
	}
}

func ignoreClosed(err error) error {
	if err == nil || errors.Is(err, net.ErrClosed) || errors.Is(err, http.ErrServerClosed) || errors.Is(err, cmux.ErrListenerClosed) {
		return nil
	}
	return err
}

func logEvent(ev notify.Event) {
	slog.Info("history changed", "id", ev.Entry.ID, "preview", logging.Preview(ev.Content, 50))
	slog.Debug("history content", "id", ev.Entry.ID, "content", ev.Content)
}
