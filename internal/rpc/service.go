package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"go.klb.dev/copymate/internal/clip"
	"go.klb.dev/copymate/internal/history"
	"go.klb.dev/copymate/internal/logging"
	"go.klb.dev/copymate/internal/notify"
	"go.klb.dev/copymate/internal/tracker"
)

const watchBuffer = 32

// Core is the subset of *tracker.Tracker the service needs.
type Core interface {
	History() ([]history.Entry, error)
	Add(content string) (bool, error)
	Copy(content string) error
	Clear() error
	CurrentText() (string, error)
	Status() tracker.Status
	Subscribe(id string, buffer int) *notify.Chan
	Unsubscribe(l notify.Listener)
}

// HistoryServer is the server API for the history service.
type HistoryServer interface {
	List(context.Context, *ListRequest) (*ListResponse, error)
	Add(context.Context, *AddRequest) (*AddResponse, error)
	Copy(context.Context, *CopyRequest) (*CopyResponse, error)
	Clear(context.Context, *ClearRequest) (*ClearResponse, error)
	Current(context.Context, *CurrentRequest) (*CurrentResponse, error)
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
	Watch(*WatchRequest, WatchStream) error
}

// WatchStream is the server side of a Watch call.
type WatchStream interface {
	Send(*WatchEvent) error
	Context() context.Context
}

// Service implements HistoryServer on top of a Core.
type Service struct {
	core    Core
	token   string // empty = no auth
	version string
	watches atomic.Int64
}

// New returns a Service backed by core. token may be empty to disable auth.
func New(core Core, token, version string) *Service {
	return &Service{core: core, token: token, version: version}
}

// Register installs svc on s.
func Register(s *grpc.Server, svc HistoryServer) {
	s.RegisterService(&serviceDesc, svc)
}

// ServerOptions returns the options every copymate gRPC server needs.
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{grpc.ForceServerCodec(Codec{})}
}

// List implements HistoryServer.List.
func (s *Service) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	entries, err := s.core.History()
	if err != nil {
		return nil, ToStatus(err)
	}
	if req.Limit > 0 && len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}
	return &ListResponse{Entries: entries}, nil
}

// Add implements HistoryServer.Add.
func (s *Service) Add(ctx context.Context, req *AddRequest) (*AddResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	ok, err := s.core.Add(req.Content)
	if err != nil {
		return nil, ToStatus(err)
	}
	slog.Debug("history item added", "peer", addrFromCtx(ctx), "inserted", ok, "preview", logging.Preview(req.Content, 50))
	return &AddResponse{Inserted: ok}, nil
}

// Copy implements HistoryServer.Copy.
func (s *Service) Copy(ctx context.Context, req *CopyRequest) (*CopyResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	if err := s.core.Copy(req.Content); err != nil {
		return nil, ToStatus(err)
	}
	slog.Info("copied to clipboard", "peer", addrFromCtx(ctx), "chars", len([]rune(req.Content)))
	return &CopyResponse{}, nil
}

// Clear implements HistoryServer.Clear.
func (s *Service) Clear(ctx context.Context, _ *ClearRequest) (*ClearResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	if err := s.core.Clear(); err != nil {
		return nil, ToStatus(err)
	}
	return &ClearResponse{}, nil
}

// Current implements HistoryServer.Current.
func (s *Service) Current(ctx context.Context, _ *CurrentRequest) (*CurrentResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	text, err := s.core.CurrentText()
	if err != nil {
		return nil, ToStatus(err)
	}
	return &CurrentResponse{Content: text}, nil
}

// Status implements HistoryServer.Status.
func (s *Service) Status(ctx context.Context, _ *StatusRequest) (*StatusResponse, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	return &StatusResponse{Status: s.core.Status(), Version: s.version}, nil
}

// Watch implements HistoryServer.Watch.
func (s *Service) Watch(_ *WatchRequest, stream WatchStream) error {
	ctx := stream.Context()
	if err := s.auth(ctx); err != nil {
		return err
	}

	id := fmt.Sprintf("watch/%s/%d", addrFromCtx(ctx), s.watches.Add(1))
	l := s.core.Subscribe(id, watchBuffer)
	defer s.core.Unsubscribe(l)

	slog.Info("watch started", "listener", id)
	defer slog.Info("watch ended", "listener", id)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-l.Events():
			if err := stream.Send(&ev); err != nil {
				return err
			}
		}
	}
}

// auth validates the bearer token in ctx metadata. Skipped when s.token is empty.
func (s *Service) auth(ctx context.Context) error {
	if s.token == "" {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return status.Error(codes.Unauthenticated, "missing authorization header")
	}
	const prefix = "Bearer "
	tok := vals[0]
	if len(tok) > len(prefix) && tok[:len(prefix)] == prefix {
		tok = tok[len(prefix):]
	}
	if tok != s.token {
		return status.Error(codes.Unauthenticated, "invalid token")
	}
	return nil
}

// ToStatus maps core errors onto gRPC status codes.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var (
		re *clip.ReadError
		we *clip.WriteError
		ae *tracker.AccessError
	)
	switch {
	case errors.Is(err, tracker.ErrEmptyContent):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, clip.ErrEmpty):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &re), errors.As(err, &we):
		return status.Error(codes.Unavailable, err.Error())
	case errors.As(err, &ae):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func addrFromCtx(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "local"
}

// ── service descriptor ─────────────────────────────────────────────────────

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HistoryServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("List", HistoryServer.List),
		unary("Add", HistoryServer.Add),
		unary("Copy", HistoryServer.Copy),
		unary("Clear", HistoryServer.Clear),
		unary("Current", HistoryServer.Current),
		unary("Status", HistoryServer.Status),
	},
	Streams: []grpc.StreamDesc{{
		StreamName:    "Watch",
		Handler:       watchHandler,
		ServerStreams: true,
	}},
	Metadata: "copymate/v1/history",
}

func unary[Req, Resp any](name string, call func(HistoryServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	full := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(HistoryServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(HistoryServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(HistoryServer).Watch(in, &watchServer{stream})
}

type watchServer struct {
	grpc.ServerStream
}

func (w *watchServer) Send(ev *WatchEvent) error { return w.ServerStream.SendMsg(ev) }
