// Package httpapi exposes the history service as HTTP/JSON for UIs and
// scripts that don't speak gRPC. Requests are forwarded to the same
// rpc.Service the gRPC listener uses, so auth and error mapping are shared.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"go.klb.dev/copymate/internal/rpc"
)

// maxBody bounds request bodies.
const maxBody = 4 << 20

type route struct {
	method, path string
	h            gwruntime.HandlerFunc
}

// New returns a mux serving the HTTP API for svc.
func New(svc rpc.HistoryServer) (*gwruntime.ServeMux, error) {
	mux := gwruntime.NewServeMux()
	a := &api{svc: svc}

	routes := []route{
		{http.MethodGet, "/v1/history", a.list},
		{http.MethodPost, "/v1/history", a.add},
		{http.MethodDelete, "/v1/history", a.clear},
		{http.MethodPost, "/v1/copy", a.copy},
		{http.MethodGet, "/v1/clipboard", a.current},
		{http.MethodGet, "/v1/status", a.status},
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.path, r.h); err != nil {
			return nil, fmt.Errorf("register %s %s: %w", r.method, r.path, err)
		}
	}
	return mux, nil
}

type api struct {
	svc rpc.HistoryServer
}

func (a *api) list(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	req := &rpc.ListRequest{}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		req.Limit = n
	}
	resp, err := a.svc.List(incoming(r), req)
	reply(w, resp, err)
}

func (a *api) add(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req rpc.AddRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := a.svc.Add(incoming(r), &req)
	reply(w, resp, err)
}

func (a *api) clear(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	resp, err := a.svc.Clear(incoming(r), &rpc.ClearRequest{})
	reply(w, resp, err)
}

func (a *api) copy(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req rpc.CopyRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := a.svc.Copy(incoming(r), &req)
	reply(w, resp, err)
}

func (a *api) current(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	resp, err := a.svc.Current(incoming(r), &rpc.CurrentRequest{})
	reply(w, resp, err)
}

func (a *api) status(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	resp, err := a.svc.Status(incoming(r), &rpc.StatusRequest{})
	reply(w, resp, err)
}

// incoming carries the Authorization header into gRPC metadata, the way the
// gateway forwards headers, so rpc.Service.auth sees it.
func incoming(r *http.Request) context.Context {
	md := metadata.MD{}
	if v := r.Header.Get("Authorization"); v != "" {
		md.Set("authorization", v)
	}
	return metadata.NewIncomingContext(r.Context(), md)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func reply(w http.ResponseWriter, resp any, err error) {
	if err != nil {
		st := status.Convert(rpc.ToStatus(err))
		writeError(w, gwruntime.HTTPStatusFromCode(st.Code()), st.Message())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("http response write failed", "err", err)
	}
}
