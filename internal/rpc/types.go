// Package rpc defines the copymate control API: a gRPC service whose messages
// are plain Go structs carried as JSON.
//
// Wire format: standard gRPC framing, content-subtype "json". The service is
// described by hand below; there is no .proto file.
package rpc

import (
	"encoding/json"
	"fmt"

	"go.klb.dev/copymate/internal/history"
	"go.klb.dev/copymate/internal/notify"
	"go.klb.dev/copymate/internal/tracker"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "copymate.v1.HistoryService"

// Full method names, as they appear on the wire.
const (
	MethodList    = "/" + ServiceName + "/List"
	MethodAdd     = "/" + ServiceName + "/Add"
	MethodCopy    = "/" + ServiceName + "/Copy"
	MethodClear   = "/" + ServiceName + "/Clear"
	MethodCurrent = "/" + ServiceName + "/Current"
	MethodStatus  = "/" + ServiceName + "/Status"
	MethodWatch   = "/" + ServiceName + "/Watch"
)

// ListRequest asks for the history. Limit <= 0 returns everything.
type ListRequest struct {
	Limit int `json:"limit,omitempty"`
}

type ListResponse struct {
	Entries []history.Entry `json:"entries"`
}

type AddRequest struct {
	Content string `json:"content"`
}

type AddResponse struct {
	Inserted bool `json:"inserted"`
}

type CopyRequest struct {
	Content string `json:"content"`
}

type CopyResponse struct{}

type ClearRequest struct{}

type ClearResponse struct{}

type CurrentRequest struct{}

type CurrentResponse struct {
	Content string `json:"content"`
}

type StatusRequest struct{}

// StatusResponse is the tracker status plus daemon metadata.
type StatusResponse struct {
	tracker.Status
	Version string `json:"version,omitempty"`
}

type WatchRequest struct{}

// WatchEvent is one history-changed notification.
type WatchEvent = notify.Event

// Codec marshals API messages as JSON. It satisfies grpc/encoding.Codec.
type Codec struct{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json codec marshal: %w", err)
	}
	return b, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec unmarshal: %w", err)
	}
	return nil
}
