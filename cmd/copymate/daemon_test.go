//go:build !windows

package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/copymate/internal/clip"
	"go.klb.dev/copymate/internal/tracker"
)

func TestRunDaemon_SecondInstanceNeverStartsMonitor(t *testing.T) {
	dir, err := os.MkdirTemp("", "cm")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	path := filepath.Join(dir, "d.sock")
	t.Setenv("COPYMATE_SOCKET", path)

	// The first daemon.
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()

	var tr *tracker.Tracker
	orig := newTracker
	newTracker = func(b clip.Backend, cfg tracker.Config) *tracker.Tracker {
		tr = orig(b, cfg)
		return tr
	}
	t.Cleanup(func() { newTracker = orig })

	v := viper.New()
	v.Set("backend", clip.KindMemory)
	v.Set("interval", time.Hour)
	v.Set("log-format", "json")
	v.Set("log-level", "error")

	err = runDaemon(context.Background(), v)
	require.ErrorContains(t, err, "already listening")
	require.NotNil(t, tr)
	assert.False(t, tr.Status().Monitoring)
}
