package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc/codes"

	"go.klb.dev/copymate/internal/logging"
	"go.klb.dev/copymate/internal/rpc"
)

func newWatchCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream history changes until interrupted",
		Long: `Prints one line per new history entry as the daemon records it.
With --json each line is the raw event object.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runWatch(cmd, v) },
	}
	cmd.Flags().Bool("json", false, "output one JSON event per line")
	cmd.Flags().Int("width", 80, "truncate content to this many characters")
	addClientFlags(cmd)
	return cmd
}

func runWatch(cmd *cobra.Command, v *viper.Viper) error {
	s, err := connect(v)
	if err != nil {
		return err
	}
	defer s.Close()

	// No --timeout here: the stream lives until Ctrl-C.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	jsonOut := v.GetBool("json")
	width := v.GetInt("width")
	enc := json.NewEncoder(out)

	err = s.Watch(ctx, func(ev rpc.WatchEvent) error {
		if jsonOut {
			return enc.Encode(ev)
		}
		ts := time.Unix(int64(ev.Entry.Timestamp), 0)
		_, err := fmt.Fprintf(out, "%s  %s\n", ts.Format("15:04:05"), logging.Preview(ev.Content, width))
		return err
	})
	if errors.Is(ctx.Err(), context.Canceled) || isCode(err, codes.Canceled) {
		return nil
	}
	if err != nil {
		return describe("watch", err)
	}
	return nil
}
