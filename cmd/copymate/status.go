package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/copymate/internal/rpc"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Long: `Displays the daemon's clipboard backend, monitor state, history size and
whether a self-copy suppression is pending.

The local IPC socket is used unless --server targets a daemon over TCP.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runStatus(cmd, v) },
	}
	cmd.Flags().Bool("json", false, "output raw JSON")
	addClientFlags(cmd)
	return cmd
}

func runStatus(cmd *cobra.Command, v *viper.Viper) error {
	s, err := connect(v)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := s.ctx(cmd.Context())
	defer cancel()
	resp, err := s.Status(ctx)
	if err != nil {
		return describe("status", err)
	}

	if v.GetBool("json") {
		enc, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(enc))
		return nil
	}
	printStatus(os.Stdout, resp, s.transport)
	return nil
}

func printStatus(out io.Writer, resp *rpc.StatusResponse, transport string) {
	w := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Version:\t%s\n", resp.Version)
	fmt.Fprintf(w, "Transport:\t%s\n", transport)
	fmt.Fprintf(w, "Backend:\t%s\n", resp.Backend)
	fmt.Fprintf(w, "Monitoring:\t%s\n", onOff(resp.Monitoring, fmt.Sprintf("every %s", time.Duration(resp.IntervalMS)*time.Millisecond)))
	fmt.Fprintf(w, "History:\t%d / %d\n", resp.Entries, resp.Capacity)
	fmt.Fprintf(w, "Suppression:\t%s\n", onOff(resp.SuppressionArmed, "armed"))
	onFail := "stay armed"
	if resp.DisarmOnWriteFailure {
		onFail = "disarm"
	}
	fmt.Fprintf(w, "On write failure:\t%s\n", onFail)
	fmt.Fprintf(w, "Listeners:\t%d\n", resp.Listeners)
	_ = w.Flush()
}

func onOff(on bool, detail string) string {
	if on {
		return "yes (" + detail + ")"
	}
	return "no"
}
