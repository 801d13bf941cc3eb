package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/copymate/internal/history"
	"go.klb.dev/copymate/internal/logging"
)

func newHistoryCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"ls"},
		Short:   "List clipboard history, newest first",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runHistory(cmd, v) },
	}

	f := cmd.Flags()
	f.Int("limit", 0, "show at most this many entries (0 = all)")
	f.Bool("json", false, "output raw JSON")
	f.Int("width", 60, "truncate content to this many characters")
	addClientFlags(cmd)

	return cmd
}

func runHistory(cmd *cobra.Command, v *viper.Viper) error {
	s, err := connect(v)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := s.ctx(cmd.Context())
	defer cancel()
	entries, err := s.List(ctx, v.GetInt("limit"))
	if err != nil {
		return describe("history", err)
	}

	if v.GetBool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	printHistory(os.Stdout, entries, v.GetInt("width"), time.Now())
	return nil
}

func printHistory(out io.Writer, entries []history.Entry, width int, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "History is empty.")
		return
	}
	tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "#\tID\tCOPIED\tCONTENT\n")
	for i, e := range entries {
		_, _ = fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n",
			i, e.ID, fmtAge(time.Unix(int64(e.Timestamp), 0), now), logging.Preview(e.Content, width))
	}
	_ = tw.Flush()
}

func fmtAge(t, now time.Time) string {
	age := now.Sub(t).Round(time.Second)
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return t.Format("15:04:05")
	default:
		return t.Format("2006-01-02")
	}
}

func newAddCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "add [text...]",
		Short: "Record text in the history without touching the clipboard",
		Long: `Adds text to the history. Arguments are joined with spaces; with no
arguments stdin is read. Blank text and text equal to the newest entry are
skipped.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, args []string) error { return runAdd(cmd, v, args) },
	}
	cmd.Flags().BoolP("quiet", "q", false, "print nothing")
	addClientFlags(cmd)
	return cmd
}

func runAdd(cmd *cobra.Command, v *viper.Viper, args []string) error {
	text, err := inputText(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	s, err := connect(v)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := s.ctx(cmd.Context())
	defer cancel()
	inserted, err := s.Add(ctx, text)
	if err != nil {
		return describe("add", err)
	}
	if !v.GetBool("quiet") {
		if inserted {
			fmt.Fprintln(cmd.OutOrStdout(), "added")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "skipped (blank or same as newest entry)")
		}
	}
	return nil
}

func newClearCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "clear",
		Short:   "Remove every history entry",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := connect(v)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx, cancel := s.ctx(cmd.Context())
			defer cancel()
			if err := s.Clear(ctx); err != nil {
				return describe("clear", err)
			}
			return nil
		},
	}
	addClientFlags(cmd)
	return cmd
}

// inputText joins args, or reads all of in when there are none.
func inputText(in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
