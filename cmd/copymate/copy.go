package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc/codes"
)

func newCopyCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "copy [text... | -i N]",
		Short: "Put text on the clipboard (like pbcopy)",
		Long: `Writes text to the system clipboard through the daemon. The daemon does
not record its own write as a new history entry.

Arguments are joined with spaces; with no arguments stdin is read. Use
--index to copy an existing history entry back (0 = newest). Nothing is
written when the clipboard already holds the text.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, args []string) error { return runCopy(cmd, v, args) },
	}
	cmd.Flags().IntP("index", "i", -1, "copy the history entry at this position instead")
	addClientFlags(cmd)
	return cmd
}

func runCopy(cmd *cobra.Command, v *viper.Viper, args []string) error {
	index := v.GetInt("index")
	if index >= 0 && len(args) > 0 {
		return fmt.Errorf("copy: --index and text arguments are mutually exclusive")
	}

	s, err := connect(v)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := s.ctx(cmd.Context())
	defer cancel()

	var text string
	if index >= 0 {
		entries, err := s.List(ctx, index+1)
		if err != nil {
			return describe("copy", err)
		}
		if index >= len(entries) {
			return fmt.Errorf("copy: no history entry at index %d (have %d)", index, len(entries))
		}
		text = entries[index].Content
	} else {
		text, err = inputText(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
	}

	if _, err := copyText(ctx, s, text); err != nil {
		return describe("copy", err)
	}
	return nil
}

// clipboardClient is the part of the daemon API copyText needs.
type clipboardClient interface {
	Current(ctx context.Context) (string, error)
	Copy(ctx context.Context, content string) error
}

// copyText copies text unless the clipboard already holds it, and reports
// whether a write happened. Writing an unchanged value would arm the daemon's
// self-copy suppression for a change the monitor never sees, so the user's
// next real copy would be dropped.
func copyText(ctx context.Context, c clipboardClient, text string) (bool, error) {
	cur, err := c.Current(ctx)
	switch {
	case err == nil && cur == text:
		return false, nil
	case err != nil && !isCode(err, codes.NotFound) && !isCode(err, codes.Unavailable):
		return false, err
	}
	if err := c.Copy(ctx, text); err != nil {
		return false, err
	}
	return true, nil
}

func newPasteCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "paste",
		Short: "Print the clipboard text to stdout (like pbpaste)",
		Long: `Prints the current clipboard text as the daemon sees it. An empty
clipboard prints nothing and exits 0.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runPaste(cmd, v) },
	}
	addClientFlags(cmd)
	return cmd
}

func runPaste(cmd *cobra.Command, v *viper.Viper) error {
	s, err := connect(v)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := s.ctx(cmd.Context())
	defer cancel()
	text, err := s.Current(ctx)
	if err != nil {
		// Empty clipboard: print nothing, exit 0 (pbpaste behaviour).
		if isCode(err, codes.NotFound) {
			return nil
		}
		return describe("paste", err)
	}
	_, err = io.WriteString(cmd.OutOrStdout(), text)
	return err
}
