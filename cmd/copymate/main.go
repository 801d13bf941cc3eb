// copymate: clipboard history tracker.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.klb.dev/copymate/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "copymate",
		Short: "Clipboard history tracker",
		Long: `copymate watches the system clipboard and keeps a bounded, newest-first
history of the text you copy. Copying an item back through copymate does not
create a duplicate history entry.

Run "copymate daemon" once per session. The other commands talk to it over a
local socket (named pipe on Windows), or over TCP with --server.

Config file search order (first found wins):
  /etc/copymate/copymate.toml
  $HOME/.config/copymate/copymate.toml
  path supplied via --config

All flags can be set via COPYMATE_<FLAG> env vars or config-file keys.
See "copymate daemon --help" for the full flag reference.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newDaemonCmd(),
		newHistoryCmd(),
		newAddCmd(),
		newCopyCmd(),
		newPasteCmd(),
		newClearCmd(),
		newWatchCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("copymate %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr string) {
	logging.Setup(logging.ParseFormat(formatStr), logging.Resolve(interactive, levelStr))
}
