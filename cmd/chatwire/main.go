package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┬ ┬┌─┐┌┬┐┬ ┬┬┬─┐┌─┐
  │  ├─┤├─┤ │ │││││├┬┘├┤
  └─┘┴ ┴┴ ┴ ┴ └┴┘┴┴└─└─┘
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "chatwire",
		Short: "Handle-routed TCP chat relay",
		Long: `Chatwire is a TCP chat relay.

Clients register a unique handle over a length-prefixed binary
protocol, then exchange messages routed by handle:

  • Broadcast to every registered client
  • Unicast to one handle
  • Multicast to 2..9 handles
  • Roster listing on demand

The relay treats message text as opaque bytes and optionally exposes
a Prometheus ops endpoint and a WebSocket gateway for browsers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands
	rootCmd.AddCommand(
		serveCmd(),
		connectCmd(),
		versionCmd(),
	)

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// printBanner prints the chatwire ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}
