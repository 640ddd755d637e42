// Package cli is the swimnode command-line entrypoint: start a member,
// and query or instruct a running member over its admin HTTP API.
// Grounded on the teacher's internal/cli package's cobra root/subcommand
// idiom (internal/cli/agent.go's rootCmd.AddCommand-from-init pattern),
// rebuilt around run/members/leave instead of agent workflows.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "swimnode",
	Short: "A SWIM-family decentralized cluster membership node",
	Long: `swimnode runs one member of a SWIM-style gossip cluster: direct
pings, indirect ping-requests, and piggybacked membership dissemination,
all driven by a single configuration file.`,
}

// Execute runs the root command, reporting any error to stderr and
// exiting non-zero — the conventional cobra entrypoint shape.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
