// Package main is the entry point for the mcpulse CLI.
//
// mcpulse can be used as a library (SDK) or as a standalone binary with
// YAML configuration. This CLI is the standalone binary.
//
// Usage:
//
//	mcpulse serve -c config.yaml          # Start the dashboard
//	mcpulse ping play.example.com         # Probe servers once
//	mcpulse validate -c config.yaml       # Validate configuration
//	mcpulse version                       # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "mcpulse",
	Short: "A Minecraft server status poller",
	Long: `mcpulse polls Minecraft servers over the Java (TCP) and Bedrock (UDP)
status protocols and shows player counts, versions and MOTDs in a live
web dashboard.

Quick start:
  1. Create a config file (mcpulse.yaml)
  2. Run: mcpulse serve -c mcpulse.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  poll_interval: 30s
  servers:
    - name: Lobby
      address: play.example.com
    - name: Pocket
      address: be.example.com
      protocol: bedrock`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra has already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this mcpulse binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "mcpulse %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
