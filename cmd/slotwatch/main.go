// Package main is the entry point for the slotwatch CLI.
//
// slotwatch checks a registry of appointment pages once and announces the
// pages that look available. It is meant to be run from cron.
//
// Usage:
//
//	slotwatch -r 2015551234                     # check the built-in registry, log only
//	slotwatch -n sms -r 2015551234 -c sites.yaml
//	slotwatch validate -c sites.yaml            # validate a registry
//	slotwatch version                           # show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd runs one check cycle when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "slotwatch",
	Short: "Check appointment pages for open slots",
	Long: `slotwatch fetches a list of appointment pages and reports the ones whose
"fully booked" text has disappeared.

Each page in the registry names one or more marker texts. By default a page
looks promising once none of its markers are present. Matches are logged, or
sent as a text message with --notification-type sms.

SMS delivery reads TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_NUMBER
from the environment.

Example config:
  timeout: 30s
  expectations:
    - url: https://vaccines.example.com
      marker: Vaccine appointment schedule is FULL`,
	SilenceUsage: true,
	RunE:         runCheck,
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this slotwatch binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "slotwatch %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
