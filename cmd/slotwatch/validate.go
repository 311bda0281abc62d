package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/slotwatch/config"
)

// validateCmd validates a registry without fetching anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a registry file",
	Long: `Validate a slotwatch registry without checking any page.

This command parses the YAML, expands environment variables, and validates
all fields. Without -c it validates the built-in registry.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  slotwatch validate -c sites.yaml`,
	SilenceUsage: true,
	RunE:         runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to registry file (default: built-in registry)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// build to catch anything the SDK rejects
	expectations, err := config.BuildExpectations(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	policy := config.BuildRetryPolicy(cfg.Retry)
	cooldown := "disabled"
	if cfg.Cooldown.Enabled() {
		cooldown = cfg.Cooldown.RedisAddr
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Timeout:      %s\n", cfg.Timeout.Duration())
	fmt.Fprintf(out, "  Retries:      %d (backoff factor %g)\n", policy.MaxRetries, policy.BackoffFactor)
	fmt.Fprintf(out, "  Cooldown:     %s\n", cooldown)
	fmt.Fprintf(out, "  Expectations: %d\n", len(expectations))
	for _, e := range expectations {
		polarity := "absent"
		if e.ShouldExist() {
			polarity = "present"
		}
		fmt.Fprintf(out, "    - %s (%s): %d marker(s) %s [%s]\n",
			e.Name(), e.URL(), len(e.Markers()), polarity, e.Format())
	}

	return nil
}
