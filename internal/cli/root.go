package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bufgate/bufgate/internal/integrity"
	"github.com/bufgate/bufgate/internal/policy"
)

var rootConfig string

var rootCmd = &cobra.Command{
	Use:   "bufgate",
	Short: "Zero-trust buffer validation and governance gate",
	Long:  "Validates payloads through canonicalization, hash verification, and\ncost-based zone classification. Every decision lands in a hash-chained\naudit trail. No payload crosses the gate unvalidated.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := integrity.Verify(); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			os.Exit(78) // EX_CONFIG
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfig, "config", "", "Path to policy YAML (default: ~/.bufgate/policy.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the policy file named by --config, falling back to
// the default location. Returns the config and its content hash for
// the audit context.
func loadConfig() (*policy.Config, string, error) {
	cfg, hash, err := policy.LoadWithHash(rootConfig)
	if err != nil {
		return nil, "", fmt.Errorf("load policy config: %w", err)
	}
	return cfg, hash, nil
}
