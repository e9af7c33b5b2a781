// Package obelisk implements the obelisk command line interface: assembling,
// signing, submitting and executing cross-chain deployment proposals.
package obelisk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// BuildObeliskCmd assembles the obelisk command tree.
func BuildObeliskCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "obelisk",
		Short: "Manage cross-chain deployment proposals",
		Long: `Obelisk drives multi-chain contract deployments: it bundles per-chain
action lists into a single Merkle-rooted proposal, collects owner signatures,
submits the proposal to the approval service and executes the approved
deployment batch by batch against each chain's manager contract.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to the config file (default: ./obelisk.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newProposeCmd())
	cmd.AddCommand(newSignCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDeployCmd())
	cmd.AddCommand(newCancelCmd())

	return &cmd
}

// loadConfig reads the config file into the package-level config. A missing
// file is only an error when one was named explicitly; every value has a
// flag or environment fallback.
func loadConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("obelisk")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "obelisk"))
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			return nil
		}

		return fmt.Errorf("read config file: %w", err)
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("decode config file %s: %w", viper.ConfigFileUsed(), err)
	}

	return nil
}
