// Package cli implements the walletcore command-line entry point. The
// toolkit itself is a library — internal/config, internal/vault,
// internal/keyderiv, and the rest are meant to be embedded by a hosting
// process. This CLI exists only to load a config file, report version
// information, and run a health check against the configured Stacks API
// endpoint, the way a minimal operator tool would.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aibtc/wallet-core/internal/config"
	"github.com/aibtc/wallet-core/pkg/apperr"
)

// BuildInfo carries version metadata injected at build time via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

//nolint:gochecknoglobals // cobra CLI pattern requires package-level state
var (
	configPath string
	buildInfo  BuildInfo
	cfg        *config.Config
)

//nolint:gochecknoglobals // cobra CLI pattern requires package-level command variables
var rootCmd = &cobra.Command{
	Use:           "walletcore",
	Short:         "Operator tooling for the aibtc wallet-core toolkit",
	Long:          `walletcore loads a wallet-core configuration and exposes version and health-check commands. Wallet operations themselves are driven through the Go packages, not this binary.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return loadConfig()
	},
}

func loadConfig() error {
	if configPath == "" {
		cfg = config.Defaults()
		return nil
	}
	loaded, err := config.Load(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = config.Defaults()
			return nil
		}
		return apperr.Wrap(apperr.KindGeneral, "loading config", err)
	}
	cfg = loaded
	return nil
}

// Execute runs the root command with the given build info.
func Execute(info BuildInfo) error {
	buildInfo = info
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	return apperr.ExitCode(err)
}

//nolint:gochecknoinits // cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a wallet-core config YAML file (default: built-in defaults)")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(healthCmd)
}
