package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/aibtc/wallet-core/internal/stacksapi"
)

//nolint:gochecknoglobals // cobra CLI pattern requires package-level command variables
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check connectivity to the configured Stacks API endpoint",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client := stacksapi.New(cfg.StacksAPI.BaseURL)
		defer client.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		if _, err := client.EstimateContractCallFee(ctx, "", stacksapi.FeePriorityLow); err != nil {
			cmd.Printf("unhealthy: %v\n", err)
			return err
		}

		cmd.Printf("healthy: %s reachable\n", cfg.StacksAPI.BaseURL)
		return nil
	},
}
