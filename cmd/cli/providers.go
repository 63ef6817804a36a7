package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

// providersCmd groups the external-provider commands.
var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Inspect and administer external data providers",
}

func init() {
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Show the circuit breaker state of every provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodGet, "/api/v1/providers/health", nil)
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset-breaker <provider-id>",
		Short: "Force a provider's circuit breaker back to closed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, fmt.Sprintf("/api/v1/providers/%s/breaker/reset", args[0]), nil)
		},
	}

	providersCmd.AddCommand(healthCmd, resetCmd)
	rootCmd.AddCommand(providersCmd)
}
