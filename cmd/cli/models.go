package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

// modelsCmd groups the model registry commands.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the loaded scoring models",
}

func init() {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered models and their versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodGet, "/api/v1/models", nil)
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <model-id>",
		Short: "Show one model's descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodGet, fmt.Sprintf("/api/v1/models/%s", args[0]), nil)
		},
	}

	modelsCmd.AddCommand(listCmd, getCmd)
	rootCmd.AddCommand(modelsCmd)
}
