package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// assessmentsCmd groups the risk assessment commands.
var assessmentsCmd = &cobra.Command{
	Use:   "assessments",
	Short: "Create and inspect risk assessments",
}

func init() {
	var (
		name     string
		address  string
		industry string
		country  string
		horizons []int
		model    string
	)

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Run a risk assessment for a business",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{
				"business_name":    name,
				"business_address": address,
				"industry":         industry,
				"country":          country,
			}
			if len(horizons) > 0 {
				body["prediction_horizon"] = horizons[0]
				if len(horizons) > 1 {
					body["prediction_horizons"] = horizons
				}
			}
			if model != "" {
				body["model_preference"] = model
			}
			return call(http.MethodPost, "/api/v1/assessments", body)
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "Business name (required)")
	createCmd.Flags().StringVar(&address, "address", "", "Business address (required)")
	createCmd.Flags().StringVar(&industry, "industry", "", "Industry classification code (required)")
	createCmd.Flags().StringVar(&country, "country", "", "ISO country code (required)")
	createCmd.Flags().IntSliceVar(&horizons, "horizon", nil, "Prediction horizons in months")
	createCmd.Flags().StringVar(&model, "model", "", "Explicit model override (xgboost, lstm, ensemble)")
	createCmd.MarkFlagRequired("name")
	createCmd.MarkFlagRequired("address")
	createCmd.MarkFlagRequired("industry")
	createCmd.MarkFlagRequired("country")

	getCmd := &cobra.Command{
		Use:   "get <assessment-id>",
		Short: "Fetch one assessment by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodGet, fmt.Sprintf("/api/v1/assessments/%s", args[0]), nil)
		},
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list <business-id>",
		Short: "List assessments for a business, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			query.Set("business_id", args[0])
			query.Set("limit", strconv.Itoa(limit))
			return call(http.MethodGet, "/api/v1/assessments?"+query.Encode(), nil)
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of assessments to return")

	assessmentsCmd.AddCommand(createCmd, getCmd, listCmd)
	rootCmd.AddCommand(assessmentsCmd)
}
