package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/turtacn/riskpulse/internal/config"
	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/pkg/constants"
	"github.com/turtacn/riskpulse/pkg/logger"
)

// FinancialClient fetches the financial profile of a business: ratios,
// delinquencies, and the monthly revenue series backing the long-horizon
// engine's history window.
type FinancialClient struct {
	httpClient
}

// NewFinancialClient creates the financial-profile provider client.
func NewFinancialClient(cfg config.ProviderConfig, apiKey string, log logger.Logger) *FinancialClient {
	return &FinancialClient{newHTTPClient(constants.ProviderFinancial, cfg, apiKey, log)}
}

func (c *FinancialClient) ID() constants.ProviderID { return constants.ProviderFinancial }

type financialResponse struct {
	RevenueGrowth        float64   `json:"revenue_growth"`
	ProfitMargin         float64   `json:"profit_margin"`
	DebtRatio            float64   `json:"debt_ratio"`
	LiquidityRatio       float64   `json:"liquidity_ratio"`
	CreditUtilization    float64   `json:"credit_utilization"`
	PaymentDelinquencies float64   `json:"payment_delinquencies"`
	YearsInOperation     float64   `json:"years_in_operation"`
	MonthlyRevenue       []float64 `json:"monthly_revenue"`
	DataQuality          float64   `json:"data_quality"`
}

// Fetch retrieves the financial profile for one business.
func (c *FinancialClient) Fetch(ctx context.Context, profile models.BusinessProfile) (models.ExternalDataRecord, error) {
	var resp financialResponse
	err := c.post(ctx, "/v1/financial-profile", lookupRequest{
		BusinessName: profile.Name,
		Address:      profile.Address,
		Country:      profile.Country,
		Industry:     profile.Industry,
	}, &resp)
	if err != nil {
		return models.ExternalDataRecord{}, err
	}

	signals := map[string]float64{
		"revenue_growth":        resp.RevenueGrowth,
		"profit_margin":         resp.ProfitMargin,
		"debt_ratio":            resp.DebtRatio,
		"liquidity_ratio":       resp.LiquidityRatio,
		"credit_utilization":    resp.CreditUtilization,
		"payment_delinquencies": resp.PaymentDelinquencies,
		"years_in_operation":    resp.YearsInOperation,
	}
	// The monthly series is flattened into indexed signals, newest last, so
	// the record stays a flat numeric map end to end.
	for i, v := range resp.MonthlyRevenue {
		signals[fmt.Sprintf("monthly_revenue_%02d", i)] = v
	}

	return models.ExternalDataRecord{
		ProviderID: c.ID(),
		Signals:    signals,
		FetchedAt:  time.Now().UTC(),
		Succeeded:  true,
		Quality:    clampQuality(resp.DataQuality),
	}, nil
}
