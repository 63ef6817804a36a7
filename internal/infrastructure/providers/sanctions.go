package providers

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/riskpulse/internal/config"
	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/pkg/constants"
	"github.com/turtacn/riskpulse/pkg/logger"
)

// SanctionsClient screens a business against sanctions, watchlists, and
// politically-exposed-person registries.
type SanctionsClient struct {
	httpClient
}

// NewSanctionsClient creates the sanctions/compliance provider client.
func NewSanctionsClient(cfg config.ProviderConfig, apiKey string, log logger.Logger) *SanctionsClient {
	return &SanctionsClient{newHTTPClient(constants.ProviderSanctions, cfg, apiKey, log)}
}

func (c *SanctionsClient) ID() constants.ProviderID { return constants.ProviderSanctions }

type sanctionsResponse struct {
	SanctionHits  int      `json:"sanction_hits"`
	WatchlistHits int      `json:"watchlist_hits"`
	PEPMatches    int      `json:"pep_matches"`
	Lists         []string `json:"lists"`
	DataQuality   float64  `json:"data_quality"`
}

// Fetch screens one business.
func (c *SanctionsClient) Fetch(ctx context.Context, profile models.BusinessProfile) (models.ExternalDataRecord, error) {
	var resp sanctionsResponse
	err := c.post(ctx, "/v1/screen", lookupRequest{
		BusinessName: profile.Name,
		Address:      profile.Address,
		Country:      profile.Country,
		Industry:     profile.Industry,
	}, &resp)
	if err != nil {
		return models.ExternalDataRecord{}, err
	}

	record := models.ExternalDataRecord{
		ProviderID: c.ID(),
		Signals: map[string]float64{
			"sanction_hits":  float64(resp.SanctionHits),
			"watchlist_hits": float64(resp.WatchlistHits),
			"pep_matches":    float64(resp.PEPMatches),
		},
		FetchedAt: time.Now().UTC(),
		Succeeded: true,
		Quality:   clampQuality(resp.DataQuality),
	}
	if len(resp.Lists) > 0 {
		record.Attributes = map[string]string{"lists": strings.Join(resp.Lists, ",")}
	}
	return record, nil
}
