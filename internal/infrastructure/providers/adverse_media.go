package providers

import (
	"context"
	"time"

	"github.com/turtacn/riskpulse/internal/config"
	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/pkg/constants"
	"github.com/turtacn/riskpulse/pkg/logger"
)

// AdverseMediaClient fetches media sentiment signals for a business.
type AdverseMediaClient struct {
	httpClient
}

// NewAdverseMediaClient creates the adverse-media provider client.
func NewAdverseMediaClient(cfg config.ProviderConfig, apiKey string, log logger.Logger) *AdverseMediaClient {
	return &AdverseMediaClient{newHTTPClient(constants.ProviderAdverseMedia, cfg, apiKey, log)}
}

func (c *AdverseMediaClient) ID() constants.ProviderID { return constants.ProviderAdverseMedia }

type adverseMediaResponse struct {
	SentimentScore float64 `json:"sentiment_score"` // -1.0 (negative) to 1.0 (positive)
	ArticleCount   int     `json:"article_count"`
	NegativeRatio  float64 `json:"negative_ratio"`
	DataQuality    float64 `json:"data_quality"`
}

// Fetch retrieves media sentiment for one business.
func (c *AdverseMediaClient) Fetch(ctx context.Context, profile models.BusinessProfile) (models.ExternalDataRecord, error) {
	var resp adverseMediaResponse
	err := c.post(ctx, "/v1/media-sentiment", lookupRequest{
		BusinessName: profile.Name,
		Address:      profile.Address,
		Country:      profile.Country,
		Industry:     profile.Industry,
	}, &resp)
	if err != nil {
		return models.ExternalDataRecord{}, err
	}

	return models.ExternalDataRecord{
		ProviderID: c.ID(),
		Signals: map[string]float64{
			"sentiment_score": resp.SentimentScore,
			"article_count":   float64(resp.ArticleCount),
			"negative_ratio":  resp.NegativeRatio,
		},
		FetchedAt: time.Now().UTC(),
		Succeeded: true,
		Quality:   clampQuality(resp.DataQuality),
	}, nil
}
