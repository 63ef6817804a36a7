// Package providers implements the HTTP clients for the external risk-data
// providers. Each client owns its rate limiter and timeout; circuit breaking
// and caching live one level up, in the aggregator.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/turtacn/riskpulse/internal/config"
	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/pkg/constants"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
	"github.com/turtacn/riskpulse/pkg/logger"
)

// Client is one external risk-data provider.
type Client interface {
	ID() constants.ProviderID

	// Fetch performs one provider call for the given business profile. The
	// caller bounds the context with the per-call timeout.
	Fetch(ctx context.Context, profile models.BusinessProfile) (models.ExternalDataRecord, error)
}

// lookupRequest is the common request body sent to every provider.
type lookupRequest struct {
	BusinessName string `json:"business_name"`
	Address      string `json:"address"`
	Country      string `json:"country"`
	Industry     string `json:"industry"`
}

// httpClient is the shared transport base for the concrete providers.
type httpClient struct {
	id      constants.ProviderID
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	log     logger.Logger
}

func newHTTPClient(id constants.ProviderID, cfg config.ProviderConfig, apiKey string, log logger.Logger) httpClient {
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = float64(constants.DefaultProviderRateLimit)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultProviderTimeout
	}
	return httpClient{
		id:      id,
		baseURL: cfg.BaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)),
		log:     log.WithComponent("provider." + string(id)),
	}
}

// post issues one rate-limited JSON POST and decodes the response into out.
func (c *httpClient) post(ctx context.Context, path string, body lookupRequest, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return pkgerrors.ErrExternalProvider(string(c.id), err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.ErrInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.ErrInternal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.ErrExternalProvider(string(c.id), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a bounded amount of the body for the log line only.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn(ctx, "provider returned non-200",
			logger.Int("status", resp.StatusCode),
			logger.String("body", string(snippet)),
		)
		return pkgerrors.ErrExternalProvider(string(c.id),
			fmt.Errorf("unexpected status %d", resp.StatusCode)).
			WithDetail("status", fmt.Sprintf("%d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.ErrExternalProvider(string(c.id), fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func clampQuality(q float64) float64 {
	if q < 0 {
		return 0
	}
	if q > 1 {
		return 1
	}
	return q
}
