package providers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/riskpulse/internal/config"
	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/internal/infrastructure/providers"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
	"github.com/turtacn/riskpulse/pkg/logger"
)

var testProfile = models.BusinessProfile{
	Name:     "Acme Logistics GmbH",
	Address:  "1 Dock Road, Hamburg",
	Industry: "4789",
	Country:  "DE",
}

func providerConfig(url string) config.ProviderConfig {
	return config.ProviderConfig{
		BaseURL:      url,
		Timeout:      2 * time.Second,
		RateLimitRPS: 100,
	}
}

func TestFinancialClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/financial-profile", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Acme Logistics GmbH", body["business_name"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"revenue_growth":  0.12,
			"debt_ratio":      0.4,
			"monthly_revenue": []float64{100, 110, 120},
			"data_quality":    0.95,
		})
	}))
	defer srv.Close()

	client := providers.NewFinancialClient(providerConfig(srv.URL), "test-key", logger.NewNoop())

	record, err := client.Fetch(context.Background(), testProfile)
	require.NoError(t, err)

	assert.True(t, record.Succeeded)
	assert.InDelta(t, 0.95, record.Quality, 1e-9)
	assert.InDelta(t, 0.12, record.Signals["revenue_growth"], 1e-9)
	assert.InDelta(t, 120, record.Signals["monthly_revenue_02"], 1e-9)
}

func TestSanctionsClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"sanction_hits": 2,
			"lists":         []string{"OFAC", "EU"},
			"data_quality":  1.0,
		})
	}))
	defer srv.Close()

	client := providers.NewSanctionsClient(providerConfig(srv.URL), "k", logger.NewNoop())

	record, err := client.Fetch(context.Background(), testProfile)
	require.NoError(t, err)

	assert.InDelta(t, 2, record.Signals["sanction_hits"], 1e-9)
	assert.Equal(t, "OFAC,EU", record.Attributes["lists"])
}

func TestClient_Non200IsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := providers.NewAdverseMediaClient(providerConfig(srv.URL), "k", logger.NewNoop())

	_, err := client.Fetch(context.Background(), testProfile)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsExternalProvider(err))
}

func TestClient_TimeoutIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := providerConfig(srv.URL)
	cfg.Timeout = 20 * time.Millisecond
	client := providers.NewFinancialClient(cfg, "k", logger.NewNoop())

	_, err := client.Fetch(context.Background(), testProfile)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsExternalProvider(err))
}
