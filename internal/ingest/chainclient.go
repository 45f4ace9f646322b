package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/n8kahl/dreambot/internal/model"
)

const chainBaseURL = "https://api.polygon.io/v3/reference/options/contracts"

// ChainClientConfig configures the option-chain snapshot fetcher (§6's
// vendor wire feed boundary). BaseURL defaults to the vendor's reference
// endpoint when empty; tests override it to point at an httptest.Server.
type ChainClientConfig struct {
	APIKey         string
	BaseURL        string
	RequestTimeout time.Duration
	MaxOptions     int
}

// ChainClient fetches option-chain snapshots from the vendor reference API,
// paginating via next_url and retrying transient failures with backoff —
// the same retryablehttp idiom the OMS live broker adapter uses.
type ChainClient struct {
	cfg    ChainClientConfig
	client *retryablehttp.Client
}

// NewChainClient constructs a ChainClient.
func NewChainClient(cfg ChainClientConfig) *ChainClient {
	if cfg.MaxOptions <= 0 {
		cfg.MaxOptions = 500
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = chainBaseURL
	}
	client := retryablehttp.NewClient()
	client.RetryWaitMin = time.Second
	client.RetryWaitMax = 30 * time.Second
	client.RetryMax = 5
	client.Logger = nil
	return &ChainClient{cfg: cfg, client: client}
}

type chainPage struct {
	NextURL string       `json:"next_url"`
	Results []chainEntry `json:"results"`
}

type chainEntry struct {
	Updated              int64   `json:"updated"`
	Ticker               string  `json:"ticker"`
	StrikePrice          float64 `json:"strike_price"`
	ContractType         string  `json:"contract_type"`
	ExpirationDate       string  `json:"expiration_date"`
	ImpliedVolatility    float64 `json:"implied_volatility"`
	OpenInterest         int64   `json:"open_interest"`
	PreviousDayOI        int64   `json:"previous_day_open_interest"`
	Greeks               struct {
		Delta float64 `json:"delta"`
		Gamma float64 `json:"gamma"`
		Vega  float64 `json:"vega"`
		Theta float64 `json:"theta"`
	} `json:"greeks"`
}

func (e chainEntry) toOptionMeta(underlying string) model.OptionMeta {
	optType := "P"
	if e.ContractType == "call" {
		optType = "C"
	}
	exp := e.ExpirationDate
	if exp == "" {
		exp = "1970-01-01"
	}
	return model.OptionMeta{
		TS:         e.Updated,
		Underlying: underlying,
		Symbol:     e.Ticker,
		Strike:     e.StrikePrice,
		Type:       optType,
		Exp:        exp,
		IV:         e.ImpliedVolatility,
		Delta:      e.Greeks.Delta,
		Gamma:      e.Greeks.Gamma,
		Vega:       e.Greeks.Vega,
		Theta:      e.Greeks.Theta,
		OI:         e.OpenInterest,
		PrevOI:     e.PreviousDayOI,
	}
}

// FetchChain retrieves up to cfg.MaxOptions contracts for underlying,
// following next_url pagination (§4 ingest component, grounded on the
// original's ChainSnapshotClient.fetch_chain).
func (c *ChainClient) FetchChain(ctx context.Context, underlying string) ([]model.OptionMeta, error) {
	var results []model.OptionMeta
	url := fmt.Sprintf("%s?underlying_ticker=%s&limit=100&order=asc", c.cfg.BaseURL, underlying)

	for url != "" && len(results) < c.cfg.MaxOptions {
		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("ingest: build chain request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("ingest: fetch chain for %s: %w", underlying, err)
		}

		var page chainPage
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("ingest: decode chain page: %w", err)
		}

		for _, entry := range page.Results {
			results = append(results, entry.toOptionMeta(underlying))
			if len(results) >= c.cfg.MaxOptions {
				break
			}
		}
		url = page.NextURL
	}
	return results, nil
}
