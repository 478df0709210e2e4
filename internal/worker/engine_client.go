package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/skucast/tuning_go_server/config"
	"github.com/skucast/tuning_go_server/internal/model"
)

// EngineClient calls the external optimization engine over HTTP. The engine
// runs the actual grid/AI search; this client only shuttles parameters in
// and scores/forecasts out.
type EngineClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewEngineClient(cfg *config.EngineConfig) *EngineClient {
	return &EngineClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type engineRequest struct {
	SKU           string             `json:"sku"`
	ModelID       string             `json:"model_id"`
	Method        string             `json:"method"`
	DatasetID     string             `json:"dataset_id"`
	Parameters    map[string]float64 `json:"parameters"`
	MetricWeights map[string]float64 `json:"metric_weights"`
}

type engineResponse struct {
	Scores    map[string]float64    `json:"scores"`
	Forecasts []model.ForecastPoint `json:"forecasts"`
	Error     string                `json:"error"`
}

// Optimize submits the tuning request and blocks until the engine answers.
// Progress is reported at the request boundaries; the engine call itself is
// opaque.
func (c *EngineClient) Optimize(ctx context.Context, spec OptimizeSpec, report func(int)) (*Outcome, error) {
	report(5)

	body, err := json.Marshal(engineRequest{
		SKU:           spec.SKU,
		ModelID:       spec.ModelID,
		Method:        spec.Method,
		DatasetID:     spec.DatasetID,
		Parameters:    spec.Parameters,
		MetricWeights: spec.MetricWeights,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal engine request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/optimize", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	report(10)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read engine response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine returned status %d: %s", resp.StatusCode, string(data))
	}

	var engineResp engineResponse
	if err := json.Unmarshal(data, &engineResp); err != nil {
		return nil, fmt.Errorf("failed to decode engine response: %w", err)
	}
	if engineResp.Error != "" {
		return nil, fmt.Errorf("engine error: %s", engineResp.Error)
	}

	report(95)

	return &Outcome{
		Scores:    engineResp.Scores,
		Forecasts: model.ForecastSeries(engineResp.Forecasts),
	}, nil
}
