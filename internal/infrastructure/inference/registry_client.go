// Package inference implements the HTTP client for the remote model-registry
// prediction endpoint.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/underwritex/riskd/internal/config"
	"github.com/underwritex/riskd/internal/domain/models"
	"github.com/underwritex/riskd/internal/domain/service"
	"github.com/underwritex/riskd/pkg/errors"
	"github.com/underwritex/riskd/pkg/logger"
)

// outputScoreKey is the fixed response key carrying the scalar score.
const outputScoreKey = "output_feature_0"

// RegistryClient calls the model-registry prediction endpoint. The wire
// format is the registry's row-batch envelope: the request carries
// {"data": [[index, {FEATURE: value, ...}]]} and the response carries
// {"data": [[index, {"output_feature_0": score, ...}]]}.
type RegistryClient struct {
	cfg        config.ModelConfig
	httpClient *http.Client
	log        logger.Logger
}

var _ service.InferenceClient = (*RegistryClient)(nil)

// NewRegistryClient creates a RegistryClient. The underlying transport pools
// connections so many concurrent short-lived calls do not serialize against
// each other.
func NewRegistryClient(cfg config.ModelConfig, log logger.Logger) *RegistryClient {
	return &RegistryClient{
		cfg: cfg,
		httpClient: &http.Client{
			// The per-call deadline comes from the request context; the
			// client-level timeout is only a safety net.
			Timeout: 2 * cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log: log.WithComponent("registry_client"),
	}
}

type registryRequest struct {
	Data [][]interface{} `json:"data"`
}

type registryResponse struct {
	Data []json.RawMessage `json:"data"`
}

type registryOutput struct {
	Score        *float64 `json:"output_feature_0"`
	ModelVersion string   `json:"model_version"`
}

// Infer scores the feature vector remotely. Every failure mode is classified
// as errors.ErrModelUnavailable; the caller falls back to the rule-based
// scorer without inspecting the cause.
func (c *RegistryClient) Infer(ctx context.Context, fv *models.FeatureVector) (float64, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(registryRequest{
		Data: [][]interface{}{{0, fv.ModelInput()}},
	})
	if err != nil {
		return 0, "", errors.ErrModelUnavailable.WithError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return 0, "", errors.ErrModelUnavailable.WithError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn(ctx, "Model endpoint call failed", logger.String("url", c.cfg.URL), logger.Any("error", err.Error()))
		return 0, "", errors.ErrModelUnavailable.WithError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn(ctx, "Model endpoint returned non-success status", logger.Int("status", resp.StatusCode))
		return 0, "", errors.ErrModelUnavailable.WithError(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, "", errors.ErrModelUnavailable.WithError(err)
	}

	score, version, err := parseOutput(body)
	if err != nil {
		c.log.Warn(ctx, "Model endpoint returned malformed body", logger.Any("error", err.Error()))
		return 0, "", errors.ErrModelUnavailable.WithError(err)
	}

	if version == "" {
		version = c.cfg.Version
	}
	return score, version, nil
}

// parseOutput extracts the score and optional model version from the
// registry's row-batch response envelope.
func parseOutput(body []byte) (float64, string, error) {
	var resp registryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, "", fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Data) == 0 {
		return 0, "", fmt.Errorf("response carries no rows")
	}

	var row []json.RawMessage
	if err := json.Unmarshal(resp.Data[0], &row); err != nil {
		return 0, "", fmt.Errorf("decode row: %w", err)
	}
	if len(row) < 2 {
		return 0, "", fmt.Errorf("row carries no output payload")
	}

	var out registryOutput
	if err := json.Unmarshal(row[1], &out); err != nil {
		return 0, "", fmt.Errorf("decode output payload: %w", err)
	}
	if out.Score == nil {
		return 0, "", fmt.Errorf("output payload missing %q", outputScoreKey)
	}
	if *out.Score < 0 || *out.Score > 1 {
		return 0, "", fmt.Errorf("score %f outside [0,1]", *out.Score)
	}
	return *out.Score, out.ModelVersion, nil
}
