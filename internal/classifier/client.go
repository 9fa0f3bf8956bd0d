package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Alias1177/FraudShield/internal/config"
	platformhttp "github.com/Alias1177/FraudShield/internal/platform/http"
	"github.com/Alias1177/FraudShield/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Client talks to the external fraud-classification service
type Client struct {
	baseURL string
	http    *platformhttp.Client
	logger  zerolog.Logger
}

type predictRequest struct {
	Conversation string `json:"conversation"`
}

// NewClient creates a classification client. Every Submit makes exactly one call.
func NewClient(cfg *config.Config) *Client {
	return NewClientWithHTTP(cfg.APIURL, platformhttp.NewClient(platformhttp.ClientOptions{
		Timeout:        cfg.RequestTimeout,
		RequestsPerSec: cfg.RequestsPerSec,
		MaxRetries:     0,
	}))
}

// NewClientWithHTTP creates a client over an existing platform HTTP client
func NewClientWithHTTP(baseURL string, httpClient *platformhttp.Client) *Client {
	if baseURL == "" {
		baseURL = config.DefaultAPIURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  log.With().Str("component", "classifier").Logger(),
	}
}

// BaseURL returns the service address the client posts to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Submit sends the conversation to POST /predict.
// Every failure is returned as *ConnectivityFailure.
func (c *Client) Submit(ctx context.Context, conversation string) (models.PredictionResult, error) {
	var result models.PredictionResult

	payload, err := json.Marshal(predictRequest{Conversation: conversation})
	if err != nil {
		return result, newConnectivityFailure("encoding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return result, newConnectivityFailure("creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Int("length", len(conversation)).Msg("Submitting conversation")

	resp, err := c.http.DoRequest(ctx, req)
	if err != nil {
		c.logger.Error().Err(err).Msg("Classification request failed")
		return result, newConnectivityFailure("", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, newConnectivityFailure("reading response body", err)
	}

	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error().Err(err).Str("response", string(body)).Msg("Error parsing JSON")
		return models.PredictionResult{}, newConnectivityFailure("parsing response", err)
	}

	if err := result.Validate(); err != nil {
		c.logger.Warn().Err(err).Msg("Classification service returned inconsistent probabilities")
	}

	c.logger.Debug().
		Str("label", result.Label.String()).
		Float64("confidence", result.Confidence).
		Msg("Received prediction")
	return result, nil
}

// Health calls the service's welcome endpoint
func (c *Client) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.DoRequest(ctx, req)
	if err != nil {
		return "", newConnectivityFailure("", err)
	}
	defer resp.Body.Close()

	var welcome struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&welcome); err != nil {
		return "", newConnectivityFailure("parsing response", err)
	}
	return welcome.Message, nil
}
