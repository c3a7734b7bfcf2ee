package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	klaviyoBaseURL      = "https://a.klaviyo.com/api"
	klaviyoRevision     = "2024-07-15"
	klaviyoPlatformName = "klaviyo"
)

// KlaviyoConfig holds Klaviyo API credentials.
type KlaviyoConfig struct {
	APIKey  string
	Timeout time.Duration
}

// KlaviyoClient pushes marketing events to Klaviyo.
type KlaviyoClient struct {
	config  KlaviyoConfig
	baseURL string
	client  *http.Client
}

// NewKlaviyoClient creates a new Klaviyo API client
func NewKlaviyoClient(config KlaviyoConfig) *KlaviyoClient {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &KlaviyoClient{
		config:  config,
		baseURL: klaviyoBaseURL,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

func (c *KlaviyoClient) Configured() bool { return c.config.APIKey != "" }

// TrackEvent records one metric event against a profile. Used to push the
// daily performance snapshot into Klaviyo for campaign email triggers.
func (c *KlaviyoClient) TrackEvent(ctx context.Context, metricName, profileEmail string, properties map[string]any) error {
	if !c.Configured() {
		return NewError(klaviyoPlatformName, "TrackEvent", ErrorKindNotConfigured, fmt.Errorf("missing API key"))
	}

	payload := map[string]any{
		"data": map[string]any{
			"type": "event",
			"attributes": map[string]any{
				"properties": properties,
				"metric": map[string]any{
					"data": map[string]any{
						"type":       "metric",
						"attributes": map[string]any{"name": metricName},
					},
				},
				"profile": map[string]any{
					"data": map[string]any{
						"type":       "profile",
						"attributes": map[string]any{"email": profileEmail},
					},
				},
			},
		},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return NewError(klaviyoPlatformName, "TrackEvent", ErrorKindRejected, fmt.Errorf("failed to encode event: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events/", bytes.NewReader(raw))
	if err != nil {
		return NewError(klaviyoPlatformName, "TrackEvent", ErrorKindRejected, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Klaviyo-API-Key "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("revision", klaviyoRevision)

	resp, err := c.client.Do(req)
	if err != nil {
		return NewError(klaviyoPlatformName, "TrackEvent", ErrorKindTransient, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return NewError(klaviyoPlatformName, "TrackEvent", classifyStatus(resp.StatusCode),
			fmt.Errorf("events API error %d: %s", resp.StatusCode, string(body)))
	}

	return nil
}

// SetBaseURL overrides the API endpoint. Used in tests.
func (c *KlaviyoClient) SetBaseURL(u string) { c.baseURL = u }
