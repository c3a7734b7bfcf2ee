package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	googleAdsBaseURL      = "https://googleads.googleapis.com/v17"
	googleOAuthTokenURL   = "https://oauth2.googleapis.com/token"
	googleAdsPlatformName = "google"
)

// GoogleAdsConfig holds Google Ads API credentials.
type GoogleAdsConfig struct {
	DeveloperToken string
	ClientID       string
	ClientSecret   string
	RefreshToken   string
	CustomerID     string
	Timeout        time.Duration
}

// GoogleAdsClient talks to the Google Ads REST API. OAuth access tokens are
// minted from the refresh token and cached until shortly before expiry.
type GoogleAdsClient struct {
	config   GoogleAdsConfig
	baseURL  string
	tokenURL string
	client   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewGoogleAdsClient creates a new Google Ads API client
func NewGoogleAdsClient(config GoogleAdsConfig) *GoogleAdsClient {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &GoogleAdsClient{
		config:   config,
		baseURL:  googleAdsBaseURL,
		tokenURL: googleOAuthTokenURL,
		client:   &http.Client{Timeout: config.Timeout},
	}
}

func (c *GoogleAdsClient) Name() string { return googleAdsPlatformName }

func (c *GoogleAdsClient) Configured() bool {
	return c.config.DeveloperToken != "" &&
		c.config.RefreshToken != "" &&
		c.config.CustomerID != ""
}

// getAccessToken returns a cached access token, refreshing when expired.
func (c *GoogleAdsClient) getAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-1*time.Minute)) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", c.config.ClientID)
	form.Set("client_secret", c.config.ClientSecret)
	form.Set("refresh_token", c.config.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", NewError(googleAdsPlatformName, "token", ErrorKindTransient, fmt.Errorf("token request failed: %w", err))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", NewError(googleAdsPlatformName, "token", classifyStatus(resp.StatusCode),
			fmt.Errorf("token exchange failed (%d): %s", resp.StatusCode, string(body)))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

func (c *GoogleAdsClient) do(ctx context.Context, op, path string, body, out any) error {
	if !c.Configured() {
		return NewError(googleAdsPlatformName, op, ErrorKindNotConfigured, fmt.Errorf("missing developer token, refresh token or customer ID"))
	}

	token, err := c.getAccessToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return NewError(googleAdsPlatformName, op, ErrorKindRejected, fmt.Errorf("failed to encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return NewError(googleAdsPlatformName, op, ErrorKindRejected, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("developer-token", c.config.DeveloperToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return NewError(googleAdsPlatformName, op, ErrorKindTransient, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewError(googleAdsPlatformName, op, ErrorKindTransient, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewError(googleAdsPlatformName, op, classifyStatus(resp.StatusCode),
			fmt.Errorf("API error %d: %s", resp.StatusCode, string(raw)))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return NewError(googleAdsPlatformName, op, ErrorKindRejected, fmt.Errorf("failed to decode response: %w", err))
		}
	}

	return nil
}

type googleAdsSearchResponse struct {
	Results []struct {
		Campaign struct {
			ResourceName   string `json:"resourceName"`
			ID             string `json:"id"`
			Name           string `json:"name"`
			Status         string `json:"status"`
			CampaignBudget string `json:"campaignBudget"`
		} `json:"campaign"`
		CampaignBudget struct {
			ResourceName string `json:"resourceName"`
			AmountMicros string `json:"amountMicros"`
		} `json:"campaignBudget"`
		Metrics struct {
			CostMicros       string  `json:"costMicros"`
			Impressions      string  `json:"impressions"`
			Clicks           string  `json:"clicks"`
			Conversions      float64 `json:"conversions"`
			ConversionsValue float64 `json:"conversionsValue"`
		} `json:"metrics"`
	} `json:"results"`
}

func (c *GoogleAdsClient) search(ctx context.Context, op, query string) (*googleAdsSearchResponse, error) {
	var resp googleAdsSearchResponse
	path := "/customers/" + c.config.CustomerID + "/googleAds:search"
	err := c.do(ctx, op, path, map[string]string{"query": query}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListCampaigns returns every non-removed campaign in the account
func (c *GoogleAdsClient) ListCampaigns(ctx context.Context) ([]RemoteCampaign, error) {
	query := `SELECT campaign.id, campaign.name, campaign.status, campaign_budget.amount_micros ` +
		`FROM campaign WHERE campaign.status != 'REMOVED'`

	resp, err := c.search(ctx, "ListCampaigns", query)
	if err != nil {
		return nil, err
	}

	campaigns := make([]RemoteCampaign, 0, len(resp.Results))
	for _, row := range resp.Results {
		micros, _ := strconv.ParseInt(row.CampaignBudget.AmountMicros, 10, 64)
		campaigns = append(campaigns, RemoteCampaign{
			ID:               row.Campaign.ID,
			Name:             row.Campaign.Name,
			Status:           row.Campaign.Status,
			DailyBudgetCents: microsToCents(micros),
		})
	}

	return campaigns, nil
}

// GetPerformance returns cumulative metrics per campaign for the range
func (c *GoogleAdsClient) GetPerformance(ctx context.Context, campaignIDs []string, r DateRange) ([]Performance, error) {
	query := fmt.Sprintf(
		`SELECT campaign.id, metrics.cost_micros, metrics.impressions, metrics.clicks, `+
			`metrics.conversions, metrics.conversions_value FROM campaign `+
			`WHERE segments.date BETWEEN '%s' AND '%s' AND campaign.id IN (%s)`,
		r.Since.Format("2006-01-02"), r.Until.Format("2006-01-02"),
		strings.Join(campaignIDs, ","))

	resp, err := c.search(ctx, "GetPerformance", query)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*Performance, len(campaignIDs))
	for _, id := range campaignIDs {
		byID[id] = &Performance{CampaignID: id}
	}

	for _, row := range resp.Results {
		perf, ok := byID[row.Campaign.ID]
		if !ok {
			continue
		}
		micros, _ := strconv.ParseInt(row.Metrics.CostMicros, 10, 64)
		impressions, _ := strconv.ParseInt(row.Metrics.Impressions, 10, 64)
		clicks, _ := strconv.ParseInt(row.Metrics.Clicks, 10, 64)
		perf.SpendCents += microsToCents(micros)
		perf.Impressions += impressions
		perf.Clicks += clicks
		perf.Conversions += int64(row.Metrics.Conversions)
		perf.RevenueCents += int64(row.Metrics.ConversionsValue * 100)
	}

	results := make([]Performance, 0, len(campaignIDs))
	for _, id := range campaignIDs {
		results = append(results, *byID[id])
	}

	return results, nil
}

// SetBudget sets the campaign's shared daily budget. The budget resource is
// resolved with a lookup query first because mutations address the budget,
// not the campaign.
func (c *GoogleAdsClient) SetBudget(ctx context.Context, campaignID string, dailyBudgetCents int64) error {
	query := fmt.Sprintf(
		`SELECT campaign.id, campaign_budget.resource_name FROM campaign WHERE campaign.id = %s`,
		campaignID)

	resp, err := c.search(ctx, "SetBudget", query)
	if err != nil {
		return err
	}
	if len(resp.Results) == 0 {
		return NewError(googleAdsPlatformName, "SetBudget", ErrorKindRejected,
			fmt.Errorf("campaign %s not found", campaignID))
	}

	budgetResource := resp.Results[0].CampaignBudget.ResourceName
	body := map[string]any{
		"operations": []map[string]any{{
			"updateMask": "amount_micros",
			"update": map[string]any{
				"resourceName": budgetResource,
				"amountMicros": strconv.FormatInt(centsToMicros(dailyBudgetCents), 10),
			},
		}},
	}

	path := "/customers/" + c.config.CustomerID + "/campaignBudgets:mutate"
	return c.do(ctx, "SetBudget", path, body, nil)
}

func (c *GoogleAdsClient) updateStatus(ctx context.Context, op, campaignID, status string) error {
	body := map[string]any{
		"operations": []map[string]any{{
			"updateMask": "status",
			"update": map[string]any{
				"resourceName": fmt.Sprintf("customers/%s/campaigns/%s", c.config.CustomerID, campaignID),
				"status":       status,
			},
		}},
	}

	path := "/customers/" + c.config.CustomerID + "/campaigns:mutate"
	return c.do(ctx, op, path, body, nil)
}

// Pause stops campaign delivery
func (c *GoogleAdsClient) Pause(ctx context.Context, campaignID string) error {
	return c.updateStatus(ctx, "Pause", campaignID, "PAUSED")
}

// Activate resumes campaign delivery
func (c *GoogleAdsClient) Activate(ctx context.Context, campaignID string) error {
	return c.updateStatus(ctx, "Activate", campaignID, "ENABLED")
}

func microsToCents(micros int64) int64 { return micros / 10_000 }
func centsToMicros(cents int64) int64  { return cents * 10_000 }

// SetBaseURL overrides the API endpoint. Used in tests.
func (c *GoogleAdsClient) SetBaseURL(u string) { c.baseURL = u }

// SetTokenURL overrides the OAuth endpoint. Used in tests.
func (c *GoogleAdsClient) SetTokenURL(u string) { c.tokenURL = u }
