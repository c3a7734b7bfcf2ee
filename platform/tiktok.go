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
	"time"

	"github.com/amirphl/AutoSEM/utils"
)

const (
	tiktokBaseURL      = "https://business-api.tiktok.com/open_api/v1.3"
	tiktokPlatformName = "tiktok"
)

// TikTokConfig holds TikTok Business API credentials.
type TikTokConfig struct {
	AccessToken  string
	AdvertiserID string
	Timeout      time.Duration
}

// TikTokClient talks to the TikTok Business API.
type TikTokClient struct {
	config  TikTokConfig
	baseURL string
	client  *http.Client
}

// NewTikTokClient creates a new TikTok Business API client
func NewTikTokClient(config TikTokConfig) *TikTokClient {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &TikTokClient{
		config:  config,
		baseURL: tiktokBaseURL,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

func (c *TikTokClient) Name() string { return tiktokPlatformName }

func (c *TikTokClient) Configured() bool {
	return c.config.AccessToken != "" && c.config.AdvertiserID != ""
}

// tiktokEnvelope is the uniform response wrapper. Code 0 means success; the
// HTTP status is 200 even on most failures.
type tiktokEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func tiktokErrorKind(code int) ErrorKind {
	switch code {
	case 40100, 40101, 40102, 40104, 40105:
		return ErrorKindCredential
	case 50000, 50001, 50002:
		return ErrorKindTransient
	default:
		return ErrorKindRejected
	}
}

func (c *TikTokClient) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	if !c.Configured() {
		return NewError(tiktokPlatformName, op, ErrorKindNotConfigured, fmt.Errorf("missing access token or advertiser ID"))
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return NewError(tiktokPlatformName, op, ErrorKindRejected, fmt.Errorf("failed to encode request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return NewError(tiktokPlatformName, op, ErrorKindRejected, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Access-Token", c.config.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return NewError(tiktokPlatformName, op, ErrorKindTransient, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewError(tiktokPlatformName, op, ErrorKindTransient, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NewError(tiktokPlatformName, op, classifyStatus(resp.StatusCode),
			fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(raw)))
	}

	var envelope tiktokEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return NewError(tiktokPlatformName, op, ErrorKindRejected, fmt.Errorf("failed to decode response: %w", err))
	}

	if envelope.Code != 0 {
		return NewError(tiktokPlatformName, op, tiktokErrorKind(envelope.Code),
			fmt.Errorf("API error %d: %s", envelope.Code, envelope.Message))
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return NewError(tiktokPlatformName, op, ErrorKindRejected, fmt.Errorf("failed to decode data: %w", err))
		}
	}

	return nil
}

type tiktokCampaignsData struct {
	List []struct {
		CampaignID      string  `json:"campaign_id"`
		CampaignName    string  `json:"campaign_name"`
		OperationStatus string  `json:"operation_status"`
		Budget          float64 `json:"budget"`
	} `json:"list"`
}

// ListCampaigns returns every campaign under the configured advertiser
func (c *TikTokClient) ListCampaigns(ctx context.Context) ([]RemoteCampaign, error) {
	query := url.Values{}
	query.Set("advertiser_id", c.config.AdvertiserID)
	query.Set("page_size", "100")

	var data tiktokCampaignsData
	err := c.do(ctx, "ListCampaigns", http.MethodGet, "/campaign/get/", query, nil, &data)
	if err != nil {
		return nil, err
	}

	campaigns := make([]RemoteCampaign, 0, len(data.List))
	for _, item := range data.List {
		campaigns = append(campaigns, RemoteCampaign{
			ID:               item.CampaignID,
			Name:             item.CampaignName,
			Status:           item.OperationStatus,
			DailyBudgetCents: utils.CentsFromDollars(item.Budget),
		})
	}

	return campaigns, nil
}

type tiktokReportData struct {
	List []struct {
		Dimensions struct {
			CampaignID string `json:"campaign_id"`
		} `json:"dimensions"`
		Metrics struct {
			Spend             string `json:"spend"`
			Impressions       string `json:"impressions"`
			Clicks            string `json:"clicks"`
			Conversion        string `json:"conversion"`
			TotalPurchaseValue string `json:"total_purchase_value"`
		} `json:"metrics"`
	} `json:"list"`
}

// GetPerformance returns cumulative metrics per campaign for the range
func (c *TikTokClient) GetPerformance(ctx context.Context, campaignIDs []string, r DateRange) ([]Performance, error) {
	idsJSON, _ := json.Marshal(campaignIDs)

	query := url.Values{}
	query.Set("advertiser_id", c.config.AdvertiserID)
	query.Set("report_type", "BASIC")
	query.Set("data_level", "AUCTION_CAMPAIGN")
	query.Set("dimensions", `["campaign_id"]`)
	query.Set("metrics", `["spend","impressions","clicks","conversion","total_purchase_value"]`)
	query.Set("start_date", r.Since.Format("2006-01-02"))
	query.Set("end_date", r.Until.Format("2006-01-02"))
	query.Set("filters", fmt.Sprintf(`[{"field_name":"campaign_ids","filter_type":"IN","filter_value":%s}]`, idsJSON))
	query.Set("page_size", "100")

	var data tiktokReportData
	err := c.do(ctx, "GetPerformance", http.MethodGet, "/report/integrated/get/", query, nil, &data)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Performance, len(campaignIDs))
	for _, row := range data.List {
		spend, _ := utils.CentsFromDollarString(row.Metrics.Spend)
		revenue, _ := utils.CentsFromDollarString(row.Metrics.TotalPurchaseValue)
		impressions, _ := strconv.ParseInt(row.Metrics.Impressions, 10, 64)
		clicks, _ := strconv.ParseInt(row.Metrics.Clicks, 10, 64)
		conversions, _ := strconv.ParseInt(row.Metrics.Conversion, 10, 64)

		byID[row.Dimensions.CampaignID] = Performance{
			CampaignID:   row.Dimensions.CampaignID,
			SpendCents:   spend,
			RevenueCents: revenue,
			Impressions:  impressions,
			Clicks:       clicks,
			Conversions:  conversions,
		}
	}

	results := make([]Performance, 0, len(campaignIDs))
	for _, id := range campaignIDs {
		if perf, ok := byID[id]; ok {
			results = append(results, perf)
		} else {
			results = append(results, Performance{CampaignID: id})
		}
	}

	return results, nil
}

// SetBudget sets the campaign daily budget
func (c *TikTokClient) SetBudget(ctx context.Context, campaignID string, dailyBudgetCents int64) error {
	body := map[string]any{
		"advertiser_id": c.config.AdvertiserID,
		"campaign_id":   campaignID,
		"budget_mode":   "BUDGET_MODE_DAY",
		"budget":        utils.DollarsFromCents(dailyBudgetCents),
	}

	return c.do(ctx, "SetBudget", http.MethodPost, "/campaign/update/", nil, body, nil)
}

func (c *TikTokClient) updateStatus(ctx context.Context, op, campaignID, operation string) error {
	body := map[string]any{
		"advertiser_id":    c.config.AdvertiserID,
		"campaign_ids":     []string{campaignID},
		"operation_status": operation,
	}

	return c.do(ctx, op, http.MethodPost, "/campaign/status/update/", nil, body, nil)
}

// Pause stops campaign delivery
func (c *TikTokClient) Pause(ctx context.Context, campaignID string) error {
	return c.updateStatus(ctx, "Pause", campaignID, "DISABLE")
}

// Activate resumes campaign delivery
func (c *TikTokClient) Activate(ctx context.Context, campaignID string) error {
	return c.updateStatus(ctx, "Activate", campaignID, "ENABLE")
}

// SetBaseURL overrides the API endpoint. Used in tests.
func (c *TikTokClient) SetBaseURL(u string) { c.baseURL = u }
