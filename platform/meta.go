package platform

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/AutoSEM/utils"
)

const (
	metaGraphBaseURL = "https://graph.facebook.com/v21.0"
	metaPlatformName = "meta"
)

// MetaConfig holds Meta Marketing API credentials.
type MetaConfig struct {
	AccessToken string
	AppSecret   string
	AdAccountID string
	Timeout     time.Duration
}

// MetaClient talks to the Meta Marketing API (Graph API v21.0). The access
// token is guarded because the token refresh job replaces it while sync and
// optimize calls read it concurrently.
type MetaClient struct {
	config  MetaConfig
	baseURL string
	client  *http.Client

	mu          sync.Mutex
	accessToken string
}

// NewMetaClient creates a new Meta Marketing API client
func NewMetaClient(config MetaConfig) *MetaClient {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &MetaClient{
		config:      config,
		baseURL:     metaGraphBaseURL,
		client:      &http.Client{Timeout: config.Timeout},
		accessToken: config.AccessToken,
	}
}

func (c *MetaClient) Name() string { return metaPlatformName }

func (c *MetaClient) Configured() bool {
	return c.token() != "" && c.config.AdAccountID != ""
}

func (c *MetaClient) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *MetaClient) setToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

// appSecretProof is the HMAC-SHA256 of the access token keyed by the app
// secret, required by Meta on every server-side call.
func (c *MetaClient) appSecretProof(token string) string {
	mac := hmac.New(sha256.New, []byte(c.config.AppSecret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *MetaClient) authParams(params url.Values) url.Values {
	token := c.token()
	params.Set("access_token", token)
	if c.config.AppSecret != "" {
		params.Set("appsecret_proof", c.appSecretProof(token))
	}
	return params
}

type metaGraphError struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		Subcode   int    `json:"error_subcode"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

func (c *MetaClient) do(ctx context.Context, op, method, path string, params url.Values, out any) error {
	if !c.Configured() {
		return NewError(metaPlatformName, op, ErrorKindNotConfigured, fmt.Errorf("missing access token or ad account ID"))
	}

	params = c.authParams(params)

	var req *http.Request
	var err error
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+params.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(params.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return NewError(metaPlatformName, op, ErrorKindRejected, fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return NewError(metaPlatformName, op, ErrorKindTransient, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewError(metaPlatformName, op, ErrorKindTransient, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var gerr metaGraphError
		_ = json.Unmarshal(body, &gerr)
		msg := gerr.Error.Message
		if msg == "" {
			msg = string(body)
		}
		if isAdSetBudgetError(gerr) {
			return NewError(metaPlatformName, op, ErrorKindRejected,
				fmt.Errorf("%w: %s", ErrAdSetBudget, msg))
		}
		return NewError(metaPlatformName, op, classifyStatus(resp.StatusCode),
			fmt.Errorf("graph API error %d (code %d): %s", resp.StatusCode, gerr.Error.Code, msg))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return NewError(metaPlatformName, op, ErrorKindRejected, fmt.Errorf("failed to decode response: %w", err))
		}
	}

	return nil
}

// isAdSetBudgetError detects the Graph refusal returned when a campaign does
// not use campaign budget optimization and budgets live on its ad sets.
func isAdSetBudgetError(gerr metaGraphError) bool {
	msg := strings.ToLower(gerr.Error.Message)
	return strings.Contains(msg, "ad set") && strings.Contains(msg, "budget")
}

type metaCampaignsResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Status      string `json:"status"`
		DailyBudget string `json:"daily_budget"`
	} `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// ListCampaigns returns every campaign in the configured ad account
func (c *MetaClient) ListCampaigns(ctx context.Context) ([]RemoteCampaign, error) {
	params := url.Values{}
	params.Set("fields", "id,name,status,daily_budget")
	params.Set("limit", "100")

	var resp metaCampaignsResponse
	err := c.do(ctx, "ListCampaigns", http.MethodGet, "/act_"+c.config.AdAccountID+"/campaigns", params, &resp)
	if err != nil {
		return nil, err
	}

	campaigns := make([]RemoteCampaign, 0, len(resp.Data))
	for _, item := range resp.Data {
		// Meta reports daily_budget in minor currency units already.
		budget, _ := strconv.ParseInt(item.DailyBudget, 10, 64)
		campaigns = append(campaigns, RemoteCampaign{
			ID:               item.ID,
			Name:             item.Name,
			Status:           item.Status,
			DailyBudgetCents: budget,
		})
	}

	return campaigns, nil
}

type metaInsightsResponse struct {
	Data []struct {
		Spend       string `json:"spend"`
		Impressions string `json:"impressions"`
		Clicks      string `json:"clicks"`
		Actions     []struct {
			ActionType string `json:"action_type"`
			Value      string `json:"value"`
		} `json:"actions"`
		ActionValues []struct {
			ActionType string `json:"action_type"`
			Value      string `json:"value"`
		} `json:"action_values"`
	} `json:"data"`
}

// GetPerformance returns cumulative metrics per campaign for the range
func (c *MetaClient) GetPerformance(ctx context.Context, campaignIDs []string, r DateRange) ([]Performance, error) {
	results := make([]Performance, 0, len(campaignIDs))

	timeRange := fmt.Sprintf(`{"since":"%s","until":"%s"}`,
		r.Since.Format("2006-01-02"), r.Until.Format("2006-01-02"))

	for _, id := range campaignIDs {
		params := url.Values{}
		params.Set("fields", "spend,impressions,clicks,actions,action_values")
		params.Set("time_range", timeRange)

		var resp metaInsightsResponse
		err := c.do(ctx, "GetPerformance", http.MethodGet, "/"+id+"/insights", params, &resp)
		if err != nil {
			return nil, err
		}

		perf := Performance{CampaignID: id}
		for _, row := range resp.Data {
			spend, _ := utils.CentsFromDollarString(row.Spend)
			impressions, _ := strconv.ParseInt(row.Impressions, 10, 64)
			clicks, _ := strconv.ParseInt(row.Clicks, 10, 64)
			perf.SpendCents += spend
			perf.Impressions += impressions
			perf.Clicks += clicks

			for _, action := range row.Actions {
				if isPurchaseAction(action.ActionType) {
					v, _ := strconv.ParseInt(action.Value, 10, 64)
					perf.Conversions += v
				}
			}
			for _, av := range row.ActionValues {
				if isPurchaseAction(av.ActionType) {
					v, _ := utils.CentsFromDollarString(av.Value)
					perf.RevenueCents += v
				}
			}
		}
		results = append(results, perf)
	}

	return results, nil
}

func isPurchaseAction(actionType string) bool {
	switch actionType {
	case "purchase", "omni_purchase", "offsite_conversion.fb_pixel_purchase":
		return true
	default:
		return false
	}
}

// SetBudget sets the campaign daily budget in minor units. When the campaign
// carries no campaign-level budget the Graph error is surfaced wrapping
// ErrAdSetBudget so the caller can fall back to ad sets.
func (c *MetaClient) SetBudget(ctx context.Context, campaignID string, dailyBudgetCents int64) error {
	params := url.Values{}
	params.Set("daily_budget", strconv.FormatInt(dailyBudgetCents, 10))

	return c.do(ctx, "SetBudget", http.MethodPost, "/"+campaignID, params, nil)
}

// Pause stops campaign delivery
func (c *MetaClient) Pause(ctx context.Context, campaignID string) error {
	params := url.Values{}
	params.Set("status", "PAUSED")

	return c.do(ctx, "Pause", http.MethodPost, "/"+campaignID, params, nil)
}

// Activate resumes campaign delivery
func (c *MetaClient) Activate(ctx context.Context, campaignID string) error {
	params := url.Values{}
	params.Set("status", "ACTIVE")

	return c.do(ctx, "Activate", http.MethodPost, "/"+campaignID, params, nil)
}

type metaAdSetsResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		DailyBudget string `json:"daily_budget"`
	} `json:"data"`
}

// ListAdSets returns the budget-bearing ad sets under a campaign
func (c *MetaClient) ListAdSets(ctx context.Context, campaignID string) ([]AdSet, error) {
	params := url.Values{}
	params.Set("fields", "id,name,daily_budget")
	params.Set("limit", "100")

	var resp metaAdSetsResponse
	err := c.do(ctx, "ListAdSets", http.MethodGet, "/"+campaignID+"/adsets", params, &resp)
	if err != nil {
		return nil, err
	}

	adSets := make([]AdSet, 0, len(resp.Data))
	for _, item := range resp.Data {
		budget, _ := strconv.ParseInt(item.DailyBudget, 10, 64)
		adSets = append(adSets, AdSet{
			ID:               item.ID,
			CampaignID:       campaignID,
			Name:             item.Name,
			DailyBudgetCents: budget,
		})
	}

	return adSets, nil
}

// SetAdSetBudget sets one ad set's daily budget in minor units
func (c *MetaClient) SetAdSetBudget(ctx context.Context, adSetID string, dailyBudgetCents int64) error {
	params := url.Values{}
	params.Set("daily_budget", strconv.FormatInt(dailyBudgetCents, 10))

	return c.do(ctx, "SetAdSetBudget", http.MethodPost, "/"+adSetID, params, nil)
}

// RefreshToken exchanges the current access token for a fresh long-lived one.
// Returns the new token and its reported lifetime.
func (c *MetaClient) RefreshToken(ctx context.Context, appID string) (string, time.Duration, error) {
	if !c.Configured() {
		return "", 0, NewError(metaPlatformName, "RefreshToken", ErrorKindNotConfigured, fmt.Errorf("missing access token"))
	}

	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", appID)
	params.Set("client_secret", c.config.AppSecret)
	params.Set("fb_exchange_token", c.token())

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	err := c.do(ctx, "RefreshToken", http.MethodGet, "/oauth/access_token", params, &resp)
	if err != nil {
		return "", 0, err
	}

	c.setToken(resp.AccessToken)
	return resp.AccessToken, time.Duration(resp.ExpiresIn) * time.Second, nil
}

// SetBaseURL overrides the Graph endpoint. Used in tests.
func (c *MetaClient) SetBaseURL(u string) { c.baseURL = u }
