package platform

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetaClient(t *testing.T, handler http.HandlerFunc) *MetaClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewMetaClient(MetaConfig{
		AccessToken: "test-token",
		AppSecret:   "test-secret",
		AdAccountID: "123456",
	})
	client.SetBaseURL(server.URL)
	return client
}

func TestMetaClient_AppSecretProof(t *testing.T) {
	client := NewMetaClient(MetaConfig{
		AccessToken: "test-token",
		AppSecret:   "test-secret",
		AdAccountID: "123456",
	})

	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte("test-token"))
	expected := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, expected, client.appSecretProof(client.token()))
}

func TestMetaClient_RefreshTokenRotatesAuth(t *testing.T) {
	client := newTestMetaClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/oauth/access_token":
			assert.Equal(t, "test-token", r.URL.Query().Get("fb_exchange_token"))
			_, _ = w.Write([]byte(`{"access_token":"rotated-token","expires_in":5184000}`))
		case "/act_123456/campaigns":
			assert.Equal(t, "rotated-token", r.URL.Query().Get("access_token"))

			mac := hmac.New(sha256.New, []byte("test-secret"))
			mac.Write([]byte("rotated-token"))
			assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.URL.Query().Get("appsecret_proof"))

			_, _ = w.Write([]byte(`{"data":[]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	token, ttl, err := client.RefreshToken(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, "rotated-token", token)
	assert.Equal(t, 5184000*time.Second, ttl)

	// Every call after the exchange authenticates with the rotated token.
	_, err = client.ListCampaigns(context.Background())
	require.NoError(t, err)
}

func TestMetaClient_ListCampaigns(t *testing.T) {
	client := newTestMetaClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/act_123456/campaigns", r.URL.Path)
		assert.Equal(t, "test-token", r.URL.Query().Get("access_token"))
		assert.NotEmpty(t, r.URL.Query().Get("appsecret_proof"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"id":"c1","name":"Court Shoes","status":"ACTIVE","daily_budget":"1500"},
			{"id":"c2","name":"Apparel","status":"PAUSED","daily_budget":"500"}
		]}`))
	})

	campaigns, err := client.ListCampaigns(context.Background())
	require.NoError(t, err)
	require.Len(t, campaigns, 2)

	assert.Equal(t, "c1", campaigns[0].ID)
	assert.Equal(t, "Court Shoes", campaigns[0].Name)
	assert.Equal(t, "ACTIVE", campaigns[0].Status)
	assert.Equal(t, int64(1500), campaigns[0].DailyBudgetCents)
	assert.Equal(t, int64(500), campaigns[1].DailyBudgetCents)
}

func TestMetaClient_GetPerformance_ParsesPurchaseActions(t *testing.T) {
	client := newTestMetaClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/c1/insights", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{
			"spend":"123.45",
			"impressions":"10000",
			"clicks":"300",
			"actions":[
				{"action_type":"purchase","value":"7"},
				{"action_type":"link_click","value":"250"}
			],
			"action_values":[
				{"action_type":"purchase","value":"456.78"}
			]
		}]}`))
	})

	perfs, err := client.GetPerformance(context.Background(), []string{"c1"}, DateRange{})
	require.NoError(t, err)
	require.Len(t, perfs, 1)

	perf := perfs[0]
	assert.Equal(t, "c1", perf.CampaignID)
	assert.Equal(t, int64(12345), perf.SpendCents)
	assert.Equal(t, int64(45678), perf.RevenueCents)
	assert.Equal(t, int64(10000), perf.Impressions)
	assert.Equal(t, int64(300), perf.Clicks)
	assert.Equal(t, int64(7), perf.Conversions, "only purchase actions count as conversions")
}

func TestMetaClient_SetBudget_AdSetBudgetFallbackSignal(t *testing.T) {
	client := newTestMetaClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Budget for this campaign is managed by its ad set budgets","type":"OAuthException","code":100}}`))
	})

	err := client.SetBudget(context.Background(), "c1", 2000)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAdSetBudget)
}

func TestMetaClient_SetBudget_OtherRejectionIsNotFallback(t *testing.T) {
	client := newTestMetaClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid parameter","type":"OAuthException","code":100}}`))
	})

	err := client.SetBudget(context.Background(), "c1", 2000)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAdSetBudget)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ErrorKindRejected, perr.Kind)
}

func TestMetaClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected ErrorKind
	}{
		{"server error is transient", http.StatusInternalServerError, ErrorKindTransient},
		{"rate limit is transient", http.StatusTooManyRequests, ErrorKindTransient},
		{"unauthorized is credential", http.StatusUnauthorized, ErrorKindCredential},
		{"forbidden is credential", http.StatusForbidden, ErrorKindCredential},
		{"bad request is rejected", http.StatusBadRequest, ErrorKindRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestMetaClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			})

			err := client.Pause(context.Background(), "c1")
			require.Error(t, err)

			var perr *Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.expected, perr.Kind)
		})
	}
}

func TestMetaClient_NotConfigured(t *testing.T) {
	client := NewMetaClient(MetaConfig{})

	assert.False(t, client.Configured())

	_, err := client.ListCampaigns(context.Background())
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ErrorKindNotConfigured, perr.Kind)
}

func TestMetaClient_ListAdSets(t *testing.T) {
	client := newTestMetaClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/c1/adsets", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"id":"a1","name":"Retargeting","daily_budget":"700"},
			{"id":"a2","name":"Prospecting","daily_budget":"800"}
		]}`))
	})

	adSets, err := client.ListAdSets(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, adSets, 2)

	assert.Equal(t, "a1", adSets[0].ID)
	assert.Equal(t, "c1", adSets[0].CampaignID)
	assert.Equal(t, int64(700), adSets[0].DailyBudgetCents)
}
