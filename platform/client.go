// Package platform contains the ad platform client abstraction and its
// concrete HTTP implementations.
package platform

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a platform failure so callers can decide whether to
// retry, surface, or skip.
type ErrorKind string

const (
	// ErrorKindTransient covers timeouts, 5xx responses and rate limits.
	ErrorKindTransient ErrorKind = "transient"
	// ErrorKindCredential covers 401/403 responses and expired tokens.
	ErrorKindCredential ErrorKind = "credential"
	// ErrorKindRejected covers 4xx responses where the platform refused the
	// request itself (bad campaign ID, invalid budget).
	ErrorKindRejected ErrorKind = "rejected"
	// ErrorKindNotConfigured means the client has no credentials at all.
	ErrorKindNotConfigured ErrorKind = "not_configured"
)

// Error is the typed failure every platform client returns.
type Error struct {
	Kind     ErrorKind
	Op       string
	Platform string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s failed (%s): %v", e.Platform, e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether this failure is worth another attempt.
func (e *Error) Retryable() bool { return e.Kind == ErrorKindTransient }

// NewError builds a platform error
func NewError(platform, op string, kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Op: op, Platform: platform, Err: err}
}

// ErrAdSetBudget signals that the platform rejected a campaign-level budget
// change because budgets live on ad sets for that campaign. Callers holding a
// BudgetFallback client should retry at the ad set level.
var ErrAdSetBudget = errors.New("budget is managed at the ad set level")

// RemoteCampaign is one campaign as reported by a platform listing call.
type RemoteCampaign struct {
	ID               string
	Name             string
	Status           string
	DailyBudgetCents int64
}

// Performance is the cumulative metric snapshot for one campaign over a
// date range.
type Performance struct {
	CampaignID   string
	SpendCents   int64
	RevenueCents int64
	Impressions  int64
	Clicks       int64
	Conversions  int64
}

// DateRange is an inclusive day range in UTC.
type DateRange struct {
	Since time.Time
	Until time.Time
}

// LastDays returns the trailing n-day range ending today (UTC).
func LastDays(n int, now time.Time) DateRange {
	now = now.UTC()
	return DateRange{
		Since: now.AddDate(0, 0, -n),
		Until: now,
	}
}

// AdSet is one budget-bearing ad set under a campaign.
type AdSet struct {
	ID               string
	CampaignID       string
	Name             string
	DailyBudgetCents int64
}

// Client is the uniform interface over every ad platform.
type Client interface {
	// Name returns the platform identifier ("meta", "tiktok", "google").
	Name() string
	// Configured reports whether the client holds usable credentials.
	Configured() bool
	// ListCampaigns returns every campaign in the configured ad account.
	ListCampaigns(ctx context.Context) ([]RemoteCampaign, error)
	// GetPerformance returns cumulative metrics per campaign for the range.
	GetPerformance(ctx context.Context, campaignIDs []string, r DateRange) ([]Performance, error)
	// SetBudget sets the campaign daily budget. Returns an error wrapping
	// ErrAdSetBudget when the budget lives on ad sets instead.
	SetBudget(ctx context.Context, campaignID string, dailyBudgetCents int64) error
	// Pause stops campaign delivery.
	Pause(ctx context.Context, campaignID string) error
	// Activate resumes campaign delivery.
	Activate(ctx context.Context, campaignID string) error
}

// BudgetFallback is implemented by clients whose campaigns may carry budgets
// on ad sets. When SetBudget fails with ErrAdSetBudget the caller lists the
// ad sets and applies the budget to each.
type BudgetFallback interface {
	ListAdSets(ctx context.Context, campaignID string) ([]AdSet, error)
	SetAdSetBudget(ctx context.Context, adSetID string, dailyBudgetCents int64) error
}
