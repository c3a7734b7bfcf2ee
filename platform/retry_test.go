package platform

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 3}
}

func TestRetryPolicy_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_RetriesTransientFailures(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return NewError("meta", "ListCampaigns", ErrorKindTransient, fmt.Errorf("timeout"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(ctx context.Context) error {
		calls++
		return NewError("meta", "ListCampaigns", ErrorKindTransient, fmt.Errorf("server error"))
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ErrorKindTransient, perr.Kind)
}

func TestRetryPolicy_DoesNotRetryPermanentFailures(t *testing.T) {
	tests := []struct {
		name string
		kind ErrorKind
	}{
		{"credential failure", ErrorKindCredential},
		{"rejected request", ErrorKindRejected},
		{"not configured", ErrorKindNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := fastPolicy().Do(context.Background(), func(ctx context.Context) error {
				calls++
				return NewError("tiktok", "SetBudget", tt.kind, fmt.Errorf("no"))
			})

			require.Error(t, err)
			assert.Equal(t, 1, calls, "permanent failures must not be retried")
		})
	}
}

func TestRetryPolicy_DoesNotRetryUntypedErrors(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("plain error")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	policy := RetryPolicy{MaxAttempts: 3, InitialDelay: 50 * time.Millisecond, Multiplier: 3}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := policy.Do(ctx, func(ctx context.Context) error {
		calls++
		return NewError("google", "Pause", ErrorKindTransient, fmt.Errorf("timeout"))
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := NewError("meta", "Pause", ErrorKindTransient, inner)

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "meta")
	assert.Contains(t, err.Error(), "Pause")
}
