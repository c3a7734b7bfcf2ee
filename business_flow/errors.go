// Package businessflow contains the core business logic and use cases for the automation workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Campaign-related errors
	ErrCampaignNotFound   = errors.New("campaign record not found")
	ErrCampaignNotLinked  = errors.New("campaign record is not linked to a platform campaign")
	ErrUnknownPlatform    = errors.New("unknown platform")
	ErrPlatformNotWired   = errors.New("no client registered for platform")
	ErrNoPlatformsHealthy = errors.New("every platform sync failed")

	// Settings-related errors
	ErrSettingKeyUnknown   = errors.New("unknown setting key")
	ErrSettingValueInvalid = errors.New("invalid setting value")

	// Automation errors
	ErrAutomationDisabled = errors.New("automation is disabled")
	ErrCacheNotAvailable  = errors.New("cache not available")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignNotLinked(err error) bool {
	return errors.Is(err, ErrCampaignNotLinked)
}

func IsUnknownPlatform(err error) bool {
	return errors.Is(err, ErrUnknownPlatform)
}

func IsSettingKeyUnknown(err error) bool {
	return errors.Is(err, ErrSettingKeyUnknown)
}

func IsSettingValueInvalid(err error) bool {
	return errors.Is(err, ErrSettingValueInvalid)
}

func IsAutomationDisabled(err error) bool {
	return errors.Is(err, ErrAutomationDisabled)
}
