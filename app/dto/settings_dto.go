package dto

// SettingsResponse returns the resolved automation settings (defaults merged
// with stored overrides)
type SettingsResponse struct {
	Settings map[string]string `json:"settings"`
}

// UpdateSettingsRequest carries a batch of setting changes. The batch is
// applied atomically: one invalid entry rejects the whole request.
type UpdateSettingsRequest struct {
	Settings map[string]string `json:"settings" validate:"required,min=1"`
}
