package model

import "time"

// SystemAccessMode is the global network restriction switch.
type SystemAccessMode string

const (
	SystemAccessPublic  SystemAccessMode = "public"
	SystemAccessPrivate SystemAccessMode = "private"
)

// SettingKeyAccessMode is the app_settings key holding the system mode.
const SettingKeyAccessMode = "system_access_mode"

// AppSetting represents a key-value pair for global application configuration.
type AppSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateAccessModeRequest is the payload for switching the system mode.
type UpdateAccessModeRequest struct {
	AccessMode string `json:"access_mode" binding:"required,oneof=public private"`
}
