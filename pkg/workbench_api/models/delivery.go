package models

import (
	"time"

	"gorm.io/datatypes"
)

// Delivery channel types.
const (
	ChannelTypeWebhook = "webhook"
	ChannelTypeEmail   = "email"
)

// DeliveryChannel is a recurring delivery of an artifact's run output.
// ScheduleCron is a standard 5-field cron spec; NextRunAt is materialized
// from it so the sweep can select due channels with a single indexed query.
type DeliveryChannel struct {
	ID             string         `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID string         `gorm:"column:organization_id;index" json:"organizationId"`
	ArtifactID     string         `gorm:"column:artifact_id;index" json:"artifactId"`
	Type           string         `gorm:"column:type" json:"type"`
	ConfigJSON     datatypes.JSON `gorm:"column:config_json" json:"configJson,omitempty"`
	ScheduleCron   string         `gorm:"column:schedule_cron" json:"scheduleCron"`
	NextRunAt      time.Time      `gorm:"column:next_run_at;index" json:"nextRunAt"`
	LastRunAt      *time.Time     `gorm:"column:last_run_at" json:"lastRunAt,omitempty"`
	LastError      string         `gorm:"column:last_error" json:"lastError,omitempty"`
	Enabled        bool           `gorm:"column:enabled;index" json:"enabled"`
	CreatedAt      time.Time      `gorm:"column:created_at" json:"createdAt"`
}

type CreateDeliveryChannelInput struct {
	OrganizationID string         `json:"organizationId" binding:"required"`
	ArtifactID     string         `json:"artifactId" binding:"required"`
	Type           string         `json:"type" binding:"required"`
	ConfigJSON     datatypes.JSON `json:"configJson,omitempty"`
	ScheduleCron   string         `json:"scheduleCron" binding:"required"`
}

type ListDeliveryChannelsParams struct {
	OrganizationID string  `query:"organizationId" validate:"required"`
	ArtifactID     *string `query:"artifactId"`
}

type DeliveryChannelParams struct {
	ID             string `path:"id"`
	OrganizationID string `query:"organizationId"`
}

type RunDueInput struct {
	OrganizationID *string `json:"organizationId,omitempty"`
	Limit          int     `json:"limit,omitempty"`
}

// ChannelError is the per-channel detail carried in a sweep report.
type ChannelError struct {
	ChannelID string `json:"channelId"`
	Stage     string `json:"stage"` // "run" or "send"
	Error     string `json:"error"`
}

// DeliverySweepReport aggregates one runDueScheduledDeliveryChannels call.
// Attempted == Succeeded + Failed; channels not yet due are not counted.
type DeliverySweepReport struct {
	Attempted int            `json:"attempted"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Errors    []ChannelError `json:"errors,omitempty"`
}
