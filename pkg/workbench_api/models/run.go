package models

import (
	"time"

	"gorm.io/datatypes"
)

// Run statuses. Transitions are forward-only:
// pending -> running -> succeeded | failed.
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Trigger origins for a run.
const (
	TriggerChat     = "chat"
	TriggerManual   = "manual"
	TriggerAPI      = "api"
	TriggerDelivery = "delivery"
)

func IsValidTriggerType(t string) bool {
	switch t {
	case TriggerChat, TriggerManual, TriggerAPI, TriggerDelivery:
		return true
	}
	return false
}

func IsTerminalRunStatus(s string) bool {
	return s == RunStatusSucceeded || s == RunStatusFailed
}

// ArtifactRun is one execution attempt of an artifact's current version.
// VersionID is pinned to the version that was current at trigger time.
// DedupeKey holds the artifact id while the run is non-terminal and is
// cleared on the terminal transition; a unique index on it guarantees at
// most one in-flight run per artifact even under concurrent triggers.
type ArtifactRun struct {
	ID             string         `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID string         `gorm:"column:organization_id;index" json:"organizationId"`
	ArtifactID     string         `gorm:"column:artifact_id;index" json:"artifactId"`
	VersionID      string         `gorm:"column:version_id" json:"versionId"`
	TriggerType    string         `gorm:"column:trigger_type" json:"triggerType"`
	Status         string         `gorm:"column:status;index" json:"status"`
	DedupeKey      *string        `gorm:"column:dedupe_key;uniqueIndex" json:"-"`
	StartedAt      time.Time      `gorm:"column:started_at" json:"startedAt"`
	CompletedAt    *time.Time     `gorm:"column:completed_at" json:"completedAt,omitempty"`
	ResultMetaJSON datatypes.JSON `gorm:"column:result_meta_json" json:"resultMetaJson,omitempty"`
	ErrorText      string         `gorm:"column:error_text" json:"errorText,omitempty"`
}

// RunResultMeta is the shape serialized into ResultMetaJSON on success.
type RunResultMeta struct {
	RowCount        int      `json:"rowCount"`
	Columns         []string `json:"columns"`
	ExecutionTimeMs int64    `json:"executionTimeMs"`
}

type TriggerRunInput struct {
	ArtifactID     string         `path:"id" json:"-"`
	OrganizationID string         `json:"organizationId" binding:"required"`
	TriggerType    string         `json:"triggerType" binding:"required"`
	ParamsJSON     datatypes.JSON `json:"params,omitempty"`
}

type ListRunsParams struct {
	ArtifactID     string `path:"id"`
	OrganizationID string `query:"organizationId"`
}

type RunParams struct {
	ID             string `path:"id"`
	OrganizationID string `query:"organizationId"`
}
