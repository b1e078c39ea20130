package models

import (
	"time"

	"gorm.io/datatypes"
)

// Artifact types. A dashboard is the only type that can embed children.
const (
	ArtifactTypeTable     = "table"
	ArtifactTypeChart     = "chart"
	ArtifactTypeKPI       = "kpi"
	ArtifactTypeDashboard = "dashboard"
)

func IsValidArtifactType(t string) bool {
	switch t {
	case ArtifactTypeTable, ArtifactTypeChart, ArtifactTypeKPI, ArtifactTypeDashboard:
		return true
	}
	return false
}

// Artifact is the versioned header row. The pointer to the current version
// is the only mutable part besides the archive flag; history lives in
// ArtifactVersion rows and is never rewritten. Artifacts are archived,
// never hard-deleted.
type Artifact struct {
	ID               string    `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID   string    `gorm:"column:organization_id;index" json:"organizationId"`
	ProjectID        string    `gorm:"column:project_id;index" json:"projectId"`
	Type             string    `gorm:"column:type;index" json:"type"`
	Name             string    `gorm:"column:name" json:"name"`
	CurrentVersionID *string   `gorm:"column:current_version_id" json:"currentVersionId"`
	Archived         bool      `gorm:"column:archived;index" json:"archived"`
	CreatedAt        time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

// ArtifactVersion is an immutable snapshot of an artifact's query binding
// and configuration. Rows are append-only: edits insert a new row and
// retarget Artifact.CurrentVersionID in the same transaction.
type ArtifactVersion struct {
	ID          string         `gorm:"column:id;primaryKey" json:"id"`
	ArtifactID  string         `gorm:"column:artifact_id;index" json:"artifactId"`
	QuerySpecID *string        `gorm:"column:query_spec_id" json:"querySpecId,omitempty"`
	ConfigJSON  datatypes.JSON `gorm:"column:config_json" json:"configJson,omitempty"`
	LayoutJSON  datatypes.JSON `gorm:"column:layout_json" json:"layoutJson,omitempty"`
	Notes       string         `gorm:"column:notes" json:"notes,omitempty"`
	CreatedBy   string         `gorm:"column:created_by" json:"createdBy"`
	CreatedAt   time.Time      `gorm:"column:created_at" json:"createdAt"`
}

// ArtifactItem is a composition edge placing a child artifact inside a
// dashboard. The edge references the child, it does not own it: removing
// the edge leaves the child and its versions untouched. A nil
// ChildVersionID means "resolve against the child's current version".
type ArtifactItem struct {
	ID                  string         `gorm:"column:id;primaryKey" json:"id"`
	DashboardArtifactID string         `gorm:"column:dashboard_artifact_id;index" json:"dashboardArtifactId"`
	ChildArtifactID     string         `gorm:"column:child_artifact_id;index" json:"childArtifactId"`
	ChildVersionID      *string        `gorm:"column:child_version_id" json:"childArtifactVersionId,omitempty"`
	PositionJSON        datatypes.JSON `gorm:"column:position_json" json:"positionJson,omitempty"`
	DisplayJSON         datatypes.JSON `gorm:"column:display_json" json:"displayJson,omitempty"`
	CreatedAt           time.Time      `gorm:"column:created_at" json:"createdAt"`
}

type CreateArtifactInput struct {
	OrganizationID string         `json:"organizationId" binding:"required"`
	ProjectID      string         `json:"projectId" binding:"required"`
	Type           string         `json:"type" binding:"required"`
	Name           string         `json:"name" binding:"required"`
	QuerySpecID    *string        `json:"querySpecId,omitempty"`
	ConfigJSON     datatypes.JSON `json:"configJson,omitempty"`
	LayoutJSON     datatypes.JSON `json:"layoutJson,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	CreatedBy      string         `json:"createdBy,omitempty"`
}

type CreateVersionInput struct {
	ArtifactID     string         `path:"id" json:"-"`
	OrganizationID string         `json:"organizationId" binding:"required"`
	QuerySpecID    *string        `json:"querySpecId,omitempty"`
	ConfigJSON     datatypes.JSON `json:"configJson,omitempty"`
	LayoutJSON     datatypes.JSON `json:"layoutJson,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	CreatedBy      string         `json:"createdBy,omitempty"`
}

type ListArtifactsParams struct {
	OrganizationID  string  `query:"organizationId" validate:"required"`
	Type            *string `query:"type"`
	ProjectID       *string `query:"projectId"`
	IncludeArchived bool    `query:"includeArchived"`
}

type ArtifactParams struct {
	ID             string `path:"id"`
	OrganizationID string `query:"organizationId"`
}

type AddItemInput struct {
	DashboardArtifactID string         `path:"id" json:"-"`
	OrganizationID      string         `json:"organizationId" binding:"required"`
	ChildArtifactID     string         `json:"childArtifactId" binding:"required"`
	ChildVersionID      *string        `json:"childArtifactVersionId,omitempty"`
	PositionJSON        datatypes.JSON `json:"positionJson,omitempty"`
	DisplayJSON         datatypes.JSON `json:"displayJson,omitempty"`
}

type ItemParams struct {
	DashboardArtifactID string `path:"id"`
	ItemID              string `path:"itemId"`
	OrganizationID      string `query:"organizationId"`
}

type ListItemsParams struct {
	DashboardArtifactID string `path:"id"`
	OrganizationID      string `query:"organizationId"`
}

// ArtifactWithVersion is the create response: the header plus the first
// version it was created with.
type ArtifactWithVersion struct {
	Artifact Artifact        `json:"artifact"`
	Version  ArtifactVersion `json:"version"`
}

// ResolvedItem is a composition edge joined with the version it resolves
// to: the pinned version when set, the child's current version otherwise.
type ResolvedItem struct {
	Item            ArtifactItem     `json:"item"`
	Child           Artifact         `json:"child"`
	ResolvedVersion *ArtifactVersion `json:"resolvedVersion,omitempty"`
}
