package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuerySpec is a saved, named, parameterized query bound to one data source.
// Specs are mutable in place; versioning happens at the artifact level.
type QuerySpec struct {
	ID             string         `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID string         `gorm:"column:organization_id;index" json:"organizationId"`
	ProjectID      string         `gorm:"column:project_id;index" json:"projectId"`
	SourceID       string         `gorm:"column:source_id;index" json:"sourceId"`
	Name           string         `gorm:"column:name" json:"name"`
	SQLText        string         `gorm:"column:sql_text" json:"sqlText"`
	ParametersJSON datatypes.JSON `gorm:"column:parameters_json" json:"parametersJson,omitempty"`
	MetadataJSON   datatypes.JSON `gorm:"column:metadata_json" json:"metadataJson,omitempty"`
	CreatedAt      time.Time      `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"column:updated_at" json:"updatedAt"`
}

type CreateQuerySpecInput struct {
	OrganizationID string         `json:"organizationId" binding:"required"`
	ProjectID      string         `json:"projectId" binding:"required"`
	SourceID       string         `json:"sourceId" binding:"required"`
	Name           string         `json:"name" binding:"required"`
	SQLText        string         `json:"sqlText" binding:"required"`
	ParametersJSON datatypes.JSON `json:"parametersJson,omitempty"`
	MetadataJSON   datatypes.JSON `json:"metadataJson,omitempty"`
}

// UpdateQuerySpecInput mutates a spec in place. Nil fields are left untouched.
type UpdateQuerySpecInput struct {
	ID             string         `path:"id" json:"-"`
	OrganizationID string         `json:"organizationId" binding:"required"`
	Name           *string        `json:"name,omitempty"`
	SQLText        *string        `json:"sqlText,omitempty"`
	ParametersJSON datatypes.JSON `json:"parametersJson,omitempty"`
	MetadataJSON   datatypes.JSON `json:"metadataJson,omitempty"`
}

type ListQuerySpecsParams struct {
	OrganizationID string  `query:"organizationId" validate:"required"`
	ProjectID      *string `query:"projectId"`
	SourceID       *string `query:"sourceId"`
}

type QuerySpecParams struct {
	ID             string `path:"id"`
	OrganizationID string `query:"organizationId"`
}
