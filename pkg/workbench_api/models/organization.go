/*
 * Workbench API v1
 *
 * Multi-tenant workspace API: data sources, saved queries,
 * versioned artifacts and scheduled deliveries.
 */

package models

import (
	"time"

	"gorm.io/datatypes"
)

// Organization is the tenant boundary. Every other entity carries an
// OrganizationID and lookups are always scoped by it.
type Organization struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	Name      string    `gorm:"column:name" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
}

// Project groups sources, query specs and artifacts within an organization.
type Project struct {
	ID             string    `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID string    `gorm:"column:organization_id;index" json:"organizationId"`
	Name           string    `gorm:"column:name" json:"name"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"createdAt"`
}

// Source type determines which adapter factory handles the connection.
const (
	SourceTypePostgres = "postgres"
	SourceTypeSheet    = "sheet"
	SourceTypeTool     = "tool"
)

// DataSource is a configured backend binding. ConfigJSON holds the
// type-specific connection details (DSN, sheet snapshot, tool endpoint).
type DataSource struct {
	ID             string         `gorm:"column:id;primaryKey" json:"id"`
	OrganizationID string         `gorm:"column:organization_id;index" json:"organizationId"`
	Type           string         `gorm:"column:type;index" json:"type"`
	Name           string         `gorm:"column:name" json:"name"`
	ConfigJSON     datatypes.JSON `gorm:"column:config_json" json:"configJson,omitempty"`
	CreatedAt      time.Time      `gorm:"column:created_at" json:"createdAt"`
}
