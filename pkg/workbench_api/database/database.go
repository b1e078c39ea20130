package database

import (
	"fmt"

	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Migrate runs AutoMigrate for every workbench table. Shared with the
// sqlite-backed repository tests so both paths create the same schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Organization{},
		&models.Project{},
		&models.DataSource{},
		&models.QuerySpec{},
		&models.Artifact{},
		&models.ArtifactVersion{},
		&models.ArtifactItem{},
		&models.ArtifactRun{},
		&models.DeliveryChannel{},
	)
}

func Connect(connStr string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: "v1_",
		}})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return db, nil
}
