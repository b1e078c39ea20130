package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	"gorm.io/gorm"
)

// ArtifactRepository owns artifact headers, their append-only version
// history and dashboard composition edges.
type ArtifactRepository interface {
	CreateArtifactWithVersion(ctx context.Context, artifact *models.Artifact, version *models.ArtifactVersion) error
	AppendVersion(ctx context.Context, artifactID string, version *models.ArtifactVersion) error
	GetArtifact(ctx context.Context, id, orgID string) (*models.Artifact, error)
	ListArtifacts(ctx context.Context, p *models.ListArtifactsParams) ([]models.Artifact, error)
	ArchiveArtifact(ctx context.Context, id, orgID string) error
	GetVersion(ctx context.Context, id string) (*models.ArtifactVersion, error)
	ListVersions(ctx context.Context, artifactID string) ([]models.ArtifactVersion, error)

	SaveItem(ctx context.Context, item *models.ArtifactItem) error
	GetItem(ctx context.Context, itemID, dashboardID string) (*models.ArtifactItem, error)
	DeleteItem(ctx context.Context, itemID, dashboardID string) error
	ListItems(ctx context.Context, dashboardID string) ([]models.ArtifactItem, error)
}

type artifactRepository struct {
	db *gorm.DB
}

func NewArtifactRepository(db *gorm.DB) ArtifactRepository {
	return &artifactRepository{db: db}
}

// CreateArtifactWithVersion inserts the header, the first version and the
// pointer retarget in one transaction so no reader ever observes an
// artifact without a current version.
func (r *artifactRepository) CreateArtifactWithVersion(ctx context.Context, artifact *models.Artifact, version *models.ArtifactVersion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		artifact.CurrentVersionID = nil
		if err := tx.Create(artifact).Error; err != nil {
			return err
		}
		version.ArtifactID = artifact.ID
		if err := tx.Create(version).Error; err != nil {
			return err
		}
		artifact.CurrentVersionID = &version.ID
		return tx.Model(&models.Artifact{}).
			Where("id = ?", artifact.ID).
			Update("current_version_id", version.ID).Error
	})
}

// AppendVersion inserts a new version row and retargets the pointer in the
// same transaction. Prior versions are never touched.
func (r *artifactRepository) AppendVersion(ctx context.Context, artifactID string, version *models.ArtifactVersion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		version.ArtifactID = artifactID
		if err := tx.Create(version).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Artifact{}).
			Where("id = ?", artifactID).
			Updates(map[string]any{"current_version_id": version.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("artifact %s disappeared during version append", artifactID)
		}
		return nil
	})
}

func (r *artifactRepository) GetArtifact(ctx context.Context, id, orgID string) (*models.Artifact, error) {
	var artifact models.Artifact
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&artifact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &artifact, nil
}

func (r *artifactRepository) ListArtifacts(ctx context.Context, p *models.ListArtifactsParams) ([]models.Artifact, error) {
	q := r.db.WithContext(ctx).Where("organization_id = ?", p.OrganizationID)
	if p.Type != nil {
		q = q.Where("type = ?", *p.Type)
	}
	if p.ProjectID != nil {
		q = q.Where("project_id = ?", *p.ProjectID)
	}
	if !p.IncludeArchived {
		q = q.Where("archived = ?", false)
	}

	var artifacts []models.Artifact
	if err := q.Order("created_at DESC").Find(&artifacts).Error; err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (r *artifactRepository) ArchiveArtifact(ctx context.Context, id, orgID string) error {
	res := r.db.WithContext(ctx).Model(&models.Artifact{}).
		Where("id = ? AND organization_id = ?", id, orgID).
		Update("archived", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *artifactRepository) GetVersion(ctx context.Context, id string) (*models.ArtifactVersion, error) {
	var version models.ArtifactVersion
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *artifactRepository) ListVersions(ctx context.Context, artifactID string) ([]models.ArtifactVersion, error) {
	var versions []models.ArtifactVersion
	err := r.db.WithContext(ctx).
		Where("artifact_id = ?", artifactID).
		Order("created_at DESC, id DESC").
		Find(&versions).Error
	if err != nil {
		return nil, err
	}
	return versions, nil
}

func (r *artifactRepository) SaveItem(ctx context.Context, item *models.ArtifactItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *artifactRepository) GetItem(ctx context.Context, itemID, dashboardID string) (*models.ArtifactItem, error) {
	var item models.ArtifactItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND dashboard_artifact_id = ?", itemID, dashboardID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes the membership edge only; the child artifact and its
// versions stay.
func (r *artifactRepository) DeleteItem(ctx context.Context, itemID, dashboardID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND dashboard_artifact_id = ?", itemID, dashboardID).
		Delete(&models.ArtifactItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *artifactRepository) ListItems(ctx context.Context, dashboardID string) ([]models.ArtifactItem, error) {
	var items []models.ArtifactItem
	err := r.db.WithContext(ctx).
		Where("dashboard_artifact_id = ?", dashboardID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
