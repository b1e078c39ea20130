package repositories

import (
	"context"
	"errors"

	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	"gorm.io/gorm"
)

// WorkspaceRepository owns the non-versioned workspace entities:
// organizations, projects, data sources and query specs.
type WorkspaceRepository interface {
	SaveOrganization(ctx context.Context, org *models.Organization) error
	SaveProject(ctx context.Context, project *models.Project) error
	SaveDataSource(ctx context.Context, source *models.DataSource) error
	GetProject(ctx context.Context, id, orgID string) (*models.Project, error)
	GetDataSource(ctx context.Context, id, orgID string) (*models.DataSource, error)

	SaveQuerySpec(ctx context.Context, spec *models.QuerySpec) error
	GetQuerySpec(ctx context.Context, id, orgID string) (*models.QuerySpec, error)
	ListQuerySpecs(ctx context.Context, p *models.ListQuerySpecsParams) ([]models.QuerySpec, error)
	DeleteQuerySpec(ctx context.Context, id, orgID string) error
	CountVersionsForSpec(ctx context.Context, specID string) (int64, error)
}

type workspaceRepository struct {
	db *gorm.DB
}

func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &workspaceRepository{db: db}
}

func (r *workspaceRepository) SaveOrganization(ctx context.Context, org *models.Organization) error {
	return r.db.WithContext(ctx).Save(org).Error
}

func (r *workspaceRepository) SaveProject(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

func (r *workspaceRepository) SaveDataSource(ctx context.Context, source *models.DataSource) error {
	return r.db.WithContext(ctx).Save(source).Error
}

func (r *workspaceRepository) GetProject(ctx context.Context, id, orgID string) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *workspaceRepository) GetDataSource(ctx context.Context, id, orgID string) (*models.DataSource, error) {
	var source models.DataSource
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&source).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &source, nil
}

func (r *workspaceRepository) SaveQuerySpec(ctx context.Context, spec *models.QuerySpec) error {
	return r.db.WithContext(ctx).Save(spec).Error
}

func (r *workspaceRepository) GetQuerySpec(ctx context.Context, id, orgID string) (*models.QuerySpec, error) {
	var spec models.QuerySpec
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&spec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &spec, nil
}

func (r *workspaceRepository) ListQuerySpecs(ctx context.Context, p *models.ListQuerySpecsParams) ([]models.QuerySpec, error) {
	q := r.db.WithContext(ctx).Where("organization_id = ?", p.OrganizationID)
	if p.ProjectID != nil {
		q = q.Where("project_id = ?", *p.ProjectID)
	}
	if p.SourceID != nil {
		q = q.Where("source_id = ?", *p.SourceID)
	}

	var specs []models.QuerySpec
	if err := q.Find(&specs).Error; err != nil {
		return nil, err
	}
	return specs, nil
}

func (r *workspaceRepository) DeleteQuerySpec(ctx context.Context, id, orgID string) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		Delete(&models.QuerySpec{}).Error
}

func (r *workspaceRepository) CountVersionsForSpec(ctx context.Context, specID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ArtifactVersion{}).
		Where("query_spec_id = ?", specID).
		Count(&count).Error
	return count, err
}
