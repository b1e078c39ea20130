package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	problem "github.com/workbench-hq/workbench-api/pkg/workbench_api/helpers/problem"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/repositories"
)

// QuerySpecService owns saved queries. Specs are mutated in place; history
// only exists at the artifact-version level.
type QuerySpecService struct {
	repo repositories.WorkspaceRepository
}

func NewQuerySpecService(repo repositories.WorkspaceRepository) *QuerySpecService {
	return &QuerySpecService{repo: repo}
}

func (s *QuerySpecService) CreateQuerySpec(ctx context.Context, in *models.CreateQuerySpecInput) (*models.QuerySpec, error) {
	if strings.TrimSpace(in.SQLText) == "" {
		return nil, problem.NewBadRequest("sqlText", "sqlText must not be empty",
			problem.InvalidParam{Name: "sqlText", Reason: "must not be empty"})
	}

	project, err := s.repo.GetProject(ctx, in.ProjectID, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, problem.NewNotFound(in.ProjectID, "project not found in this organization")
	}

	source, err := s.repo.GetDataSource(ctx, in.SourceID, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, problem.NewNotFound(in.SourceID, "data source not found in this organization")
	}

	now := time.Now()
	spec := &models.QuerySpec{
		ID:             uuid.New().String(),
		OrganizationID: in.OrganizationID,
		ProjectID:      in.ProjectID,
		SourceID:       in.SourceID,
		Name:           in.Name,
		SQLText:        in.SQLText,
		ParametersJSON: in.ParametersJSON,
		MetadataJSON:   in.MetadataJSON,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.SaveQuerySpec(ctx, spec); err != nil {
		return nil, err
	}
	return spec, nil
}

// UpdateQuerySpec overwrites the given fields; no history is kept.
func (s *QuerySpecService) UpdateQuerySpec(ctx context.Context, in *models.UpdateQuerySpecInput) (*models.QuerySpec, error) {
	spec, err := s.repo.GetQuerySpec(ctx, in.ID, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if spec == nil {
		return nil, problem.NewNotFound(in.ID, "query spec not found in this organization")
	}

	if in.Name != nil {
		spec.Name = *in.Name
	}
	if in.SQLText != nil {
		if strings.TrimSpace(*in.SQLText) == "" {
			return nil, problem.NewBadRequest("sqlText", "sqlText must not be empty",
				problem.InvalidParam{Name: "sqlText", Reason: "must not be empty"})
		}
		spec.SQLText = *in.SQLText
	}
	if in.ParametersJSON != nil {
		spec.ParametersJSON = in.ParametersJSON
	}
	if in.MetadataJSON != nil {
		spec.MetadataJSON = in.MetadataJSON
	}
	spec.UpdatedAt = time.Now()

	if err := s.repo.SaveQuerySpec(ctx, spec); err != nil {
		return nil, err
	}
	return spec, nil
}

func (s *QuerySpecService) GetQuerySpec(ctx context.Context, id, orgID string) (*models.QuerySpec, error) {
	return s.repo.GetQuerySpec(ctx, id, orgID)
}

func (s *QuerySpecService) ListQuerySpecs(ctx context.Context, p *models.ListQuerySpecsParams) ([]models.QuerySpec, error) {
	return s.repo.ListQuerySpecs(ctx, p)
}

// DeleteQuerySpec refuses while any artifact version still references the
// spec: those versions are immutable audit history.
func (s *QuerySpecService) DeleteQuerySpec(ctx context.Context, id, orgID string) error {
	spec, err := s.repo.GetQuerySpec(ctx, id, orgID)
	if err != nil {
		return err
	}
	if spec == nil {
		return problem.NewNotFound(id, "query spec not found in this organization")
	}

	count, err := s.repo.CountVersionsForSpec(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return problem.NewBadRequest(id, "query spec is referenced by artifact versions and cannot be deleted")
	}
	return s.repo.DeleteQuerySpec(ctx, id, orgID)
}
