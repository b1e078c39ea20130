package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	problem "github.com/workbench-hq/workbench-api/pkg/workbench_api/helpers/problem"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/repositories"
)

// ArtifactService owns artifact headers and their append-only version
// history.
type ArtifactService struct {
	artifacts repositories.ArtifactRepository
	workspace repositories.WorkspaceRepository
}

func NewArtifactService(artifacts repositories.ArtifactRepository, workspace repositories.WorkspaceRepository) *ArtifactService {
	return &ArtifactService{artifacts: artifacts, workspace: workspace}
}

// CreateArtifact inserts the header and its first version atomically, so
// every artifact has a current version from the moment it is visible.
func (s *ArtifactService) CreateArtifact(ctx context.Context, in *models.CreateArtifactInput) (*models.ArtifactWithVersion, error) {
	if !models.IsValidArtifactType(in.Type) {
		return nil, problem.NewBadRequest("type", fmt.Sprintf("invalid artifact type %q", in.Type),
			problem.InvalidParam{Name: "type", Reason: "must be one of table, chart, kpi, dashboard"})
	}

	project, err := s.workspace.GetProject(ctx, in.ProjectID, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, problem.NewNotFound(in.ProjectID, "project not found in this organization")
	}

	if in.QuerySpecID != nil {
		spec, err := s.workspace.GetQuerySpec(ctx, *in.QuerySpecID, in.OrganizationID)
		if err != nil {
			return nil, err
		}
		if spec == nil {
			return nil, problem.NewNotFound(*in.QuerySpecID, "query spec not found in this organization")
		}
	}

	now := time.Now()
	artifact := &models.Artifact{
		ID:             uuid.New().String(),
		OrganizationID: in.OrganizationID,
		ProjectID:      in.ProjectID,
		Type:           in.Type,
		Name:           in.Name,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	version := &models.ArtifactVersion{
		ID:          uuid.New().String(),
		QuerySpecID: in.QuerySpecID,
		ConfigJSON:  in.ConfigJSON,
		LayoutJSON:  in.LayoutJSON,
		Notes:       in.Notes,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   now,
	}
	if err := s.artifacts.CreateArtifactWithVersion(ctx, artifact, version); err != nil {
		return nil, err
	}
	return &models.ArtifactWithVersion{Artifact: *artifact, Version: *version}, nil
}

// CreateVersion appends a version and retargets the current pointer.
// Prior versions are never mutated.
func (s *ArtifactService) CreateVersion(ctx context.Context, in *models.CreateVersionInput) (*models.ArtifactVersion, error) {
	artifact, err := s.artifacts.GetArtifact(ctx, in.ArtifactID, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if artifact == nil || artifact.Archived {
		return nil, problem.NewNotFound(in.ArtifactID, "artifact not found or archived")
	}

	if in.QuerySpecID != nil {
		spec, err := s.workspace.GetQuerySpec(ctx, *in.QuerySpecID, in.OrganizationID)
		if err != nil {
			return nil, err
		}
		if spec == nil {
			return nil, problem.NewNotFound(*in.QuerySpecID, "query spec not found in this organization")
		}
	}

	version := &models.ArtifactVersion{
		ID:          uuid.New().String(),
		QuerySpecID: in.QuerySpecID,
		ConfigJSON:  in.ConfigJSON,
		LayoutJSON:  in.LayoutJSON,
		Notes:       in.Notes,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   time.Now(),
	}
	if err := s.artifacts.AppendVersion(ctx, artifact.ID, version); err != nil {
		return nil, err
	}
	return version, nil
}

// ListVersions returns the history newest-first.
func (s *ArtifactService) ListVersions(ctx context.Context, artifactID, orgID string) ([]models.ArtifactVersion, error) {
	artifact, err := s.artifacts.GetArtifact(ctx, artifactID, orgID)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, problem.NewNotFound(artifactID, "artifact not found in this organization")
	}
	return s.artifacts.ListVersions(ctx, artifactID)
}

func (s *ArtifactService) GetArtifact(ctx context.Context, id, orgID string) (*models.Artifact, error) {
	return s.artifacts.GetArtifact(ctx, id, orgID)
}

func (s *ArtifactService) ListArtifacts(ctx context.Context, p *models.ListArtifactsParams) ([]models.Artifact, error) {
	return s.artifacts.ListArtifacts(ctx, p)
}

// ArchiveArtifact is the only delete there is: the header is flagged, the
// history stays.
func (s *ArtifactService) ArchiveArtifact(ctx context.Context, id, orgID string) (*models.Artifact, error) {
	artifact, err := s.artifacts.GetArtifact(ctx, id, orgID)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, problem.NewNotFound(id, "artifact not found in this organization")
	}
	if err := s.artifacts.ArchiveArtifact(ctx, id, orgID); err != nil {
		return nil, err
	}
	artifact.Archived = true
	return artifact, nil
}
