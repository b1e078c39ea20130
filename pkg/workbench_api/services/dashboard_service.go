package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	problem "github.com/workbench-hq/workbench-api/pkg/workbench_api/helpers/problem"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/repositories"
	"gorm.io/gorm"
)

// DashboardService owns the composition graph between dashboards and the
// artifacts they embed.
type DashboardService struct {
	artifacts repositories.ArtifactRepository
}

func NewDashboardService(artifacts repositories.ArtifactRepository) *DashboardService {
	return &DashboardService{artifacts: artifacts}
}

// AddItem places a child artifact on a dashboard. Self-embedding is
// rejected outright, and because dashboards may embed other dashboards we
// also walk the graph from the candidate child: if the dashboard being
// edited is reachable, the edge would close a cycle and is refused.
func (s *DashboardService) AddItem(ctx context.Context, in *models.AddItemInput) (*models.ArtifactItem, error) {
	if in.ChildArtifactID == in.DashboardArtifactID {
		return nil, problem.NewBadRequest("childArtifactId", "a dashboard cannot embed itself",
			problem.InvalidParam{Name: "childArtifactId", Reason: "must differ from the dashboard artifact id"})
	}

	dashboard, err := s.artifacts.GetArtifact(ctx, in.DashboardArtifactID, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if dashboard == nil {
		return nil, problem.NewNotFound(in.DashboardArtifactID, "dashboard artifact not found in this organization")
	}
	if dashboard.Type != models.ArtifactTypeDashboard {
		return nil, problem.NewBadRequest(in.DashboardArtifactID, "artifact is not a dashboard",
			problem.InvalidParam{Name: "dashboardArtifactId", Reason: "must reference an artifact of type dashboard"})
	}

	child, err := s.artifacts.GetArtifact(ctx, in.ChildArtifactID, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, problem.NewNotFound(in.ChildArtifactID, "child artifact not found in this organization")
	}

	if in.ChildVersionID != nil {
		version, err := s.artifacts.GetVersion(ctx, *in.ChildVersionID)
		if err != nil {
			return nil, err
		}
		if version == nil || version.ArtifactID != child.ID {
			return nil, problem.NewBadRequest(*in.ChildVersionID, "pinned version does not belong to the child artifact",
				problem.InvalidParam{Name: "childArtifactVersionId", Reason: "must be a version of the child artifact"})
		}
	}

	if child.Type == models.ArtifactTypeDashboard {
		cycle, err := s.reaches(ctx, child.ID, dashboard.ID)
		if err != nil {
			return nil, err
		}
		if cycle {
			return nil, problem.NewBadRequest(in.ChildArtifactID, "embedding this dashboard would create a cycle",
				problem.InvalidParam{Name: "childArtifactId", Reason: "child dashboard already embeds this dashboard, directly or transitively"})
		}
	}

	item := &models.ArtifactItem{
		ID:                  uuid.New().String(),
		DashboardArtifactID: dashboard.ID,
		ChildArtifactID:     child.ID,
		ChildVersionID:      in.ChildVersionID,
		PositionJSON:        in.PositionJSON,
		DisplayJSON:         in.DisplayJSON,
		CreatedAt:           time.Now(),
	}
	if err := s.artifacts.SaveItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// reaches walks composition edges breadth-first from `from` and reports
// whether `target` shows up.
func (s *DashboardService) reaches(ctx context.Context, from, target string) (bool, error) {
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		items, err := s.artifacts.ListItems(ctx, current)
		if err != nil {
			return false, err
		}
		for _, item := range items {
			if item.ChildArtifactID == target {
				return true, nil
			}
			if !visited[item.ChildArtifactID] {
				visited[item.ChildArtifactID] = true
				queue = append(queue, item.ChildArtifactID)
			}
		}
	}
	return false, nil
}

// RemoveItem deletes the edge only; composition is reference, not
// ownership.
func (s *DashboardService) RemoveItem(ctx context.Context, in *models.ItemParams) error {
	dashboard, err := s.artifacts.GetArtifact(ctx, in.DashboardArtifactID, in.OrganizationID)
	if err != nil {
		return err
	}
	if dashboard == nil {
		return problem.NewNotFound(in.DashboardArtifactID, "dashboard artifact not found in this organization")
	}

	err = s.artifacts.DeleteItem(ctx, in.ItemID, in.DashboardArtifactID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return problem.NewNotFound(in.ItemID, "dashboard item not found")
	}
	return err
}

// ListItems returns all edges with each child resolved against its pinned
// version when one is set, the child's current version otherwise.
func (s *DashboardService) ListItems(ctx context.Context, in *models.ListItemsParams) ([]models.ResolvedItem, error) {
	dashboard, err := s.artifacts.GetArtifact(ctx, in.DashboardArtifactID, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if dashboard == nil {
		return nil, problem.NewNotFound(in.DashboardArtifactID, "dashboard artifact not found in this organization")
	}
	if dashboard.Type != models.ArtifactTypeDashboard {
		return nil, problem.NewBadRequest(in.DashboardArtifactID, "artifact is not a dashboard")
	}

	items, err := s.artifacts.ListItems(ctx, dashboard.ID)
	if err != nil {
		return nil, err
	}

	resolved := make([]models.ResolvedItem, 0, len(items))
	for _, item := range items {
		child, err := s.artifacts.GetArtifact(ctx, item.ChildArtifactID, in.OrganizationID)
		if err != nil {
			return nil, err
		}
		if child == nil {
			// Edge to an artifact that moved out of the org; skip rather than fail the list.
			continue
		}

		versionID := child.CurrentVersionID
		if item.ChildVersionID != nil {
			versionID = item.ChildVersionID
		}
		var version *models.ArtifactVersion
		if versionID != nil {
			version, err = s.artifacts.GetVersion(ctx, *versionID)
			if err != nil {
				return nil, err
			}
		}
		resolved = append(resolved, models.ResolvedItem{Item: item, Child: *child, ResolvedVersion: version})
	}
	return resolved, nil
}
