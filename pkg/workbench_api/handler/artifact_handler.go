package handler

import (
	"github.com/gin-gonic/gin"
	problem "github.com/workbench-hq/workbench-api/pkg/workbench_api/helpers/problem"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/services"
)

// ArtifactsAPIController binds HTTP requests to the artifact and dashboard
// services.
type ArtifactsAPIController struct {
	Artifacts  *services.ArtifactService
	Dashboards *services.DashboardService
}

// NewArtifactsAPIController creates a new controller
func NewArtifactsAPIController(artifacts *services.ArtifactService, dashboards *services.DashboardService) *ArtifactsAPIController {
	return &ArtifactsAPIController{Artifacts: artifacts, Dashboards: dashboards}
}

// CreateArtifact handles POST /artifacts
func (c *ArtifactsAPIController) CreateArtifact(ctx *gin.Context, body *models.CreateArtifactInput) (*models.ArtifactWithVersion, error) {
	return c.Artifacts.CreateArtifact(ctx.Request.Context(), body)
}

// ListArtifacts handles GET /artifacts
func (c *ArtifactsAPIController) ListArtifacts(ctx *gin.Context, p *models.ListArtifactsParams) ([]models.Artifact, error) {
	return c.Artifacts.ListArtifacts(ctx.Request.Context(), p)
}

// RetrieveArtifact handles GET /artifacts/:id
func (c *ArtifactsAPIController) RetrieveArtifact(ctx *gin.Context, params *models.ArtifactParams) (*models.Artifact, error) {
	artifact, err := c.Artifacts.GetArtifact(ctx.Request.Context(), params.ID, params.OrganizationID)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, problem.NewNotFound(params.ID, "Artifact not found")
	}
	return artifact, nil
}

// ArchiveArtifact handles DELETE /artifacts/:id. Archive, not delete: the
// header is flagged and the version history stays.
func (c *ArtifactsAPIController) ArchiveArtifact(ctx *gin.Context, params *models.ArtifactParams) (*models.Artifact, error) {
	return c.Artifacts.ArchiveArtifact(ctx.Request.Context(), params.ID, params.OrganizationID)
}

// ListVersions handles GET /artifacts/:id/versions
func (c *ArtifactsAPIController) ListVersions(ctx *gin.Context, params *models.ArtifactParams) ([]models.ArtifactVersion, error) {
	return c.Artifacts.ListVersions(ctx.Request.Context(), params.ID, params.OrganizationID)
}

// CreateVersion handles POST /artifacts/:id/versions
func (c *ArtifactsAPIController) CreateVersion(ctx *gin.Context, body *models.CreateVersionInput) (*models.ArtifactVersion, error) {
	return c.Artifacts.CreateVersion(ctx.Request.Context(), body)
}

// AddItem handles POST /dashboards/:id/items
func (c *ArtifactsAPIController) AddItem(ctx *gin.Context, body *models.AddItemInput) (*models.ArtifactItem, error) {
	return c.Dashboards.AddItem(ctx.Request.Context(), body)
}

// ListItems handles GET /dashboards/:id/items
func (c *ArtifactsAPIController) ListItems(ctx *gin.Context, params *models.ListItemsParams) ([]models.ResolvedItem, error) {
	return c.Dashboards.ListItems(ctx.Request.Context(), params)
}

// RemoveItem handles DELETE /dashboards/:id/items/:itemId
func (c *ArtifactsAPIController) RemoveItem(ctx *gin.Context, params *models.ItemParams) error {
	return c.Dashboards.RemoveItem(ctx.Request.Context(), params)
}
