package handler

import (
	"github.com/gin-gonic/gin"
	problem "github.com/workbench-hq/workbench-api/pkg/workbench_api/helpers/problem"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/services"
)

// RunsAPIController binds HTTP requests to the execution engine.
type RunsAPIController struct {
	Service *services.RunService
}

func NewRunsAPIController(s *services.RunService) *RunsAPIController {
	return &RunsAPIController{Service: s}
}

// TriggerRun handles POST /artifacts/:id/runs. The response is either the
// new run (possibly already terminal) or the in-flight run another caller
// started first.
func (c *RunsAPIController) TriggerRun(ctx *gin.Context, body *models.TriggerRunInput) (*models.ArtifactRun, error) {
	return c.Service.RunArtifact(ctx.Request.Context(), body)
}

// ListRuns handles GET /artifacts/:id/runs
func (c *RunsAPIController) ListRuns(ctx *gin.Context, params *models.ListRunsParams) ([]models.ArtifactRun, error) {
	return c.Service.ListRuns(ctx.Request.Context(), params.ArtifactID, params.OrganizationID)
}

// RetrieveRun handles GET /runs/:id
func (c *RunsAPIController) RetrieveRun(ctx *gin.Context, params *models.RunParams) (*models.ArtifactRun, error) {
	run, err := c.Service.GetRun(ctx.Request.Context(), params.ID, params.OrganizationID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, problem.NewNotFound(params.ID, "Run not found")
	}
	return run, nil
}
