package handler

import (
	"github.com/gin-gonic/gin"
	problem "github.com/workbench-hq/workbench-api/pkg/workbench_api/helpers/problem"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/services"
)

// QuerySpecsAPIController binds HTTP requests to the QuerySpecService
type QuerySpecsAPIController struct {
	Service *services.QuerySpecService
}

func NewQuerySpecsAPIController(s *services.QuerySpecService) *QuerySpecsAPIController {
	return &QuerySpecsAPIController{Service: s}
}

// CreateQuerySpec handles POST /query-specs
func (c *QuerySpecsAPIController) CreateQuerySpec(ctx *gin.Context, body *models.CreateQuerySpecInput) (*models.QuerySpec, error) {
	return c.Service.CreateQuerySpec(ctx.Request.Context(), body)
}

// ListQuerySpecs handles GET /query-specs
func (c *QuerySpecsAPIController) ListQuerySpecs(ctx *gin.Context, p *models.ListQuerySpecsParams) ([]models.QuerySpec, error) {
	return c.Service.ListQuerySpecs(ctx.Request.Context(), p)
}

// RetrieveQuerySpec handles GET /query-specs/:id
func (c *QuerySpecsAPIController) RetrieveQuerySpec(ctx *gin.Context, params *models.QuerySpecParams) (*models.QuerySpec, error) {
	spec, err := c.Service.GetQuerySpec(ctx.Request.Context(), params.ID, params.OrganizationID)
	if err != nil {
		return nil, err
	}
	if spec == nil {
		return nil, problem.NewNotFound(params.ID, "Query spec not found")
	}
	return spec, nil
}

// UpdateQuerySpec handles PUT /query-specs/:id
func (c *QuerySpecsAPIController) UpdateQuerySpec(ctx *gin.Context, body *models.UpdateQuerySpecInput) (*models.QuerySpec, error) {
	return c.Service.UpdateQuerySpec(ctx.Request.Context(), body)
}

// DeleteQuerySpec handles DELETE /query-specs/:id
func (c *QuerySpecsAPIController) DeleteQuerySpec(ctx *gin.Context, params *models.QuerySpecParams) error {
	return c.Service.DeleteQuerySpec(ctx.Request.Context(), params.ID, params.OrganizationID)
}
