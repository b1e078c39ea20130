package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/services"
)

// DeliveryAPIController binds HTTP requests to the DeliveryService
type DeliveryAPIController struct {
	Service *services.DeliveryService
}

func NewDeliveryAPIController(s *services.DeliveryService) *DeliveryAPIController {
	return &DeliveryAPIController{Service: s}
}

// CreateChannel handles POST /delivery-channels
func (c *DeliveryAPIController) CreateChannel(ctx *gin.Context, body *models.CreateDeliveryChannelInput) (*models.DeliveryChannel, error) {
	return c.Service.CreateChannel(ctx.Request.Context(), body)
}

// ListChannels handles GET /delivery-channels
func (c *DeliveryAPIController) ListChannels(ctx *gin.Context, p *models.ListDeliveryChannelsParams) ([]models.DeliveryChannel, error) {
	return c.Service.ListChannels(ctx.Request.Context(), p)
}

// DeleteChannel handles DELETE /delivery-channels/:id
func (c *DeliveryAPIController) DeleteChannel(ctx *gin.Context, params *models.DeliveryChannelParams) error {
	return c.Service.DeleteChannel(ctx.Request.Context(), params.ID, params.OrganizationID)
}

// RunDue handles POST /delivery-channels/run-due. Callers are either the
// out-of-band scheduler (shared secret) or an authenticated manager.
func (c *DeliveryAPIController) RunDue(ctx *gin.Context, body *models.RunDueInput) (*models.DeliverySweepReport, error) {
	return c.Service.RunDueChannels(ctx.Request.Context(), body.OrganizationID, body.Limit)
}
