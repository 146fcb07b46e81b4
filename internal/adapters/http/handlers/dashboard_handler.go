package handlers

import (
	"colony-staff/internal/core/services"
	"colony-staff/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// GetManagerDashboard returns manager dashboard data
// @Summary Manager Dashboard
// @Description Visits, amount spent and points awarded today, over 7 days and over 30 days (Manager only)
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /user/dashboard [get]
func (h *DashboardHandler) GetManagerDashboard(c *fiber.Ctx) error {
	data, err := h.dashboardService.GetManagerDashboard(c.UserContext())
	if err != nil {
		return response.InternalServerError(c, "Failed to get manager dashboard")
	}

	return response.Success(c, "Manager dashboard retrieved successfully", data)
}
