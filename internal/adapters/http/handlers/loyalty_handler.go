package handlers

import (
	"errors"
	"strings"

	"colony-staff/internal/adapters/http/middleware"
	"colony-staff/internal/core/domain"
	"colony-staff/internal/core/services"
	"colony-staff/internal/pkg/pagination"
	"colony-staff/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// maxQRSize caps the rendered QR edge in pixels
const maxQRSize = 1024

// LoyaltyHandler handles loyalty visit endpoints
type LoyaltyHandler struct {
	loyaltyService *services.LoyaltyService
}

// NewLoyaltyHandler creates a new loyalty handler
func NewLoyaltyHandler(loyaltyService *services.LoyaltyService) *LoyaltyHandler {
	return &LoyaltyHandler{loyaltyService: loyaltyService}
}

// AddVisitRequest represents one purchase submitted from the till
type AddVisitRequest struct {
	MembershipNumber string   `json:"membership_number"`
	AmountSpent      *float64 `json:"amountSpent"`
}

// AddLoyaltyVisit awards points for a purchase
// @Summary Add loyalty visit
// @Description Record a purchase for a member and credit points
// @Tags Loyalty
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body AddVisitRequest true "Visit data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /user/add_loyalty_visit [post]
func (h *LoyaltyHandler) AddLoyaltyVisit(c *fiber.Ctx) error {
	var req AddVisitRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if strings.TrimSpace(req.MembershipNumber) == "" {
		return response.BadRequest(c, "membership_number is required")
	}
	if req.AmountSpent == nil {
		return response.BadRequest(c, "amountSpent is required")
	}

	staffID, _ := c.Locals(middleware.LocalStaffID).(uint)
	staffNo, _ := c.Locals(middleware.LocalStaffNo).(string)

	result, err := h.loyaltyService.AddVisit(c.UserContext(), &services.AddVisitInput{
		MembershipNumber: req.MembershipNumber,
		AmountSpent:      *req.AmountSpent,
		StaffID:          staffID,
		StaffNo:          staffNo,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMemberNotFound):
			return response.NotFound(c, "Invalid membership")
		case errors.Is(err, domain.ErrInvalidAmount):
			return response.BadRequest(c, "Amount must be a non-negative number")
		default:
			return response.InternalServerError(c, "Failed to add loyalty visit")
		}
	}

	return response.Success(c, "Points added successfully", result)
}

// ListVisits returns the visits recorded by the calling staff member
// @Summary List my visits
// @Description Paginated history of visits recorded by the authenticated staff member
// @Tags Loyalty
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /user/visits [get]
func (h *LoyaltyHandler) ListVisits(c *fiber.Ctx) error {
	staffID, ok := c.Locals(middleware.LocalStaffID).(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)
	visits, total, err := h.loyaltyService.ListVisits(c.UserContext(), staffID, params)
	if err != nil {
		return response.InternalServerError(c, "Failed to list visits")
	}

	return response.Success(c, "Visits retrieved successfully", fiber.Map{
		"visits":     visits,
		"pagination": pagination.GetMeta(params, total),
	})
}

// MemberQR renders a member's card as a QR code
// @Summary Member QR code
// @Description PNG QR code encoding the member card {name, phone, membership}
// @Tags Loyalty
// @Produce png
// @Security BearerAuth
// @Param membership path string true "Membership number"
// @Param size query int false "Image size in pixels" default(320)
// @Success 200 {file} binary
// @Failure 404 {object} response.Response
// @Router /user/members/{membership}/qr [get]
func (h *LoyaltyHandler) MemberQR(c *fiber.Ctx) error {
	size := c.QueryInt("size", 0)
	if size > maxQRSize {
		size = maxQRSize
	}

	png, err := h.loyaltyService.MemberQR(c.UserContext(), c.Params("membership"), size)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return response.NotFound(c, "Member not found")
		}
		return response.InternalServerError(c, "Failed to render QR code")
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}
