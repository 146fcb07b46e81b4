package handlers

import (
	"errors"
	"strings"

	"colony-staff/internal/adapters/http/middleware"
	"colony-staff/internal/core/domain"
	"colony-staff/internal/core/services"
	"colony-staff/internal/pkg/jwt"
	"colony-staff/internal/pkg/password"
	"colony-staff/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles staff authentication endpoints
type AuthHandler struct {
	authService *services.StaffAuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.StaffAuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest represents staff registration request body
type RegisterRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// LoginRequest represents staff login request body.
// LoginField accepts a staff number or a phone number.
type LoginRequest struct {
	LoginField string `json:"loginField"`
	Password   string `json:"password"`
}

// StaffLogin handles staff login
// @Summary Staff login
// @Description Authenticate a staff member by staff number or phone and return an access token
// @Tags Staff
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /user/staff-login [post]
func (h *AuthHandler) StaffLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	loginField := strings.TrimSpace(req.LoginField)
	if loginField == "" {
		return response.BadRequest(c, "Staff ID or phone is required")
	}
	if req.Password == "" {
		return response.BadRequest(c, "Password is required")
	}

	result, err := h.authService.Login(c.UserContext(), &services.LoginInput{
		LoginField: loginField,
		Password:   req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			return response.Unauthorized(c, "Invalid staff ID or password")
		case errors.Is(err, domain.ErrStaffInactive):
			return response.Forbidden(c, "Staff account is inactive")
		default:
			return response.InternalServerError(c, "Failed to login")
		}
	}

	return response.Success(c, "Login successful", result)
}

// StaffRegister handles staff registration
// @Summary Register staff
// @Description Create a staff account; the staff number is assigned by the server
// @Tags Staff
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "Registration data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /user/staff-register [post]
func (h *AuthHandler) StaffRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	// Validate required fields
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" {
		return response.BadRequest(c, "Name is required")
	}
	if !validPhone(phone) {
		return response.BadRequest(c, "Phone must be 7 to 15 digits")
	}
	if !password.ValidatePassword(req.Password) {
		return response.BadRequest(c, "Password must be at least 6 characters")
	}

	staff, err := h.authService.Register(c.UserContext(), &services.RegisterInput{
		Name:     name,
		Phone:    phone,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrStaffAlreadyExists):
			return response.Conflict(c, "Phone number already registered")
		default:
			return response.InternalServerError(c, "Failed to register staff")
		}
	}

	return response.Created(c, "Staff registered successfully", fiber.Map{
		"staff": staff,
	})
}

// StaffLogout handles staff logout
// @Summary Staff logout
// @Description Revoke the current access token
// @Tags Staff
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /user/staff-logout [post]
func (h *AuthHandler) StaffLogout(c *fiber.Ctx) error {
	claims, ok := c.Locals(middleware.LocalClaims).(*jwt.Claims)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	if err := h.authService.Logout(c.UserContext(), claims); err != nil {
		return response.InternalServerError(c, "Failed to logout")
	}

	return response.Success(c, "Logout successful", nil)
}

// Me returns the current staff member
// @Summary Current staff
// @Description Get the profile of the authenticated staff member
// @Tags Staff
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /user/staff/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	staffID, ok := c.Locals(middleware.LocalStaffID).(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	staff, err := h.authService.Me(c.UserContext(), staffID)
	if err != nil {
		if errors.Is(err, domain.ErrStaffNotFound) {
			return response.NotFound(c, "Staff not found")
		}
		return response.InternalServerError(c, "Failed to get staff")
	}

	return response.Success(c, "Staff retrieved successfully", staff)
}

// validPhone accepts 7 to 15 digits with an optional leading plus
func validPhone(phone string) bool {
	digits := strings.TrimPrefix(phone, "+")
	if len(digits) < 7 || len(digits) > 15 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
