package middleware

import (
	"context"
	"errors"
	"log"
	"strings"

	"colony-staff/internal/config"
	"colony-staff/internal/pkg/jwt"
	"colony-staff/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by AuthMiddleware
const (
	LocalStaffID = "staffID"
	LocalStaffNo = "staffNo"
	LocalName    = "name"
	LocalRole    = "role"
	LocalClaims  = "claims"
)

// RevocationChecker reports whether a token id was revoked by logout
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthMiddleware creates authentication middleware
func AuthMiddleware(cfg *config.Config, revocations RevocationChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1. Bearer token from the Authorization header
		accessToken := bearerToken(c)
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		// 2. Validate token
		claims, err := jwt.ValidateAccessToken(accessToken, cfg.JWT.Secret)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		// 3. Reject tokens revoked by logout
		if revocations != nil {
			revoked, err := revocations.IsRevoked(c.UserContext(), claims.ID)
			if err != nil {
				log.Printf("❌ Revocation lookup failed: %v", err)
				return response.InternalServerError(c, "Failed to verify access token")
			}
			if revoked {
				return response.Unauthorized(c, "Access token revoked")
			}
		}

		// 4. Set staff info in context
		c.Locals(LocalStaffID, claims.StaffID)
		c.Locals(LocalStaffNo, claims.StaffNo)
		c.Locals(LocalName, claims.Name)
		c.Locals(LocalRole, claims.Role)
		c.Locals(LocalClaims, claims)

		return c.Next()
	}
}

// RoleMiddleware creates role-based authorization middleware
func RoleMiddleware(allowedRoles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(LocalRole).(string)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		for _, allowedRole := range allowedRoles {
			if role == allowedRole {
				return c.Next()
			}
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// ManagerOnly allows only the MANAGER role
func ManagerOnly() fiber.Handler {
	return RoleMiddleware("MANAGER")
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}
