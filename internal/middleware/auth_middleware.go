package middleware

import (
	"context"
	"errors"
	"strings"

	"go-pos-ws/internal/model"
	"go-pos-ws/internal/service"
	"go-pos-ws/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Keys of the values RequireAuth stores in c.Locals.
const (
	LocalUserID     = "user_id"
	LocalUserEmail  = "user_email"
	LocalUserName   = "user_name"
	LocalPrivileges = "user_privileges"
	LocalTenantID   = "tenant_id"
	LocalToken      = "token"
)

var errAuthFormat = errors.New("invalid authorization format. Use: Bearer <token>")

// Authenticator resolves a bearer token to its user. service.AuthService
// implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, *jwt.Claims, error)
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", jwt.ErrMissingToken
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errAuthFormat
	}
	return parts[1], nil
}

// RequireAuth validates the bearer token against the user's current session
// and sets user info in context for downstream handlers. Privileges come from
// the database so changes apply without a new login.
func RequireAuth(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := BearerToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": capitalize(err.Error())})
		}

		user, claims, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": authMessage(err)})
		}

		c.Locals(LocalUserID, user.ID.String())
		c.Locals(LocalUserEmail, user.Email)
		c.Locals(LocalUserName, user.FullName)
		c.Locals(LocalPrivileges, user.GetPrivilegeCodes())
		c.Locals(LocalTenantID, claims.TenantID)
		c.Locals(LocalToken, token)

		return c.Next()
	}
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrUserInactive),
		errors.Is(err, service.ErrSessionReplaced),
		errors.Is(err, service.ErrSessionTimeout):
		return capitalize(err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		return "User not found"
	default:
		return "Invalid or expired token"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// RequirePrivilege checks if the authenticated user has the required privilege
func RequirePrivilege(requiredPrivilege string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		privileges, ok := c.Locals(LocalPrivileges).([]string)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No privileges found"})
		}

		for _, p := range privileges {
			if p == requiredPrivilege {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: requires '" + requiredPrivilege + "' privilege",
		})
	}
}

// RequireAnyPrivilege checks if the user has at least one of the specified privileges
func RequireAnyPrivilege(requiredPrivileges ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		privileges, ok := c.Locals(LocalPrivileges).([]string)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No privileges found"})
		}

		for _, userPriv := range privileges {
			for _, reqPriv := range requiredPrivileges {
				if userPriv == reqPriv {
					return c.Next()
				}
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: requires one of " + strings.Join(requiredPrivileges, ", ") + " privileges",
		})
	}
}

// UserID returns the authenticated user's id, or uuid.Nil.
func UserID(c *fiber.Ctx) uuid.UUID {
	raw, _ := c.Locals(LocalUserID).(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// CurrentActor describes the authenticated user for audit fields and
// change events.
func CurrentActor(c *fiber.Ctx) service.Actor {
	name, _ := c.Locals(LocalUserName).(string)
	email, _ := c.Locals(LocalUserEmail).(string)
	return service.Actor{ID: UserID(c), Name: name, Email: email}
}
