package handler

import (
	"errors"
	"strconv"

	"go-pos-ws/internal/service"
	"go-pos-ws/pkg/jwt"
	"go-pos-ws/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	notFound = []error{
		service.ErrProductNotFound, service.ErrSaleNotFound, service.ErrUserNotFound,
		service.ErrRoleNotFound, service.ErrTenantNotFound, service.ErrMemberNotFound,
	}
	conflict = []error{
		service.ErrDuplicateCode, service.ErrDuplicateBarcode, service.ErrDuplicateSlug,
		service.ErrEmailExists, service.ErrAlreadyMember, service.ErrSaleAlreadyCancelled,
	}
	badRequest = []error{
		service.ErrInvalidQuantity, service.ErrWrongPassword,
		service.ErrSelfDeactivation, service.ErrSelfDeletion,
	}
	unauthorized = []error{
		service.ErrInvalidCredentials, service.ErrUserInactive, service.ErrSessionTimeout,
		service.ErrSessionReplaced, jwt.ErrInvalidToken, jwt.ErrMissingToken,
	}
	forbidden = []error{
		service.ErrSignupDisabled, service.ErrNotTenantMember, service.ErrTenantInactive,
		service.ErrTenantRequired,
	}
)

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// fail writes the response for a domain error. Errors it does not know are
// returned so the app's ErrorHandler logs them and answers 500.
func fail(c *fiber.Ctx, err error) error {
	var verr *validator.Error
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr.Error(), "details": verr.Fields})
	}

	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": stockErr.Error(), "shortages": stockErr.Shortages})
	}

	switch {
	case isAny(err, notFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case isAny(err, conflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case isAny(err, badRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case isAny(err, unauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case isAny(err, forbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrTenantUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Tenant database unavailable"})
	}
	return err
}

// ErrorHandler answers errors that escaped the handlers. The cause of a 5xx
// is logged and never sent to the client.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	log = log.Named("http")
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var ferr *fiber.Error
		if errors.As(err, &ferr) {
			code = ferr.Code
			message = ferr.Message
		}

		if code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			message = "Internal Server Error"
		}
		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}

func invalidJSON(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(c *fiber.Ctx, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func paged(data interface{}, total int64, page, pageSize int) fiber.Map {
	return fiber.Map{
		"data":      data,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	}
}
