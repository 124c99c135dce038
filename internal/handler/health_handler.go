package handler

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Health reports whether the primary database answers.
// GET /healthz
func Health(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "database": "down"})
		}
		return c.JSON(fiber.Map{"status": "ok", "database": "up"})
	}
}
