package handler

import (
	"go-pos-ws/internal/middleware"
	"go-pos-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct{}

func NewReportHandler() *ReportHandler {
	return &ReportHandler{}
}

func reports(c *fiber.Ctx) service.ReportService {
	return middleware.Stack(c).Reports
}

// GetDashboard returns overview statistics
func (h *ReportHandler) GetDashboard(c *fiber.Ctx) error {
	stats, err := reports(c).Dashboard(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(stats)
}

// GetDailySales returns one row per day, oldest first
// Query params: days (default 7)
func (h *ReportHandler) GetDailySales(c *fiber.Ctx) error {
	days := queryInt(c, "days", service.DefaultReportDays)
	data, err := reports(c).DailySales(c.UserContext(), days)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"period": days, "data": data})
}

// GetTopProducts ranks products by units sold
// Query params: days (default 7), limit (default 5)
func (h *ReportHandler) GetTopProducts(c *fiber.Ctx) error {
	days := queryInt(c, "days", service.DefaultReportDays)
	limit := queryInt(c, "limit", service.DefaultTopLimit)
	data, err := reports(c).TopProducts(c.UserContext(), days, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"period": days, "data": data})
}

func (h *ReportHandler) GetPaymentMethods(c *fiber.Ctx) error {
	days := queryInt(c, "days", service.DefaultReportDays)
	data, err := reports(c).PaymentBreakdown(c.UserContext(), days)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"period": days, "data": data})
}

func (h *ReportHandler) GetLowStock(c *fiber.Ctx) error {
	data, err := reports(c).LowStock(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(data)
}
