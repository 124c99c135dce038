package handler

import (
	"time"

	"go-pos-ws/internal/middleware"
	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SaleHandler struct{}

func NewSaleHandler() *SaleHandler {
	return &SaleHandler{}
}

func sales(c *fiber.Ctx) service.SaleService {
	return middleware.Stack(c).Sales
}

// CreateSale finalizes a cart. Every line is checked before anything is
// written; a shortage answers 409 with the failing products.
// POST /api/v1/sales
func (h *SaleHandler) CreateSale(c *fiber.Ctx) error {
	var req service.CreateSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	sale, err := sales(c).CreateSale(c.UserContext(), &req, middleware.CurrentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Sale recorded", "data": sale})
}

// GetSales lists sales, newest first.
// Query params: from, to (YYYY-MM-DD, inclusive), status, payment_method, page, page_size
func (h *SaleHandler) GetSales(c *fiber.Ctx) error {
	filter := repository.SaleFilter{
		Status:        model.SaleStatus(c.Query("status")),
		PaymentMethod: model.PaymentMethod(c.Query("payment_method")),
		Page:          queryInt(c, "page", 1),
		PageSize:      queryInt(c, "page_size", 0),
	}

	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid from date, use YYYY-MM-DD"})
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid to date, use YYYY-MM-DD"})
		}
		end := to.AddDate(0, 0, 1)
		filter.To = &end
	}

	list, total, err := sales(c).ListSales(c.UserContext(), filter)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(paged(list, total, filter.Page, filter.PageSize))
}

func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid sale ID"})
	}

	sale, err := sales(c).GetSale(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sale)
}

// CancelSale marks a completed sale cancelled and restocks its items.
// POST /api/v1/sales/:id/cancel
func (h *SaleHandler) CancelSale(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid sale ID"})
	}

	sale, err := sales(c).CancelSale(c.UserContext(), id, middleware.CurrentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Sale cancelled", "data": sale})
}
