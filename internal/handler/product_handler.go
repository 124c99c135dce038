package handler

import (
	"go-pos-ws/internal/middleware"
	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/internal/service"
	"go-pos-ws/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ProductHandler serves the catalog of the tenant resolved by
// middleware.ResolveTenant.
type ProductHandler struct{}

func NewProductHandler() *ProductHandler {
	return &ProductHandler{}
}

func products(c *fiber.Ctx) service.ProductService {
	return middleware.Stack(c).Products
}

func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	filter := repository.ProductFilter{
		Category: c.Query("category"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 0),
	}

	list, total, err := products(c).ListProducts(c.UserContext(), filter)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(paged(list, total, filter.Page, filter.PageSize))
}

func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	product, err := products(c).GetProduct(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(product)
}

func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var product model.Product
	if err := c.BodyParser(&product); err != nil {
		return invalidJSON(c)
	}

	if err := products(c).CreateProduct(c.UserContext(), &product, middleware.CurrentActor(c)); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created", "data": product})
}

func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	var product model.Product
	if err := c.BodyParser(&product); err != nil {
		return invalidJSON(c)
	}

	updated, err := products(c).UpdateProduct(c.UserContext(), id, &product, middleware.CurrentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": updated})
}

func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	if err := products(c).DeleteProduct(c.UserContext(), id, middleware.CurrentActor(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}

// SearchProducts matches q against name, code, barcode and category.
// GET /api/v1/products/search?q=&limit=
func (h *ProductHandler) SearchProducts(c *fiber.Ctx) error {
	limit := queryInt(c, "limit", service.DefaultSearchLimit)
	list, err := products(c).SearchProducts(c.UserContext(), c.Query("q"), limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(list)
}

func (h *ProductHandler) GetCategories(c *fiber.Ctx) error {
	categories, err := products(c).Categories(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(categories)
}

// StockAvailable answers whether the product can cover quantity units.
// GET /api/v1/products/:id/stock-available?quantity=
func (h *ProductHandler) StockAvailable(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}
	quantity := c.QueryInt("quantity", 0)

	available, err := products(c).CheckStock(c.UserContext(), id, quantity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"product_id": id, "quantity": quantity, "available": available})
}

// AdjustStock applies a manual stock correction.
// POST /api/v1/products/:id/stock
func (h *ProductHandler) AdjustStock(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	var req service.StockAdjustment
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if err := validator.Check(&req); err != nil {
		return fail(c, err)
	}

	product, err := products(c).AdjustStock(c.UserContext(), id, req.Delta, middleware.CurrentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Stock adjusted", "data": product})
}
