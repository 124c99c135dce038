package handler

import (
	"go-pos-ws/internal/middleware"
	"go-pos-ws/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type TenantHandler struct {
	tenantService service.TenantService
}

func NewTenantHandler(tenantService service.TenantService) *TenantHandler {
	return &TenantHandler{tenantService: tenantService}
}

func (h *TenantHandler) GetTenants(c *fiber.Ctx) error {
	tenants, err := h.tenantService.ListTenants(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(tenants)
}

// GetMyTenants lists the caller's memberships
// GET /api/v1/tenants/mine
func (h *TenantHandler) GetMyTenants(c *fiber.Ctx) error {
	memberships, err := h.tenantService.MyTenants(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(memberships)
}

func (h *TenantHandler) GetTenant(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tenant ID"})
	}

	tenant, err := h.tenantService.GetTenant(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(tenant)
}

func (h *TenantHandler) CreateTenant(c *fiber.Ctx) error {
	var req service.TenantRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	tenant, err := h.tenantService.CreateTenant(c.UserContext(), &req, middleware.CurrentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Tenant created", "data": tenant})
}

func (h *TenantHandler) UpdateTenant(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tenant ID"})
	}

	var req service.TenantRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	tenant, err := h.tenantService.UpdateTenant(c.UserContext(), id, &req, middleware.CurrentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Tenant updated", "data": tenant})
}

func (h *TenantHandler) DeleteTenant(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tenant ID"})
	}

	if err := h.tenantService.DeleteTenant(c.UserContext(), id, middleware.CurrentActor(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Tenant deleted"})
}

func (h *TenantHandler) GetMembers(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tenant ID"})
	}

	members, err := h.tenantService.Members(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(members)
}

func (h *TenantHandler) AddMember(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tenant ID"})
	}

	var req service.MemberRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	member, err := h.tenantService.AddMember(c.UserContext(), id, &req, middleware.CurrentActor(c))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Member added", "data": member})
}

func (h *TenantHandler) RemoveMember(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tenant ID"})
	}
	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	if err := h.tenantService.RemoveMember(c.UserContext(), id, userID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Member removed"})
}
