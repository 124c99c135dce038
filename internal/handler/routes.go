package handler

import (
	"go-pos-ws/internal/middleware"
	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/internal/service"
	"go-pos-ws/internal/ws"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps carries what the routes need. Hub may be nil, in which case the
// websocket endpoint is not mounted.
type Deps struct {
	DB          *gorm.DB
	Auth        service.AuthService
	Users       service.UserService
	Tenants     service.TenantService
	Roles       repository.RoleRepository
	Privileges  repository.PrivilegeRepository
	Stacks      middleware.StackResolver
	Memberships middleware.MembershipFinder
	Hub         *ws.Hub
	Logger      *zap.Logger
}

// RegisterRoutes mounts the REST API under /api/v1 plus /ws and /healthz.
func RegisterRoutes(app *fiber.App, d Deps) {
	authHandler := NewAuthHandler(d.Auth)
	productHandler := NewProductHandler()
	saleHandler := NewSaleHandler()
	reportHandler := NewReportHandler()
	userHandler := NewUserHandler(d.Users)
	roleHandler := NewRoleHandler(d.Roles, d.Privileges)
	tenantHandler := NewTenantHandler(d.Tenants)

	requireAuth := middleware.RequireAuth(d.Auth)
	resolveTenant := middleware.ResolveTenant(d.Stacks, d.Memberships)
	can := middleware.RequirePrivilege

	app.Get("/healthz", Health(d.DB))

	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/login", authHandler.Login)
	auth.Post("/reset-password", authHandler.ResetPassword)
	auth.Post("/validate-token", authHandler.ValidateToken)
	auth.Get("/session", requireAuth, authHandler.Session)
	auth.Post("/logout", requireAuth, authHandler.Logout)
	auth.Post("/heartbeat", requireAuth, authHandler.Heartbeat)
	auth.Post("/tenant", requireAuth, authHandler.SelectTenant)

	// ============ TENANT DATA ============
	productsGroup := api.Group("/products", requireAuth, resolveTenant)
	productsGroup.Get("/", can(model.PrivProductView), productHandler.GetProducts)
	productsGroup.Post("/", can(model.PrivProductCreate), productHandler.CreateProduct)
	productsGroup.Get("/search", can(model.PrivProductView), productHandler.SearchProducts)
	productsGroup.Get("/categories", can(model.PrivProductView), productHandler.GetCategories)
	productsGroup.Get("/:id", can(model.PrivProductView), productHandler.GetProduct)
	productsGroup.Put("/:id", can(model.PrivProductUpdate), productHandler.UpdateProduct)
	productsGroup.Delete("/:id", can(model.PrivProductDelete), productHandler.DeleteProduct)
	productsGroup.Get("/:id/stock-available", can(model.PrivProductView), productHandler.StockAvailable)
	productsGroup.Post("/:id/stock", can(model.PrivStockAdjust), productHandler.AdjustStock)

	salesGroup := api.Group("/sales", requireAuth, resolveTenant)
	salesGroup.Get("/", can(model.PrivSaleView), saleHandler.GetSales)
	salesGroup.Post("/", can(model.PrivSaleCreate), saleHandler.CreateSale)
	salesGroup.Get("/:id", can(model.PrivSaleView), saleHandler.GetSale)
	salesGroup.Post("/:id/cancel", can(model.PrivSaleCancel), saleHandler.CancelSale)

	reportsGroup := api.Group("/reports", requireAuth, resolveTenant, can(model.PrivReportView))
	reportsGroup.Get("/dashboard", reportHandler.GetDashboard)
	reportsGroup.Get("/daily-sales", reportHandler.GetDailySales)
	reportsGroup.Get("/top-products", reportHandler.GetTopProducts)
	reportsGroup.Get("/payment-methods", reportHandler.GetPaymentMethods)
	reportsGroup.Get("/low-stock", reportHandler.GetLowStock)

	// ============ CONTROL DATA ============
	users := api.Group("/users", requireAuth)
	users.Get("/", can(model.PrivUserView), userHandler.GetUsers)
	users.Post("/", can(model.PrivUserCreate), userHandler.CreateUser)
	users.Get("/:id", can(model.PrivUserView), userHandler.GetUser)
	users.Put("/:id", can(model.PrivUserUpdate), userHandler.UpdateUser)
	users.Delete("/:id", can(model.PrivUserDelete), userHandler.DeleteUser)
	users.Put("/:id/active", can(model.PrivUserUpdate), userHandler.SetActive)
	users.Put("/:id/privileges", can(model.PrivUserPrivilege), userHandler.UpdateUserPrivileges)

	userAdmin := middleware.RequireAnyPrivilege(model.PrivUserView, model.PrivUserCreate, model.PrivUserUpdate, model.PrivUserPrivilege)
	api.Get("/roles", requireAuth, userAdmin, roleHandler.GetRoles)
	api.Get("/privileges", requireAuth, userAdmin, roleHandler.GetPrivileges)

	tenants := api.Group("/tenants", requireAuth)
	tenants.Get("/", can(model.PrivTenantManage), tenantHandler.GetTenants)
	tenants.Post("/", can(model.PrivTenantManage), tenantHandler.CreateTenant)
	tenants.Get("/mine", tenantHandler.GetMyTenants)
	tenants.Get("/:id", can(model.PrivTenantView), tenantHandler.GetTenant)
	tenants.Put("/:id", can(model.PrivTenantManage), tenantHandler.UpdateTenant)
	tenants.Delete("/:id", can(model.PrivTenantManage), tenantHandler.DeleteTenant)
	tenants.Get("/:id/members", can(model.PrivTenantManage), tenantHandler.GetMembers)
	tenants.Post("/:id/members", can(model.PrivTenantManage), tenantHandler.AddMember)
	tenants.Delete("/:id/members/:user_id", can(model.PrivTenantManage), tenantHandler.RemoveMember)

	// WebSocket Route
	if d.Hub != nil {
		realtime := NewRealtimeHandler(d.Hub, d.Auth, d.Stacks, d.Memberships, d.Logger)
		app.Get("/ws", realtime.Upgrade, realtime.Serve())
	}
}
