package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-pos-ws/internal/cache"
	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/internal/service"
	"go-pos-ws/internal/tenant"
	"go-pos-ws/internal/testutil"
	"go-pos-ws/internal/ws"
	"go-pos-ws/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type env struct {
	app    *fiber.App
	db     *gorm.DB
	roles  repository.RoleRepository
	admin  string
	tenant *tenant.Registry
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	log := zap.NewNop()
	db := testutil.NewDB(t)

	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	tenantRepo := repository.NewTenantRepo(db)

	require.NoError(t, service.Seed(ctx, privilegeRepo, roleRepo, userRepo,
		service.SeedOptions{AdminEmail: "admin@example.com", AdminPassword: "admin123"}, log))

	hub := ws.NewHub(log, 1024)
	reports := cache.NewMemory()
	service.InvalidateReportsOnChange(hub, reports, log)

	registry := tenant.NewRegistry(db, tenantRepo, nil, nil, service.StackDeps{
		Feed:              hub,
		Cache:             reports,
		CacheTTL:          time.Minute,
		LowStockThreshold: 5,
		Logger:            log,
	}, log)

	authService := service.NewAuthService(userRepo, roleRepo, tenantRepo,
		jwt.NewManager("test-secret", time.Hour), hub, service.AuthOptions{AllowSignup: true})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(log)})
	RegisterRoutes(app, Deps{
		DB:          db,
		Auth:        authService,
		Users:       service.NewUserService(userRepo, privilegeRepo, roleRepo),
		Tenants:     service.NewTenantService(tenantRepo, userRepo, registry),
		Roles:       roleRepo,
		Privileges:  privilegeRepo,
		Stacks:      registry,
		Memberships: tenantRepo,
		Hub:         hub,
		Logger:      log,
	})

	e := &env{app: app, db: db, roles: roleRepo, tenant: registry}
	e.admin = e.login(t, "admin@example.com", "admin123")
	return e
}

// call sends body as JSON and decodes the response into out when out is
// not nil.
func (e *env) call(t *testing.T, method, path, token string, body, out interface{}) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (e *env) login(t *testing.T, email, password string) string {
	t.Helper()
	var resp service.LoginResponse
	status := e.call(t, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{"email": email, "password": password}, &resp)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// cashier creates a CASHIER account through the API and signs it in.
func (e *env) cashier(t *testing.T, email string) (string, string) {
	t.Helper()
	role, err := e.roles.FindByCode(context.Background(), model.RoleCashier)
	require.NoError(t, err)

	var created struct {
		Data model.Profile `json:"data"`
	}
	status := e.call(t, http.MethodPost, "/api/v1/users", e.admin, fiber.Map{
		"email":     email,
		"password":  "cashier123",
		"full_name": "Cashier",
		"role_id":   role.ID,
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	return created.Data.ID.String(), e.login(t, email, "cashier123")
}

type productBody struct {
	Data model.Product `json:"data"`
}

func (e *env) product(t *testing.T, code string, stock int, price string) model.Product {
	t.Helper()
	var out productBody
	status := e.call(t, http.MethodPost, "/api/v1/products", e.admin, fiber.Map{
		"code":     code,
		"name":     "Product " + code,
		"price":    price,
		"stock":    stock,
		"category": "general",
	}, &out)
	require.Equal(t, http.StatusCreated, status)
	return out.Data
}

type errorBody struct {
	Error     string             `json:"error"`
	Shortages []service.Shortage `json:"shortages"`
}
