package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-pos-ws/internal/model"
	"go-pos-ws/internal/service"
	"go-pos-ws/pkg/jwt"
	"go-pos-ws/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFail_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&validator.Error{Fields: []*validator.ErrorResponse{{FailedField: "Product.Code", Tag: "required"}}}, http.StatusBadRequest},
		{&service.InsufficientStockError{Shortages: []service.Shortage{{ProductID: uuid.New()}}}, http.StatusConflict},
		{fmt.Errorf("load: %w", service.ErrProductNotFound), http.StatusNotFound},
		{service.ErrTenantNotFound, http.StatusNotFound},
		{service.ErrDuplicateCode, http.StatusConflict},
		{service.ErrSaleAlreadyCancelled, http.StatusConflict},
		{service.ErrInvalidQuantity, http.StatusBadRequest},
		{service.ErrSelfDeactivation, http.StatusBadRequest},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{jwt.ErrInvalidToken, http.StatusUnauthorized},
		{service.ErrSignupDisabled, http.StatusForbidden},
		{service.ErrTenantUnavailable, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	core, logs := observer.New(zapcore.ErrorLevel)
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.New(core))})
			app.Get("/", func(c *fiber.Ctx) error { return fail(c, tc.err) })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}

	// Only the unknown error reaches the log, and its text is not leaked.
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].ContextMap()["error"], "disk on fire")
}

type mockAuth struct {
	mock.Mock
}

func (m *mockAuth) Signup(ctx context.Context, req *service.SignupRequest) (*service.LoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResponse), args.Error(1)
}

func (m *mockAuth) Login(ctx context.Context, email, password string) (*service.LoginResponse, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResponse), args.Error(1)
}

func (m *mockAuth) Session(ctx context.Context, token string) (*service.SessionResponse, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SessionResponse), args.Error(1)
}

func (m *mockAuth) Logout(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockAuth) ResetPassword(ctx context.Context, email, oldPassword, newPassword string) error {
	return m.Called(ctx, email, oldPassword, newPassword).Error(0)
}

func (m *mockAuth) ValidateToken(ctx context.Context, token string) (*service.SessionResponse, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SessionResponse), args.Error(1)
}

func (m *mockAuth) Authenticate(ctx context.Context, token string) (*model.User, *jwt.Claims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.User), args.Get(1).(*jwt.Claims), args.Error(2)
}

func (m *mockAuth) Heartbeat(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockAuth) SelectTenant(ctx context.Context, userID, tenantID uuid.UUID) (*service.LoginResponse, error) {
	args := m.Called(ctx, userID, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResponse), args.Error(1)
}

func TestAuthHandler_Login(t *testing.T) {
	auth := new(mockAuth)
	h := NewAuthHandler(auth)
	app := fiber.New()
	app.Post("/login", h.Login)

	post := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusBadRequest, post(`{"email":""}`))
	assert.Equal(t, http.StatusBadRequest, post(`{not json`))
	auth.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)

	auth.On("Login", mock.Anything, "a@example.com", "wrong").Return(nil, service.ErrInvalidCredentials).Once()
	assert.Equal(t, http.StatusUnauthorized, post(`{"email":"a@example.com","password":"wrong"}`))

	auth.On("Login", mock.Anything, "a@example.com", "right").Return(&service.LoginResponse{Token: "tok"}, nil).Once()
	assert.Equal(t, http.StatusOK, post(`{"email":"a@example.com","password":"right"}`))

	auth.AssertExpectations(t)
}
