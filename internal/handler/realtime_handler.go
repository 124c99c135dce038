package handler

import (
	"go-pos-ws/internal/middleware"
	"go-pos-ws/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RealtimeHandler streams change events over a websocket. Clients connect to
// /ws?token=<jwt>&tables=products,sales and only see their tenant's events.
type RealtimeHandler struct {
	hub     *ws.Hub
	auth    middleware.Authenticator
	stacks  middleware.StackResolver
	members middleware.MembershipFinder
	log     *zap.Logger
}

func NewRealtimeHandler(hub *ws.Hub, auth middleware.Authenticator, stacks middleware.StackResolver,
	members middleware.MembershipFinder, log *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, auth: auth, stacks: stacks, members: members, log: log.Named("ws")}
}

// Upgrade authenticates the handshake and applies the same tenant checks as
// the REST routes. Browsers cannot set headers on a websocket, so the token
// may travel in the query string.
func (h *RealtimeHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.SendStatus(fiber.StatusUpgradeRequired)
	}

	token := c.Query("token")
	if token == "" {
		var err error
		if token, err = middleware.BearerToken(c); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authorization token"})
		}
	}

	user, claims, err := h.auth.Authenticate(c.UserContext(), token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	stack, err := middleware.AuthorizeTenant(c.UserContext(), h.stacks, h.members, user.ID, claims.TenantID)
	if err != nil {
		return middleware.TenantDenied(c, err)
	}

	// Events are filed under the stack's key, which tenants sharing the
	// primary database have in common with the default store.
	c.Locals(middleware.LocalUserID, user.ID.String())
	c.Locals(middleware.LocalTenantID, stack.TenantID)
	c.Locals("tables", c.Query("tables"))
	return c.Next()
}

// Serve registers the connection with the hub and keeps it open until the
// client goes away.
func (h *RealtimeHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(middleware.LocalUserID).(string)
		tenantID, _ := conn.Locals(middleware.LocalTenantID).(string)
		tables, _ := conn.Locals("tables").(string)

		client := ws.NewClient(conn, tenantID, userID, ws.ParseTables(tables))
		h.hub.Register <- client
		defer func() { h.hub.Unregister <- client }()

		for {
			// Keep alive loop
			if _, _, err := conn.ReadMessage(); err != nil {
				h.log.Debug("client disconnected", zap.String("user_id", userID), zap.Error(err))
				break
			}
		}
	})
}
