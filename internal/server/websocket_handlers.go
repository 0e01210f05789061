package server

import (
	"blogcms/internal/middleware"
	"blogcms/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// upgradeRequired rejects plain HTTP requests on websocket routes.
func (s *Server) upgradeRequired(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(models.ErrorResponse{Error: "Websocket upgrade required"})
	}
	return c.Next()
}

// AdminEventsHandler streams admin events (new comments, moderation, feed
// syncs, uploads) to a connected dashboard. Authentication and the admin
// check run before the upgrade.
func (s *Server) AdminEventsHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		accountID, ok := conn.Locals("accountID").(uint)
		if !ok {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(accountID, conn)
		if err != nil {
			middleware.Logger.Warn("admin websocket rejected", "account_id", accountID, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		middleware.Logger.Info("admin websocket connected", "account_id", accountID, "clients", s.hub.Count())

		// The fiber handler must not return while the connection is in use.
		go client.WritePump()
		client.ReadPump()
	})
}
