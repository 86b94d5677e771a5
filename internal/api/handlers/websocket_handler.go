package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/atavi-atlas/backend/internal/events"
)

// EventStream upgrades the connection and streams claim lifecycle events.
func EventStream(hub *events.Hub) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		hub.Serve(conn)
	})
}

// UpgradeRequired gates the websocket route for plain HTTP requests.
func UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}
