package scale

import (
	"time"

	"weighbridge-backend/internal/weighing"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type LiveResponse struct {
	Status
	Munds weighing.Munds `json:"munds"`
}

// GET /api/scale/live
func LiveHandler(h *Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, ok := h.Status()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "No live weight received yet")
		}
		return c.JSON(LiveResponse{Status: st, Munds: weighing.ToMunds(st.WeightKg)})
	}
}

// RequireUpgrade rejects plain HTTP requests on the WebSocket route.
func RequireUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// GET /api/scale/ws streams readings to a browser.
func StreamHandler(h *Hub) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		readings, cancel := h.Subscribe()
		defer cancel()

		// the browser never sends anything useful; reading detects the close
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case r, ok := <-readings:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(r); err != nil {
					return
				}
			}
		}
	})
}
