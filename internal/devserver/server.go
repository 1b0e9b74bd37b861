package devserver

import (
	"community_chat_client/internal/chat/domain"
	"community_chat_client/pkg/logger"
	"community_chat_client/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// RegisterRoutes wires the REST document API and the websocket channel
// onto a fiber app. Everything sits behind the JWT middleware; the
// upgrade carries the token in the auth query parameter.
func RegisterRoutes(r *fiber.App, store *Store, hub *Hub, log *logger.LogInfo) {
	r.Use(middlewares.JWTMiddleware())

	api := r.Group("/api")

	api.Get("/rooms/:roomID/messages", func(c *fiber.Ctx) error {
		return c.JSON(store.Messages(c.Params("roomID")))
	})

	api.Get("/users/:id", func(c *fiber.Ctx) error {
		profile, ok := store.Profile(c.Params("id"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "unknown user",
			})
		}
		return c.JSON(profile)
	})

	api.Patch("/rooms/:roomID/messages/:id", func(c *fiber.Ctx) error {
		var body struct {
			NewText string `json:"new_text"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "bad request body",
			})
		}

		roomID, messageID := c.Params("roomID"), c.Params("id")
		if !store.Edit(roomID, messageID, body.NewText) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "unknown message",
			})
		}
		log.Debug("message edited",
			zap.String("roomID", roomID), zap.String("messageID", messageID))
		return c.SendStatus(fiber.StatusNoContent)
	})

	api.Delete("/rooms/:roomID/messages", func(c *fiber.Ctx) error {
		var body struct {
			MessageIDs []string `json:"message_ids"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "bad request body",
			})
		}

		store.Delete(c.Params("roomID"), body.MessageIDs)
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c)
	}))
}

// SeedDemoUsers loads the two demo profiles used by the CLI walkthrough
func SeedDemoUsers(store *Store) {
	store.SeedProfile(domain.UserProfile{
		ID:          "alice",
		DisplayName: "Alice",
		Role:        "member",
	})
	store.SeedProfile(domain.UserProfile{
		ID:          "bob",
		DisplayName: "Bob",
		Role:        "member",
	})
}
