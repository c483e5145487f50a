package handlers

import (
	fiber "github.com/gofiber/fiber/v2"
)

// Health reports that the server is up
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}
