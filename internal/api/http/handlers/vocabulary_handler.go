package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
)

// Vocabulary GET /vocabulary.
func Vocabulary(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": dto.NewVocabularyResponse(languageOf(c))})
}
