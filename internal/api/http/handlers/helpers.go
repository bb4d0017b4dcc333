package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/domain"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

const languageKey = "display_language"

// LanguageMiddleware negotiates the display language from Accept-Language.
func LanguageMiddleware(fallback domain.Language) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(languageKey, domain.ParseLanguage(c.Get(fiber.HeaderAcceptLanguage), fallback))
		return c.Next()
	}
}

func languageOf(c *fiber.Ctx) domain.Language {
	if lang, ok := c.Locals(languageKey).(domain.Language); ok {
		return lang
	}
	return domain.LanguageEnglish
}

func sessionOf(c *fiber.Ctx) (domain.Session, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.Session{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Session(), nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

// parsePage reads page (1-based) and page_size and returns limit and offset.
func parsePage(c *fiber.Ctx) (page, size, offset int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	size, _ = strconv.Atoi(c.Query("page_size", "20"))
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size, (page - 1) * size
}

// parseTime accepts RFC 3339 timestamps or plain dates.
func parseTime(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.NewValidationError("invalid "+field, map[string]any{field: raw})
}
