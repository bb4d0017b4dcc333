package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository/memory"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	token, expiresAt, err := tm.GenerateToken("user-1", domain.RoleManager)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, domain.RoleManager, claims.Role)
}

func TestExpiredAndForeignTokensAreRejected(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	tm.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := tm.GenerateToken("user-1", domain.RoleManager)
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.ParseToken(token)
	assert.Error(t, err)

	other := NewTokenManager("other-secret", time.Hour)
	foreign, _, err := other.GenerateToken("user-1", domain.RoleSuperAdmin)
	require.NoError(t, err)
	_, err = tm.ParseToken(foreign)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "correct horse"))
	assert.Error(t, ComparePassword(hash, "wrong"))
}

func newTestApp(t *testing.T) (*fiber.App, *TokenManager, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	tm := NewTokenManager("secret", time.Hour)
	mw := NewAuthMiddleware(tm, store.Users())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"code": de.Code})
		},
	})
	app.Get("/admin", mw.Handle, RequireRole(domain.RoleSuperAdmin), func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		return c.SendString(principal.Session().UserID)
	})
	app.Get("/any", mw.Handle, RequireAnyRole(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	return app, tm, store
}

func TestMiddleware(t *testing.T) {
	app, tm, store := newTestApp(t)
	store.PutUser(&domain.User{ID: "admin", Email: "admin@example.com", Role: domain.RoleSuperAdmin, IsActive: true})
	store.PutUser(&domain.User{ID: "tech", Email: "tech@example.com", Role: domain.RoleTechnician, IsActive: true})
	store.PutUser(&domain.User{ID: "sleeper", Email: "sleeper@example.com", Role: domain.RoleRequester})

	call := func(path, userID string) int {
		req := httptest.NewRequest(fiber.MethodGet, path, nil)
		if userID != "" {
			token, _, err := tm.GenerateToken(userID, domain.RoleSuperAdmin)
			require.NoError(t, err)
			req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, call("/admin", "admin"))
	assert.Equal(t, fiber.StatusForbidden, call("/admin", "tech"), "role comes from the stored user, not the token")
	assert.Equal(t, fiber.StatusNoContent, call("/any", "tech"))
	assert.Equal(t, fiber.StatusForbidden, call("/any", "sleeper"))
	assert.Equal(t, fiber.StatusUnauthorized, call("/any", "ghost"))
	assert.Equal(t, fiber.StatusUnauthorized, call("/any", ""))
}
