package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/maintenance-service/internal/api/http/handlers"
	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Requests       *handlers.RequestsHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	app.Get("/vocabulary", handlers.Vocabulary)

	authGroup := app.Group("/auth")
	authGroup.Get("/bootstrap", cfg.Auth.Bootstrap)
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	authenticated := auth.RequireAnyRole()
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, authenticated, cfg.Auth.Me)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, authenticated, cfg.Auth.ChangePassword)

	managers := auth.RequireRole(domain.RoleSuperAdmin, domain.RoleManager)
	creators := auth.RequireRole(domain.RoleSuperAdmin, domain.RoleManager, domain.RoleRequester)

	requests := app.Group("/requests", cfg.AuthMiddleware.Handle, authenticated)
	requests.Get("/", cfg.Requests.List)
	requests.Post("/", creators, cfg.Requests.Create)
	requests.Get("/stats", cfg.Requests.Stats)
	requests.Get("/:id", cfg.Requests.Get)
	requests.Patch("/:id", managers, cfg.Requests.Update)
	requests.Delete("/:id", managers, cfg.Requests.Delete)
	requests.Post("/:id/assign", managers, cfg.Requests.Assign)
	requests.Post("/:id/actions/:action", cfg.Requests.PerformAction)
	requests.Get("/:id/comments", cfg.Requests.ListComments)
	requests.Post("/:id/comments", cfg.Requests.AddComment)
	requests.Get("/:id/history", cfg.Requests.History)

	app.Get("/technicians", cfg.AuthMiddleware.Handle, managers, cfg.Users.Technicians)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleSuperAdmin))
	admin.Get("/users", cfg.Users.List)
	admin.Get("/users/stats", cfg.Users.Stats)
	admin.Post("/users/activate", cfg.Users.BulkActivate)
	admin.Post("/users/deactivate", cfg.Users.BulkDeactivate)
	admin.Post("/users/:id/activate", cfg.Users.Activate)
	admin.Post("/users/:id/deactivate", cfg.Users.Deactivate)
	admin.Put("/users/:id/role", cfg.Users.SetRole)
	admin.Patch("/users/:id", cfg.Users.UpdateProfile)
	admin.Delete("/users/:id", cfg.Users.Delete)
}
