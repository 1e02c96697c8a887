package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Sessions       *handlers.SessionsHandler
	Users          *handlers.UsersHandler
	Calls          *handlers.CallsHandler
	Technicians    *handlers.TechniciansHandler
	Services       *handlers.ServicesHandler
	Clients        *handlers.ClientsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/users", cfg.Users.Register)
	app.Post("/sessions", cfg.Sessions.Login)

	authed := cfg.AuthMiddleware.Handle

	users := app.Group("/users", authed, auth.RequireAuthenticated())
	users.Get("/profile", cfg.Users.Profile)
	users.Patch("/profile", cfg.Users.UpdateProfile)
	users.Patch("/profile/password", cfg.Users.ChangePassword)

	calls := app.Group("/calls", authed, auth.RequireAuthenticated())
	calls.Post("/", auth.RequireRole(domain.RoleClient), cfg.Calls.Create)
	calls.Get("/", cfg.Calls.List)
	calls.Get("/availability", cfg.Calls.Availability)
	calls.Get("/:id", cfg.Calls.Get)
	calls.Patch("/:id/status", auth.RequireRole(domain.RoleTechnician, domain.RoleAdmin), cfg.Calls.UpdateStatus)
	calls.Post("/:id/services", auth.RequireRole(domain.RoleTechnician, domain.RoleAdmin), cfg.Calls.AddService)
	calls.Delete("/:id/services/:serviceId", auth.RequireRole(domain.RoleTechnician, domain.RoleAdmin), cfg.Calls.RemoveService)
	calls.Patch("/:id/additional-services", auth.RequireRole(domain.RoleTechnician, domain.RoleAdmin), cfg.Calls.ReplaceAdditionalServices)
	calls.Delete("/:id", cfg.Calls.Delete)

	technicians := app.Group("/technicians", authed, auth.RequireRole(domain.RoleAdmin))
	technicians.Post("/", cfg.Technicians.Create)
	technicians.Get("/", cfg.Technicians.List)
	technicians.Get("/:id", cfg.Technicians.Get)
	technicians.Put("/:id", cfg.Technicians.Update)
	technicians.Delete("/:id", cfg.Technicians.Delete)

	services := app.Group("/services", authed, auth.RequireAuthenticated())
	services.Get("/", cfg.Services.List)
	services.Post("/", auth.RequireRole(domain.RoleAdmin), cfg.Services.Create)
	services.Get("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Services.Get)
	services.Put("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Services.Update)
	services.Patch("/:id/status", auth.RequireRole(domain.RoleAdmin), cfg.Services.UpdateStatus)
	services.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Services.Delete)

	clients := app.Group("/clients", authed, auth.RequireAuthenticated())
	clients.Get("/", auth.RequireRole(domain.RoleAdmin), cfg.Clients.List)
	clients.Get("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Clients.Get)
	clients.Put("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Clients.Update)
	clients.Delete("/:id", cfg.Clients.Delete)
}
