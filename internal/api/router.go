package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/99minutos/identity-system/internal/api/handler"
	"github.com/99minutos/identity-system/internal/api/middleware"
	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
	"github.com/99minutos/identity-system/internal/infrastructure/http/handlers"
)

// Action names guarding the admin surface.
const (
	ActionManageRoles   = "manage_roles"
	ActionManageActions = "manage_actions"
	ActionManageUsers   = "manage_users"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Accounts    ports.AccountService
	Roles       ports.RoleService
	Actions     ports.ActionService
	Users       ports.UserAdminService
	Permissions ports.PermissionService
	Tokens      ports.TokenVerifier
	Checks      []handlers.Check
	Service     string
	Logger      zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(echoprometheus.NewMiddleware("identity"))

	// --- Ops ---
	handlers.Register(e, handlers.NewHealthHandler(d.Service), handlers.NewReadinessHandler(d.Checks...))
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/v1")
	authn := middleware.Auth(d.Tokens)

	authHandler := handler.NewAuthHandler(d.Accounts, d.Permissions)
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/verify-email", authHandler.VerifyEmail)
	auth.POST("/resend-verification", authHandler.ResendVerification)
	auth.POST("/login", authHandler.Login)

	v1.GET("/me/actions", authHandler.MyActions, authn)

	admin := v1.Group("/admin", authn)

	roleHandler := handler.NewRoleHandler(d.Roles)
	roles := admin.Group("/roles", middleware.RequireAction(d.Permissions, ActionManageRoles))
	roles.POST("", roleHandler.Create)
	roles.GET("", roleHandler.List)
	roles.GET("/:roleId", roleHandler.Get)
	roles.PUT("/:roleId", roleHandler.Update)
	roles.DELETE("/:roleId", roleHandler.Delete)
	roles.POST("/:roleId/actions", roleHandler.AddAction)
	roles.DELETE("/:roleId/actions/:actionId", roleHandler.RemoveAction)

	actionHandler := handler.NewActionHandler(d.Actions)
	actions := admin.Group("/actions", middleware.RequireAction(d.Permissions, ActionManageActions))
	actions.POST("", actionHandler.Create)
	actions.GET("", actionHandler.List)
	actions.GET("/by-category", actionHandler.ByCategory)
	actions.GET("/:actionId", actionHandler.Get)
	actions.PUT("/:actionId", actionHandler.Update)
	actions.DELETE("/:actionId", actionHandler.Delete)

	userHandler := handler.NewUserHandler(d.Users)
	users := admin.Group("/users", middleware.RequireAction(d.Permissions, ActionManageUsers))
	adminOnly := middleware.RBAC(domain.AdminRoleName)
	users.GET("", userHandler.List)
	users.DELETE("", userHandler.Delete, adminOnly)
	users.DELETE("/:userId", userHandler.Delete, adminOnly)
	users.PUT("/:userId/role", userHandler.AssignRole)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
