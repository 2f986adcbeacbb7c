package users

import (
	"github.com/labstack/echo/v4"
	"github.com/librettoapp/libretto/pkg/auth"
	"github.com/librettoapp/libretto/pkg/models"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers account management routes on a
// pre-configured group. Admin only.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) {
	h := &handler{
		userService: NewService(db),
	}

	admin := []echo.MiddlewareFunc{
		authMiddleware.Authenticate,
		authMiddleware.RequireRole(models.RoleAdmin),
	}

	g.GET("/users", h.list, admin...)
	g.POST("/users", h.create, admin...)
	g.PATCH("/users/:id/active", h.setActive, admin...)
}
