package people

import (
	"github.com/labstack/echo/v4"
	"github.com/librettoapp/libretto/pkg/auth"
	"github.com/librettoapp/libretto/pkg/models"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers person routes on a pre-configured group.
// Member records are staff-only.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) {
	h := &handler{
		personService: NewService(db),
	}

	staff := []echo.MiddlewareFunc{
		authMiddleware.Authenticate,
		authMiddleware.RequireRole(models.RoleLibrarian, models.RoleAdmin),
	}

	g.GET("/persons", h.search, staff...)
	g.POST("/persons", h.create, staff...)
	g.GET("/persons/:id", h.retrieve, staff...)
}
