package roles

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/librettoapp/libretto/pkg/auth"
	"github.com/librettoapp/libretto/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers role routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) {
	svc := NewService(db)

	g.GET("/roles", func(c echo.Context) error {
		roles, err := svc.ListRoles(c.Request().Context())
		if err != nil {
			return errors.WithStack(err)
		}

		resp := struct {
			Roles []*models.Role `json:"roles"`
		}{roles}

		return errors.WithStack(c.JSON(http.StatusOK, resp))
	}, authMiddleware.Authenticate, authMiddleware.RequireRole(models.RoleAdmin))
}
