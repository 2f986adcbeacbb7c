package publications

import (
	"github.com/labstack/echo/v4"
	"github.com/librettoapp/libretto/pkg/auth"
	"github.com/librettoapp/libretto/pkg/models"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers publication routes on a pre-configured
// group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, authMiddleware *auth.Middleware) {
	h := &handler{
		publicationService: NewService(db),
	}

	g.GET("/publications", h.list)
	g.GET("/publications/count", h.count)
	g.GET("/publications/image_ids", h.images)
	g.GET("/publications/details/:id", h.details)
	g.GET("/publications/:id", h.retrieve)
	g.POST("/publications/:id/cover", h.uploadCover, authMiddleware.Authenticate, authMiddleware.RequireRole(models.RoleLibrarian, models.RoleAdmin))
}
