package loans

import (
	"github.com/labstack/echo/v4"
	"github.com/librettoapp/libretto/pkg/auth"
	"github.com/librettoapp/libretto/pkg/config"
	"github.com/librettoapp/libretto/pkg/models"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers loan routes on a pre-configured group.
// All loan operations require librarian or admin access.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, cfg *config.Config, authMiddleware *auth.Middleware) {
	h := &handler{
		loanService: NewService(db, cfg.LoanPeriodDays),
	}

	staff := []echo.MiddlewareFunc{
		authMiddleware.Authenticate,
		authMiddleware.RequireRole(models.RoleLibrarian, models.RoleAdmin),
	}

	g.GET("/loans", h.list, staff...)
	g.POST("/loans", h.checkout, staff...)
	g.POST("/loans/:id/return", h.returnLoan, staff...)
	g.GET("/reservations", h.listReservations, staff...)
	g.POST("/reservations", h.reserve, staff...)
	g.POST("/reservations/:id/cancel", h.cancelReservation, staff...)
}
