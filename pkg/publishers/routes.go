package publishers

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers publisher routes on a pre-configured
// group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		publisherService: NewService(db),
	}

	g.GET("/publishers", h.list)
	g.GET("/publishers/:id", h.retrieve)
}
