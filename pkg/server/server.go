package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/librettoapp/libretto/pkg/auth"
	"github.com/librettoapp/libretto/pkg/binder"
	"github.com/librettoapp/libretto/pkg/config"
	"github.com/librettoapp/libretto/pkg/errcodes"
	"github.com/librettoapp/libretto/pkg/genres"
	"github.com/librettoapp/libretto/pkg/loans"
	"github.com/librettoapp/libretto/pkg/matchsearch"
	"github.com/librettoapp/libretto/pkg/people"
	"github.com/librettoapp/libretto/pkg/publications"
	"github.com/librettoapp/libretto/pkg/publishers"
	"github.com/librettoapp/libretto/pkg/roles"
	"github.com/librettoapp/libretto/pkg/users"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.FrontendURL},
	}))

	health.RegisterRoutes(e)

	authService := auth.NewService(db, cfg.JWTSecret)
	authMiddleware := auth.NewMiddleware(authService)

	api := e.Group("")
	publications.RegisterRoutesWithGroup(api, db, authMiddleware)
	matchsearch.RegisterRoutesWithGroup(api, db)
	people.RegisterRoutesWithGroup(api, db, authMiddleware)
	loans.RegisterRoutesWithGroup(api, db, cfg, authMiddleware)
	genres.RegisterRoutesWithGroup(api, db)
	publishers.RegisterRoutesWithGroup(api, db)
	users.RegisterRoutesWithGroup(api, db, authMiddleware)
	roles.RegisterRoutesWithGroup(api, db, authMiddleware)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	return errcodes.NotFound("Route")
}
