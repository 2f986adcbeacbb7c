package publishers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/librettoapp/libretto/pkg/errcodes"
	"github.com/pkg/errors"
)

type handler struct {
	publisherService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	publishers, err := h.publisherService.ListPublishers(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Publishers []*PublisherWithCount `json:"publishers"`
	}{publishers}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Publisher")
	}

	publisher, err := h.publisherService.RetrievePublisher(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, publisher))
}
