package publications

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/librettoapp/libretto/pkg/errcodes"
	"github.com/pkg/errors"
)

type handler struct {
	publicationService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListPublicationsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	rows, err := h.publicationService.ListPublications(ctx, ListOptions{
		Availability: ParseAvailability(params.Availability),
		Sort:         ParseSort(params.Sort),
		BookID:       params.BookID,
		AuthorID:     params.AuthorID,
		GenreID:      params.GenreID,
		PageNumber:   params.PageNumber,
		PageSize:     params.PageSize,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Publications []*Row `json:"publications"`
	}{rows}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) count(c echo.Context) error {
	ctx := c.Request().Context()

	params := CountPublicationsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	availability := AvailabilityAll
	if params.OnlyAvailable {
		availability = AvailabilityAvailableOnly
	}

	total, err := h.publicationService.CountPublications(ctx, ListOptions{
		Availability: availability,
		BookID:       params.BookID,
		AuthorID:     params.AuthorID,
		GenreID:      params.GenreID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Total int `json:"total"`
	}{total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Publication")
	}

	row, err := h.publicationService.RetrievePublication(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, row))
}

func (h *handler) details(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Publication")
	}

	details, err := h.publicationService.RetrieveDetails(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, details))
}

func (h *handler) images(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListImagesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	images, err := h.publicationService.ImagesByIDs(ctx, params.IDs)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Images []*Image `json:"images"`
	}{images}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) uploadCover(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Publication")
	}

	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return errors.WithStack(err)
	}

	imageID, err := h.publicationService.UploadCover(ctx, id, data)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		ImageID int `json:"image_id"`
	}{imageID}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
