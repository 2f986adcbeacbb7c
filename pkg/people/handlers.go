package people

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/librettoapp/libretto/pkg/errcodes"
	"github.com/librettoapp/libretto/pkg/models"
	"github.com/pkg/errors"
)

type handler struct {
	personService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	payload := CreatePersonPayload{}
	if err := c.Bind(&payload); err != nil {
		return errors.WithStack(err)
	}

	person, err := h.personService.CreatePerson(ctx, CreatePersonOptions{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Phone:     payload.Phone,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, person))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Person")
	}

	person, err := h.personService.RetrievePerson(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, person))
}

func (h *handler) search(c echo.Context) error {
	ctx := c.Request().Context()

	params := SearchPeopleQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	persons, err := h.personService.SearchByEmail(ctx, params.Email)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Persons []*models.Person `json:"persons"`
	}{persons}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
