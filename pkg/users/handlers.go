package users

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/librettoapp/libretto/pkg/errcodes"
	"github.com/librettoapp/libretto/pkg/models"
	"github.com/pkg/errors"
)

type handler struct {
	userService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	payload := CreateUserPayload{}
	if err := c.Bind(&payload); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.CreateUser(ctx, CreateUserOptions{
		PersonID: payload.PersonID,
		Email:    payload.Email,
		RoleName: payload.Role,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, user))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	users, err := h.userService.ListUsers(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Users []*models.User `json:"users"`
	}{users}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) setActive(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	payload := SetActivePayload{}
	if err := c.Bind(&payload); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.SetActive(ctx, id, *payload.IsActive)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, user))
}
