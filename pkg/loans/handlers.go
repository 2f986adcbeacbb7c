package loans

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/librettoapp/libretto/pkg/errcodes"
	"github.com/librettoapp/libretto/pkg/models"
	"github.com/pkg/errors"
)

type handler struct {
	loanService *Service
}

func (h *handler) checkout(c echo.Context) error {
	ctx := c.Request().Context()

	payload := CheckoutPayload{}
	if err := c.Bind(&payload); err != nil {
		return errors.WithStack(err)
	}

	loan, err := h.loanService.Checkout(ctx, CheckoutOptions{
		PublicationID: payload.PublicationID,
		PersonID:      payload.PersonID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, loan))
}

func (h *handler) returnLoan(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Loan")
	}

	loan, err := h.loanService.Return(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, loan))
}

func (h *handler) reserve(c echo.Context) error {
	ctx := c.Request().Context()

	payload := ReservePayload{}
	if err := c.Bind(&payload); err != nil {
		return errors.WithStack(err)
	}

	reservation, err := h.loanService.Reserve(ctx, ReserveOptions{
		PublicationID: payload.PublicationID,
		PersonID:      payload.PersonID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, reservation))
}

func (h *handler) cancelReservation(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Reservation")
	}

	reservation, err := h.loanService.CancelReservation(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, reservation))
}

func (h *handler) listReservations(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListReservationsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	reservations, err := h.loanService.ListReservations(ctx, params.PublicationID)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Reservations []*models.Reservation `json:"reservations"`
	}{reservations}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListLoansQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := ListLoansOptions{
		PersonID: params.PersonID,
		OpenOnly: params.OpenOnly,
		Limit:    &params.Limit,
		Offset:   &params.Offset,
	}
	if params.LoanedFrom != nil {
		t, err := time.Parse("2006-01-02", *params.LoanedFrom)
		if err != nil {
			return errcodes.ValidationError(`"loaned_from" must be a valid date`)
		}
		opts.LoanedFrom = &t
	}
	if params.LoanedTo != nil {
		t, err := time.Parse("2006-01-02", *params.LoanedTo)
		if err != nil {
			return errcodes.ValidationError(`"loaned_to" must be a valid date`)
		}
		opts.LoanedTo = &t
	}

	loans, err := h.loanService.ListLoans(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Loans []*models.Loan `json:"loans"`
	}{loans}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
