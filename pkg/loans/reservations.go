package loans

import (
	"context"
	"database/sql"
	"time"

	"github.com/librettoapp/libretto/pkg/errcodes"
	"github.com/librettoapp/libretto/pkg/models"
	"github.com/pkg/errors"
)

// DefaultReservationDays is how long a hold lasts before expiring.
const DefaultReservationDays = 7

type ReserveOptions struct {
	PublicationID int
	PersonID      int
}

// Reserve places a hold on a publication. Holds never block checkouts;
// they only mark interest so staff can set a copy aside when one comes
// back. A person can hold a given publication once at a time.
func (svc *Service) Reserve(ctx context.Context, opts ReserveOptions) (*models.Reservation, error) {
	person := &models.Person{}
	err := svc.db.NewSelect().
		Model(person).
		Where("pe.id = ?", opts.PersonID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Person")
		}
		return nil, errors.WithStack(err)
	}

	pub := &models.Publication{}
	err = svc.db.NewSelect().
		Model(pub).
		Where("p.id = ?", opts.PublicationID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Publication")
		}
		return nil, errors.WithStack(err)
	}

	now := time.Now()
	exists, err := svc.db.NewSelect().
		Model((*models.Reservation)(nil)).
		Where("r.person_id = ?", opts.PersonID).
		Where("r.publication_id = ?", opts.PublicationID).
		Where("r.canceled_at IS NULL").
		Where("r.expires_at > ?", now).
		Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if exists {
		return nil, errcodes.Conflict("This person already holds a reservation for this publication.")
	}

	reservation := &models.Reservation{
		PersonID:      opts.PersonID,
		PublicationID: opts.PublicationID,
		CreatedAt:     now,
		ExpiresAt:     now.AddDate(0, 0, DefaultReservationDays),
	}
	_, err = svc.db.NewInsert().
		Model(reservation).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return reservation, nil
}

// CancelReservation withdraws a hold.
func (svc *Service) CancelReservation(ctx context.Context, id int) (*models.Reservation, error) {
	reservation := &models.Reservation{}
	err := svc.db.NewSelect().
		Model(reservation).
		Where("r.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Reservation")
		}
		return nil, errors.WithStack(err)
	}

	if reservation.CanceledAt != nil {
		return nil, errcodes.Conflict("This reservation has already been canceled.")
	}

	now := time.Now()
	reservation.CanceledAt = &now
	_, err = svc.db.NewUpdate().
		Model(reservation).
		Column("canceled_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return reservation, nil
}

// ListReservations returns the active holds for a publication, oldest
// first, so staff can honor them in order.
func (svc *Service) ListReservations(ctx context.Context, publicationID int) ([]*models.Reservation, error) {
	reservations := []*models.Reservation{}
	err := svc.db.NewSelect().
		Model(&reservations).
		Relation("Person").
		Where("r.publication_id = ?", publicationID).
		Where("r.canceled_at IS NULL").
		Where("r.expires_at > ?", time.Now()).
		OrderExpr("r.created_at ASC, r.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return reservations, nil
}
