package loans

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/librettoapp/libretto/pkg/errcodes"
	"github.com/librettoapp/libretto/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

const (
	// DefaultLoanPeriodDays is the loan period used when config doesn't
	// override it.
	DefaultLoanPeriodDays = 30
	// FinePerDayCents is charged for each day a loan is overdue at return.
	FinePerDayCents = 50
)

type Service struct {
	db             *bun.DB
	loanPeriodDays int
}

func NewService(db *bun.DB, loanPeriodDays int) *Service {
	if loanPeriodDays <= 0 {
		loanPeriodDays = DefaultLoanPeriodDays
	}
	return &Service{db: db, loanPeriodDays: loanPeriodDays}
}

type CheckoutOptions struct {
	PublicationID int
	PersonID      int
}

// Checkout loans an available copy of the publication to the person. The
// copy is picked inside a transaction so two concurrent checkouts can't
// claim the same one.
func (svc *Service) Checkout(ctx context.Context, opts CheckoutOptions) (*models.Loan, error) {
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

	loan := &models.Loan{}
	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now()

		copyRow := &models.Copy{}
		err := tx.NewSelect().
			Model(copyRow).
			Where("c.publication_id = ?", opts.PublicationID).
			Where(`NOT EXISTS (
				SELECT 1 FROM loans l
				WHERE l.copy_id = c.id
				AND (l.returned_at IS NULL OR l.returned_at > ?)
			)`, now).
			OrderExpr("c.id ASC").
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.Conflict("No copy of this publication is currently available.")
			}
			return errors.WithStack(err)
		}

		loan.Reference = uuid.NewString()
		loan.CopyID = copyRow.ID
		loan.PersonID = opts.PersonID
		loan.LoanedAt = now
		loan.DueAt = now.AddDate(0, 0, svc.loanPeriodDays)
		loan.CreatedAt = now
		loan.UpdatedAt = now

		_, err = tx.NewInsert().
			Model(loan).
			Returning("*").
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return loan, nil
}

// Return closes an open loan. An overdue return also records a fine.
func (svc *Service) Return(ctx context.Context, loanID int) (*models.Loan, error) {
	loan := &models.Loan{}
	err := svc.db.NewSelect().
		Model(loan).
		Where("l.id = ?", loanID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Loan")
		}
		return nil, errors.WithStack(err)
	}

	now := time.Now()
	if !loan.Open(now) {
		return nil, errcodes.Conflict("This loan has already been returned.")
	}

	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		loan.ReturnedAt = &now
		loan.UpdatedAt = now

		if now.After(loan.DueAt) {
			daysLate := int(now.Sub(loan.DueAt).Hours()/24) + 1
			reason := "Returned late"
			fine := &models.Fine{
				Amount:    float64(daysLate*FinePerDayCents) / 100,
				Reason:    &reason,
				CreatedAt: now,
			}
			_, err := tx.NewInsert().
				Model(fine).
				Returning("*").
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			loan.FineID = &fine.ID
		}

		_, err := tx.NewUpdate().
			Model(loan).
			Column("returned_at", "fine_id", "updated_at").
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return loan, nil
}

type ListLoansOptions struct {
	PersonID   *int
	OpenOnly   bool
	LoanedFrom *time.Time
	LoanedTo   *time.Time
	Limit      *int
	Offset     *int
}

// ListLoans returns loans matching the filter, newest first.
func (svc *Service) ListLoans(ctx context.Context, opts ListLoansOptions) ([]*models.Loan, error) {
	loans := []*models.Loan{}
	q := svc.db.NewSelect().
		Model(&loans).
		Relation("Person").
		Relation("Copy").
		Relation("Copy.Publication").
		Relation("Copy.Publication.Book")

	if opts.PersonID != nil {
		q = q.Where("l.person_id = ?", *opts.PersonID)
	}
	if opts.OpenOnly {
		q = q.Where("l.returned_at IS NULL OR l.returned_at > ?", time.Now())
	}
	if opts.LoanedFrom != nil {
		q = q.Where("l.loaned_at >= ?", *opts.LoanedFrom)
	}
	if opts.LoanedTo != nil {
		q = q.Where("l.loaned_at < ?", *opts.LoanedTo)
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	err := q.OrderExpr("l.loaned_at DESC, l.id DESC").Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return loans, nil
}
