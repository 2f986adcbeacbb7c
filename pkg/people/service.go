package people

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/librettoapp/libretto/pkg/errcodes"
	"github.com/librettoapp/libretto/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// emailSearchLimit bounds the typeahead result list.
const emailSearchLimit = 10

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

type CreatePersonOptions struct {
	FirstName string
	LastName  string
	Email     string
	Phone     *string
}

// CreatePerson registers a new library member. Emails are unique,
// case-insensitively.
func (svc *Service) CreatePerson(ctx context.Context, opts CreatePersonOptions) (*models.Person, error) {
	email := strings.TrimSpace(opts.Email)

	exists, err := svc.db.NewSelect().
		Model((*models.Person)(nil)).
		Where("pe.email = ? COLLATE NOCASE", email).
		Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if exists {
		return nil, errcodes.Conflict("A person with this email already exists.")
	}

	now := time.Now()
	person := &models.Person{
		FirstName: strings.TrimSpace(opts.FirstName),
		LastName:  strings.TrimSpace(opts.LastName),
		Email:     email,
		Phone:     opts.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = svc.db.NewInsert().
		Model(person).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return person, nil
}

// RetrievePerson returns one person by id.
func (svc *Service) RetrievePerson(ctx context.Context, id int) (*models.Person, error) {
	person := &models.Person{}
	err := svc.db.NewSelect().
		Model(person).
		Where("pe.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Person")
		}
		return nil, errors.WithStack(err)
	}
	return person, nil
}

// SearchByEmail returns up to ten people whose email starts with the given
// prefix. A blank prefix returns nothing without touching the store.
func (svc *Service) SearchByEmail(ctx context.Context, prefix string) ([]*models.Person, error) {
	prefix = strings.TrimSpace(prefix)
	persons := []*models.Person{}
	if prefix == "" {
		return persons, nil
	}

	err := svc.db.NewSelect().
		Model(&persons).
		Where("pe.email LIKE ? COLLATE NOCASE", prefix+"%").
		OrderExpr("pe.email ASC, pe.id ASC").
		Limit(emailSearchLimit).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return persons, nil
}
