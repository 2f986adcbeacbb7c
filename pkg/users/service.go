package users

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

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

type CreateUserOptions struct {
	PersonID int
	Email    string
	RoleName string
}

// CreateUser grants an existing person a system account with the given
// role. One account per person and per email.
func (svc *Service) CreateUser(ctx context.Context, opts CreateUserOptions) (*models.User, error) {
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

	role := &models.Role{}
	err = svc.db.NewSelect().
		Model(role).
		Where("ro.name = ?", opts.RoleName).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Role")
		}
		return nil, errors.WithStack(err)
	}

	email := strings.TrimSpace(opts.Email)
	if email == "" {
		email = person.Email
	}

	exists, err := svc.db.NewSelect().
		Model((*models.User)(nil)).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.WhereOr("u.person_id = ?", person.ID).
				WhereOr("u.email = ? COLLATE NOCASE", email)
		}).
		Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if exists {
		return nil, errcodes.Conflict("This person already has an account.")
	}

	now := time.Now()
	user := &models.User{
		PersonID:  person.ID,
		Email:     email,
		RoleID:    role.ID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = svc.db.NewInsert().
		Model(user).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	user.Person = person
	user.Role = role
	return user, nil
}

// ListUsers returns all accounts with their person and role loaded.
func (svc *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	users := []*models.User{}
	err := svc.db.NewSelect().
		Model(&users).
		Relation("Person").
		Relation("Role").
		OrderExpr("u.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return users, nil
}

// SetActive enables or disables an account. Disabled accounts fail
// authentication immediately.
func (svc *Service) SetActive(ctx context.Context, id int, active bool) (*models.User, error) {
	user := &models.User{}
	err := svc.db.NewSelect().
		Model(user).
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}

	user.IsActive = active
	user.UpdatedAt = time.Now()
	_, err = svc.db.NewUpdate().
		Model(user).
		Column("is_active", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return user, nil
}
