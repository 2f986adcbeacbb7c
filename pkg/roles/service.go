package roles

import (
	"context"

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

// ListRoles returns the assignable roles.
func (svc *Service) ListRoles(ctx context.Context) ([]*models.Role, error) {
	roles := []*models.Role{}
	err := svc.db.NewSelect().
		Model(&roles).
		OrderExpr("ro.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return roles, nil
}
