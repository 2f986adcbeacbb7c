package publishers

import (
	"context"
	"database/sql"

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

// PublisherWithCount is a publisher plus how many publications it has.
type PublisherWithCount struct {
	models.Publisher
	PublicationCount int `bun:"publication_count" json:"publication_count"`
}

// ListPublishers returns all publishers ordered by name.
func (svc *Service) ListPublishers(ctx context.Context) ([]*PublisherWithCount, error) {
	publishers := []*PublisherWithCount{}
	err := svc.db.NewSelect().
		Model(&publishers).
		ModelTableExpr("publishers AS pu").
		ColumnExpr("pu.*").
		ColumnExpr("(SELECT COUNT(*) FROM publications p WHERE p.publisher_id = pu.id) AS publication_count").
		OrderExpr("pu.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return publishers, nil
}

func (svc *Service) RetrievePublisher(ctx context.Context, id int) (*models.Publisher, error) {
	publisher := &models.Publisher{}
	err := svc.db.NewSelect().
		Model(publisher).
		Where("pu.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Publisher")
		}
		return nil, errors.WithStack(err)
	}
	return publisher, nil
}
