package genres

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

// GenreWithCount is a genre plus how many books carry it, for the filter
// dropdown.
type GenreWithCount struct {
	models.Genre
	BookCount int `bun:"book_count" json:"book_count"`
}

// ListGenres returns all genres ordered by name, each with its book count.
func (svc *Service) ListGenres(ctx context.Context) ([]*GenreWithCount, error) {
	genres := []*GenreWithCount{}
	err := svc.db.NewSelect().
		Model(&genres).
		ModelTableExpr("genres AS g").
		ColumnExpr("g.*").
		ColumnExpr("(SELECT COUNT(*) FROM book_genres bg WHERE bg.genre_id = g.id) AS book_count").
		OrderExpr("g.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return genres, nil
}

func (svc *Service) RetrieveGenre(ctx context.Context, id int) (*models.Genre, error) {
	genre := &models.Genre{}
	err := svc.db.NewSelect().
		Model(genre).
		Where("g.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Genre")
		}
		return nil, errors.WithStack(err)
	}
	return genre, nil
}
