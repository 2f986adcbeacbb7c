package genres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/librettoapp/libretto/pkg/migrations"
	"github.com/librettoapp/libretto/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestListGenres(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	fantasy := &models.Genre{Name: "Fantasy"}
	sciFi := &models.Genre{Name: "Science Fiction"}
	_, err := db.NewInsert().Model(fantasy).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(sciFi).Exec(ctx)
	require.NoError(t, err)

	book := &models.Book{Title: "Dune"}
	_, err = db.NewInsert().Model(book).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&models.BookGenre{BookID: book.ID, GenreID: sciFi.ID}).Exec(ctx)
	require.NoError(t, err)

	genres, err := svc.ListGenres(ctx)
	require.NoError(t, err)
	require.Len(t, genres, 2)
	assert.Equal(t, "Fantasy", genres[0].Name)
	assert.Equal(t, 0, genres[0].BookCount)
	assert.Equal(t, "Science Fiction", genres[1].Name)
	assert.Equal(t, 1, genres[1].BookCount)
}

func TestRetrieveGenre(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	fantasy := &models.Genre{Name: "Fantasy"}
	_, err := db.NewInsert().Model(fantasy).Exec(ctx)
	require.NoError(t, err)

	genre, err := svc.RetrieveGenre(ctx, fantasy.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fantasy", genre.Name)

	_, err = svc.RetrieveGenre(ctx, 999999)
	require.Error(t, err)
}
