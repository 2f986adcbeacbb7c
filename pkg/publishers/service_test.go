package publishers

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

func TestListPublishers(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	ace := &models.Publisher{Name: "Ace"}
	harper := &models.Publisher{Name: "HarperCollins"}
	_, err := db.NewInsert().Model(harper).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(ace).Exec(ctx)
	require.NoError(t, err)

	book := &models.Book{Title: "Dune"}
	_, err = db.NewInsert().Model(book).Exec(ctx)
	require.NoError(t, err)
	language := &models.Language{Name: "English"}
	_, err = db.NewInsert().Model(language).Exec(ctx)
	require.NoError(t, err)
	pub := &models.Publication{BookID: book.ID, PublisherID: ace.ID, LanguageID: language.ID, ISBN: "9780441013593", Year: 1965, EditionNumber: 1, PageCount: 412}
	_, err = db.NewInsert().Model(pub).Exec(ctx)
	require.NoError(t, err)

	publishers, err := svc.ListPublishers(ctx)
	require.NoError(t, err)
	require.Len(t, publishers, 2)
	assert.Equal(t, "Ace", publishers[0].Name)
	assert.Equal(t, 1, publishers[0].PublicationCount)
	assert.Equal(t, "HarperCollins", publishers[1].Name)
	assert.Equal(t, 0, publishers[1].PublicationCount)
}

func TestRetrievePublisher(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	ace := &models.Publisher{Name: "Ace"}
	_, err := db.NewInsert().Model(ace).Exec(ctx)
	require.NoError(t, err)

	publisher, err := svc.RetrievePublisher(ctx, ace.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ace", publisher.Name)

	_, err = svc.RetrievePublisher(ctx, 999999)
	require.Error(t, err)
}
