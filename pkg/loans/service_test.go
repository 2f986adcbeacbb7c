package loans

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/librettoapp/libretto/pkg/errcodes"
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

type loanFixture struct {
	person      *models.Person
	publication *models.Publication
	copies      []*models.Copy
}

func seedLoanFixture(t *testing.T, db *bun.DB, copyCount int) *loanFixture {
	t.Helper()
	ctx := context.Background()

	insert := func(m interface{}) {
		_, err := db.NewInsert().Model(m).Exec(ctx)
		require.NoError(t, err)
	}

	f := &loanFixture{}
	f.person = &models.Person{FirstName: "Ada", LastName: "Reader", Email: "ada@example.com"}
	insert(f.person)

	book := &models.Book{Title: "Dune"}
	insert(book)
	publisher := &models.Publisher{Name: "Ace"}
	insert(publisher)
	language := &models.Language{Name: "English"}
	insert(language)

	f.publication = &models.Publication{BookID: book.ID, PublisherID: publisher.ID, LanguageID: language.ID, ISBN: "9780441013593", Year: 1965, EditionNumber: 1, PageCount: 412}
	insert(f.publication)

	for i := 0; i < copyCount; i++ {
		c := &models.Copy{PublicationID: f.publication.ID}
		insert(c)
		f.copies = append(f.copies, c)
	}

	return f
}

func TestCheckout(t *testing.T) {
	db := setupTestDB(t)
	f := seedLoanFixture(t, db, 1)
	svc := NewService(db, 30)
	ctx := context.Background()

	loan, err := svc.Checkout(ctx, CheckoutOptions{PublicationID: f.publication.ID, PersonID: f.person.ID})
	require.NoError(t, err)

	assert.NotEmpty(t, loan.Reference)
	assert.Equal(t, f.copies[0].ID, loan.CopyID)
	assert.Equal(t, f.person.ID, loan.PersonID)
	assert.Nil(t, loan.ReturnedAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), loan.DueAt, time.Minute)

	// The only copy is now out.
	_, err = svc.Checkout(ctx, CheckoutOptions{PublicationID: f.publication.ID, PersonID: f.person.ID})
	require.Error(t, err)
	var e *errcodes.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 409, e.HTTPCode)
}

func TestCheckoutUnknownPerson(t *testing.T) {
	db := setupTestDB(t)
	f := seedLoanFixture(t, db, 1)
	svc := NewService(db, 30)

	_, err := svc.Checkout(context.Background(), CheckoutOptions{PublicationID: f.publication.ID, PersonID: 999999})
	require.Error(t, err)
	var e *errcodes.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 404, e.HTTPCode)
}

func TestCheckoutPicksFreeCopy(t *testing.T) {
	db := setupTestDB(t)
	f := seedLoanFixture(t, db, 2)
	svc := NewService(db, 30)
	ctx := context.Background()

	first, err := svc.Checkout(ctx, CheckoutOptions{PublicationID: f.publication.ID, PersonID: f.person.ID})
	require.NoError(t, err)
	second, err := svc.Checkout(ctx, CheckoutOptions{PublicationID: f.publication.ID, PersonID: f.person.ID})
	require.NoError(t, err)

	assert.NotEqual(t, first.CopyID, second.CopyID)
}

func TestReturn(t *testing.T) {
	db := setupTestDB(t)
	f := seedLoanFixture(t, db, 1)
	svc := NewService(db, 30)
	ctx := context.Background()

	loan, err := svc.Checkout(ctx, CheckoutOptions{PublicationID: f.publication.ID, PersonID: f.person.ID})
	require.NoError(t, err)

	returned, err := svc.Return(ctx, loan.ID)
	require.NoError(t, err)
	require.NotNil(t, returned.ReturnedAt)
	assert.Nil(t, returned.FineID)

	// Returning twice is a conflict.
	_, err = svc.Return(ctx, loan.ID)
	require.Error(t, err)
	var e *errcodes.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 409, e.HTTPCode)

	// The copy can immediately go out again.
	_, err = svc.Checkout(ctx, CheckoutOptions{PublicationID: f.publication.ID, PersonID: f.person.ID})
	require.NoError(t, err)
}

func TestReturnOverdueCreatesFine(t *testing.T) {
	db := setupTestDB(t)
	f := seedLoanFixture(t, db, 1)
	svc := NewService(db, 30)
	ctx := context.Background()

	// Seed an already-overdue loan directly.
	monthAgo := time.Now().AddDate(0, -2, 0)
	loan := &models.Loan{
		PersonID:  f.person.ID,
		CopyID:    f.copies[0].ID,
		Reference: "overdue-ref",
		LoanedAt:  monthAgo,
		DueAt:     monthAgo.AddDate(0, 1, 0),
	}
	_, err := db.NewInsert().Model(loan).Exec(ctx)
	require.NoError(t, err)

	returned, err := svc.Return(ctx, loan.ID)
	require.NoError(t, err)
	require.NotNil(t, returned.FineID)

	fine := &models.Fine{}
	err = db.NewSelect().Model(fine).Where("fi.id = ?", *returned.FineID).Scan(ctx)
	require.NoError(t, err)
	assert.Greater(t, fine.Amount, 0.0)
	require.NotNil(t, fine.Reason)
	assert.Equal(t, "Returned late", *fine.Reason)
}

func TestReturnUnknownLoan(t *testing.T) {
	db := setupTestDB(t)
	seedLoanFixture(t, db, 1)
	svc := NewService(db, 30)

	_, err := svc.Return(context.Background(), 999999)
	require.Error(t, err)
	var e *errcodes.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 404, e.HTTPCode)
}

func TestListLoans(t *testing.T) {
	db := setupTestDB(t)
	f := seedLoanFixture(t, db, 2)
	svc := NewService(db, 30)
	ctx := context.Background()

	first, err := svc.Checkout(ctx, CheckoutOptions{PublicationID: f.publication.ID, PersonID: f.person.ID})
	require.NoError(t, err)
	second, err := svc.Checkout(ctx, CheckoutOptions{PublicationID: f.publication.ID, PersonID: f.person.ID})
	require.NoError(t, err)
	_, err = svc.Return(ctx, first.ID)
	require.NoError(t, err)

	all, err := svc.ListLoans(ctx, ListLoansOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	// Relations come along for display.
	require.NotNil(t, all[0].Person)
	require.NotNil(t, all[0].Copy)
	require.NotNil(t, all[0].Copy.Publication)
	assert.Equal(t, "Dune", all[0].Copy.Publication.Book.Title)

	open, err := svc.ListLoans(ctx, ListLoansOptions{OpenOnly: true})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)

	tomorrow := time.Now().AddDate(0, 0, 1)
	none, err := svc.ListLoans(ctx, ListLoansOptions{LoanedFrom: &tomorrow})
	require.NoError(t, err)
	assert.Empty(t, none)
}
