package users

import (
	"context"
	"database/sql"
	"testing"

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

func createPerson(t *testing.T, db *bun.DB, email string) *models.Person {
	t.Helper()
	person := &models.Person{FirstName: "Ada", LastName: "Reader", Email: email}
	_, err := db.NewInsert().Model(person).Exec(context.Background())
	require.NoError(t, err)
	return person
}

func TestCreateUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	person := createPerson(t, db, "ada@example.com")

	user, err := svc.CreateUser(ctx, CreateUserOptions{PersonID: person.ID, RoleName: models.RoleLibrarian})
	require.NoError(t, err)
	assert.Equal(t, person.ID, user.PersonID)
	// Email defaults to the person's when omitted.
	assert.Equal(t, "ada@example.com", user.Email)
	assert.True(t, user.IsActive)
	require.NotNil(t, user.Role)
	assert.Equal(t, models.RoleLibrarian, user.Role.Name)

	// One account per person.
	_, err = svc.CreateUser(ctx, CreateUserOptions{PersonID: person.ID, RoleName: models.RoleReader})
	require.Error(t, err)
	var e *errcodes.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 409, e.HTTPCode)
}

func TestCreateUserUnknownPersonOrRole(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserOptions{PersonID: 999999, RoleName: models.RoleReader})
	require.Error(t, err)

	person := createPerson(t, db, "ada@example.com")
	_, err = svc.CreateUser(ctx, CreateUserOptions{PersonID: person.ID, RoleName: "superuser"})
	require.Error(t, err)
}

func TestSetActive(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	person := createPerson(t, db, "ada@example.com")
	user, err := svc.CreateUser(ctx, CreateUserOptions{PersonID: person.ID, RoleName: models.RoleReader})
	require.NoError(t, err)

	disabled, err := svc.SetActive(ctx, user.ID, false)
	require.NoError(t, err)
	assert.False(t, disabled.IsActive)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.False(t, users[0].IsActive)
	require.NotNil(t, users[0].Person)
}
