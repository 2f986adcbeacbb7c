package auth

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
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

func createTestUser(t *testing.T, db *bun.DB, roleName string, active bool) *models.User {
	t.Helper()
	ctx := context.Background()

	person := &models.Person{FirstName: "Staff", LastName: "Member", Email: roleName + "@example.com"}
	_, err := db.NewInsert().Model(person).Exec(ctx)
	require.NoError(t, err)

	role := &models.Role{}
	err = db.NewSelect().Model(role).Where("ro.name = ?", roleName).Scan(ctx)
	require.NoError(t, err)

	user := &models.User{PersonID: person.ID, Email: person.Email, RoleID: role.ID, IsActive: active}
	_, err = db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	user.Role = role
	return user
}

func setupProtectedServer(t *testing.T, db *bun.DB) *echo.Echo {
	t.Helper()

	m := NewMiddleware(NewService(db, "test-secret"))
	e := echo.New()
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	e.GET("/staff", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, m.Authenticate, m.RequireRole(models.RoleLibrarian, models.RoleAdmin))

	return e
}

func doRequest(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/staff", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateRejectsMissingToken(t *testing.T) {
	db := setupTestDB(t)
	e := setupProtectedServer(t, db)

	rec := doRequest(e, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsGarbageToken(t *testing.T) {
	db := setupTestDB(t)
	e := setupProtectedServer(t, db)

	rec := doRequest(e, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsWrongSecret(t *testing.T) {
	db := setupTestDB(t)
	e := setupProtectedServer(t, db)
	user := createTestUser(t, db, models.RoleLibrarian, true)

	otherService := NewService(db, "different-secret")
	token, err := otherService.GenerateToken(user)
	require.NoError(t, err)

	rec := doRequest(e, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsInactiveUser(t *testing.T) {
	db := setupTestDB(t)
	e := setupProtectedServer(t, db)
	user := createTestUser(t, db, models.RoleLibrarian, false)

	token, err := NewService(db, "test-secret").GenerateToken(user)
	require.NoError(t, err)

	rec := doRequest(e, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	db := setupTestDB(t)
	e := setupProtectedServer(t, db)
	svc := NewService(db, "test-secret")

	librarian := createTestUser(t, db, models.RoleLibrarian, true)
	token, err := svc.GenerateToken(librarian)
	require.NoError(t, err)
	rec := doRequest(e, token)
	assert.Equal(t, http.StatusOK, rec.Code)

	reader := createTestUser(t, db, models.RoleReader, true)
	token, err = svc.GenerateToken(reader)
	require.NoError(t, err)
	rec = doRequest(e, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestValidateTokenRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, "test-secret")
	user := createTestUser(t, db, models.RoleAdmin, true)

	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}
