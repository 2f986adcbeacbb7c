package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Role names carried in identity claims. Token issuance belongs to the
// external identity provider; this side only reads roles.
const (
	RoleAdmin     = "admin"
	RoleLibrarian = "librarian"
	RoleReader    = "reader"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	PersonID  int       `bun:",nullzero" json:"person_id"`
	Email     string    `bun:",nullzero" json:"email"`
	RoleID    int       `bun:",nullzero" json:"role_id"`
	IsActive  bool      `json:"is_active"`

	Person *Person `bun:"rel:belongs-to" json:"person,omitempty"`
	Role   *Role   `bun:"rel:belongs-to" json:"role,omitempty"`
}

func (u *User) HasRole(name string) bool {
	return u.Role != nil && u.Role.Name == name
}

type Role struct {
	bun.BaseModel `bun:"table:roles,alias:ro"`

	ID   int    `bun:",pk,nullzero" json:"id"`
	Name string `bun:",nullzero" json:"name"`
}
