package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type Person struct {
	bun.BaseModel `bun:"table:persons,alias:pe"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	FirstName string    `bun:",nullzero" json:"first_name"`
	LastName  string    `bun:",nullzero" json:"last_name"`
	Email     string    `bun:",nullzero" json:"email"`
	Phone     *string   `json:"phone"`
}

func (p *Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
