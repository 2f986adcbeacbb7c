package models

import (
	"github.com/uptrace/bun"
)

type Publisher struct {
	bun.BaseModel `bun:"table:publishers,alias:pu"`

	ID          int     `bun:",pk,nullzero" json:"id"`
	Name        string  `bun:",nullzero" json:"name"`
	Description *string `json:"description"`
}

type Language struct {
	bun.BaseModel `bun:"table:languages,alias:la"`

	ID   int    `bun:",pk,nullzero" json:"id"`
	Name string `bun:",nullzero" json:"name"`
}
