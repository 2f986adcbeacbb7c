package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID          int       `bun:",pk,nullzero" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Title       string    `bun:",nullzero" json:"title"`
	Description *string   `json:"description"`

	Authors      []*BookAuthor  `bun:"rel:has-many" json:"authors,omitempty"`
	Genres       []*BookGenre   `bun:"rel:has-many" json:"genres,omitempty"`
	Publications []*Publication `bun:"rel:has-many" json:"publications,omitempty"`
}

type Author struct {
	bun.BaseModel `bun:"table:authors,alias:a"`

	ID          int     `bun:",pk,nullzero" json:"id"`
	FirstName   string  `bun:",nullzero" json:"first_name"`
	LastName    string  `bun:",nullzero" json:"last_name"`
	Nationality *string `json:"nationality"`
}

func (a *Author) FullName() string {
	if a.FirstName == "" {
		return a.LastName
	}
	return a.FirstName + " " + a.LastName
}

// BookAuthor joins books to authors, preserving display order.
type BookAuthor struct {
	bun.BaseModel `bun:"table:book_authors,alias:ba"`

	ID        int     `bun:",pk,nullzero" json:"id"`
	BookID    int     `bun:",nullzero" json:"book_id"`
	AuthorID  int     `bun:",nullzero" json:"author_id"`
	Author    *Author `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
	SortOrder int     `bun:",nullzero" json:"sort_order"`
}
