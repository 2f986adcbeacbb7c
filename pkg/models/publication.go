package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Publication is one edition/printing of a book. The abstract Book entity can
// have multiple publications; copies (loanable units) hang off a publication.
type Publication struct {
	bun.BaseModel `bun:"table:publications,alias:p"`

	ID            int       `bun:",pk,nullzero" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	BookID        int       `bun:",nullzero" json:"book_id"`
	PublisherID   int       `bun:",nullzero" json:"publisher_id"`
	LanguageID    int       `bun:",nullzero" json:"language_id"`
	CoverImageID  *int      `json:"cover_image_id"`
	ISBN          string    `bun:"isbn,nullzero" json:"isbn"`
	Year          int       `bun:",nullzero" json:"year"`
	EditionNumber int       `bun:",nullzero" json:"edition_number"`
	PageCount     int       `bun:",nullzero" json:"page_count"`

	Book       *Book       `bun:"rel:belongs-to" json:"book,omitempty"`
	Publisher  *Publisher  `bun:"rel:belongs-to" json:"publisher,omitempty"`
	Language   *Language   `bun:"rel:belongs-to" json:"language,omitempty"`
	CoverImage *CoverImage `bun:"rel:belongs-to" json:"cover_image,omitempty"`
	Copies     []*Copy     `bun:"rel:has-many" json:"copies,omitempty"`
}

type CoverImage struct {
	bun.BaseModel `bun:"table:cover_images,alias:ci"`

	ID    int    `bun:",pk,nullzero" json:"id"`
	Image []byte `json:"image"`
}

// Copy is one physical loanable unit of a publication.
type Copy struct {
	bun.BaseModel `bun:"table:copies,alias:c"`

	ID            int     `bun:",pk,nullzero" json:"id"`
	PublicationID int     `bun:",nullzero" json:"publication_id"`
	Status        *string `json:"status"`

	Publication *Publication `bun:"rel:belongs-to" json:"publication,omitempty"`
	Loans       []*Loan      `bun:"rel:has-many" json:"loans,omitempty"`
}
