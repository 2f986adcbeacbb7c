package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Reservation is a hold on a publication. Reservations do not make copies
// unavailable; availability is decided by open loans alone.
type Reservation struct {
	bun.BaseModel `bun:"table:reservations,alias:r"`

	ID            int        `bun:",pk,nullzero" json:"id"`
	CreatedAt     time.Time  `json:"created_at"`
	PersonID      int        `bun:",nullzero" json:"person_id"`
	PublicationID int        `bun:",nullzero" json:"publication_id"`
	ExpiresAt     time.Time  `json:"expires_at"`
	CanceledAt    *time.Time `json:"canceled_at"`

	Person      *Person      `bun:"rel:belongs-to" json:"person,omitempty"`
	Publication *Publication `bun:"rel:belongs-to" json:"publication,omitempty"`
}
