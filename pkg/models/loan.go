package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Loan tracks one checkout of a copy. A loan is open while returned_at is
// NULL or still in the future; copies with an open loan are unavailable.
type Loan struct {
	bun.BaseModel `bun:"table:loans,alias:l"`

	ID         int        `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	PersonID   int        `bun:",nullzero" json:"person_id"`
	CopyID     int        `bun:",nullzero" json:"copy_id"`
	Reference  string     `bun:",nullzero" json:"reference"`
	LoanedAt   time.Time  `json:"loaned_at"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at"`
	FineID     *int       `json:"fine_id"`

	Person *Person `bun:"rel:belongs-to" json:"person,omitempty"`
	Copy   *Copy   `bun:"rel:belongs-to" json:"copy,omitempty"`
	Fine   *Fine   `bun:"rel:belongs-to" json:"fine,omitempty"`
}

// Open reports whether the loan still holds its copy at the given time.
func (l *Loan) Open(now time.Time) bool {
	return l.ReturnedAt == nil || l.ReturnedAt.After(now)
}

type Fine struct {
	bun.BaseModel `bun:"table:fines,alias:fi"`

	ID        int        `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Amount    float64    `bun:",nullzero" json:"amount"`
	Reason    *string    `json:"reason"`
	PaidAt    *time.Time `json:"paid_at"`
}
