package loans

type CheckoutPayload struct {
	PublicationID int `json:"publication_id" validate:"required,min=1"`
	PersonID      int `json:"person_id" validate:"required,min=1"`
}

type ReservePayload struct {
	PublicationID int `json:"publication_id" validate:"required,min=1"`
	PersonID      int `json:"person_id" validate:"required,min=1"`
}

type ListReservationsQuery struct {
	PublicationID int `query:"publication_id" json:"publication_id" validate:"required,min=1"`
}

type ListLoansQuery struct {
	Limit      int     `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset     int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	PersonID   *int    `query:"person_id" json:"person_id,omitempty" validate:"omitempty,min=1" tstype:"number"`
	OpenOnly   bool    `query:"open_only" json:"open_only,omitempty"`
	LoanedFrom *string `query:"loaned_from" json:"loaned_from,omitempty" validate:"omitempty,date" tstype:"string"`
	LoanedTo   *string `query:"loaned_to" json:"loaned_to,omitempty" validate:"omitempty,date" tstype:"string"`
}
