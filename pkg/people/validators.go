package people

type CreatePersonPayload struct {
	FirstName string  `json:"first_name" validate:"required,max=100"`
	LastName  string  `json:"last_name" validate:"required,max=100"`
	Email     string  `json:"email" validate:"required,email,max=254"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=30"`
}

type SearchPeopleQuery struct {
	Email string `query:"email" json:"email,omitempty" validate:"max=254"`
}
