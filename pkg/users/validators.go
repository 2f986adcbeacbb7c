package users

type CreateUserPayload struct {
	PersonID int    `json:"person_id" validate:"required,min=1"`
	Email    string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Role     string `json:"role" validate:"required,oneof=admin librarian reader"`
}

type SetActivePayload struct {
	IsActive *bool `json:"is_active" validate:"required"`
}
