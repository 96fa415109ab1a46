package dto

// CreateUserRequest represents a user creation request
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,max=150"`
}

// UpdateEmailRequest changes the address of a user
type UpdateEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}
