package models

// TestUser is a row of the volt_test_users table used by the CRUD walkthrough.
type TestUser struct {
	ID        int64  `json:"id"`
	Email     string `json:"email" validate:"required,email"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}
