package account

import "time"

// Profile is the delivery contact for a user. Phone is optional but must be
// ten digits when present.
type Profile struct {
	UserID     string    `json:"-"`
	FirstName  string    `json:"firstName" validate:"required,max=100"`
	LastName   string    `json:"lastName" validate:"required,max=100"`
	Email      string    `json:"email" validate:"omitempty,email"`
	Address    string    `json:"address" validate:"required,max=255"`
	City       string    `json:"city" validate:"required,max=100"`
	PostalCode string    `json:"postalCode" validate:"required,max=6"`
	Phone      string    `json:"phone" validate:"omitempty,len=10,numeric"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
