package models

import "github.com/google/uuid"

// UserContact is the slice of a user record needed to address a notification.
type UserContact struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
}
