package models

import "time"

// User is a channel owner: either a cookie-bound guest or an authenticated identity.
type User struct {
	ID         string    `db:"id" json:"id"`
	ExternalID *string   `db:"external_id" json:"externalId,omitempty"`
	IsGuest    bool      `db:"is_guest" json:"isGuest"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}
