package model

import "time"

// Role is the authorization role attached to a user identity.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User holds display information for an authenticated identity. The
// authorization role on a request comes from the identity token, not from
// this row; the stored role is only a default for display purposes.
type User struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:256;not null" json:"email"`
	Name      string    `gorm:"size:128" json:"name"`
	Role      Role      `gorm:"size:16;not null;default:user" json:"role"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}
