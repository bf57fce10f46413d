package models

import "time"

// Role is the access level resolved for an authenticated caller.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a customer or an administrator.
type User struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email       string    `json:"email" gorm:"uniqueIndex;type:varchar(255)"`
	DisplayName string    `json:"display_name" gorm:"uniqueIndex;type:varchar(30)"`
	Phone       string    `json:"phone,omitempty" gorm:"type:varchar(30)"`
	Role        Role      `json:"role" gorm:"type:varchar(10);not null"`
	Password    string    `json:"-" gorm:"type:varchar(255);not null"` // bcrypt hash, never serialized
	CreatedAt   time.Time `json:"created_at"`
}

// UserSummary is the public projection of a user attached to orders.
type UserSummary struct {
	ID          string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email       string `json:"email" gorm:"type:varchar(255)"`
	DisplayName string `json:"display_name" gorm:"type:varchar(30)"`
}

func (UserSummary) TableName() string { return "users" }

// Summary returns the public projection of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
}

// Actor is the caller resolved by the access control gate.
type Actor struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanAccess reports whether the actor may read or delete the order.
func (a Actor) CanAccess(o *Order) bool {
	return a.IsAdmin() || o.UserID == a.UserID
}
