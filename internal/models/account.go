// Package models contains data structures for the blog's domain models.
package models

import "time"

// RoleAdmin is the only role the CMS issues today.
const RoleAdmin = "admin"

// Account is an administrator able to log in and manage content.
type Account struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null;size:100" json:"username"`
	PasswordHash string    `gorm:"column:password;not null" json:"-"`
	Email        string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Role         string    `gorm:"not null;default:admin;size:32" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// AccountSummary is the public view of an account returned by auth endpoints.
type AccountSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

// Summary strips the password hash and timestamps.
func (a *Account) Summary() AccountSummary {
	return AccountSummary{ID: a.ID, Username: a.Username, Email: a.Email, Role: a.Role}
}
