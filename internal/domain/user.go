package domain

import "time"

// Role enumerates user roles in the ticketing workflow.
type Role string

const (
	RoleClient     Role = "client"
	RoleEmployee   Role = "employee"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// IsAdminLevel reports whether the role carries admin privileges.
// Admin and superadmin form a single effective permission tier.
func (r Role) IsAdminLevel() bool {
	return r == RoleAdmin || r == RoleSuperadmin
}

// User is the domain model for every participant: clients who report
// issues, employees who handle them, and admin-level operators.
type User struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	Phone        string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName returns the full name, falling back to the username.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
