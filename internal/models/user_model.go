package models

import "time"

// Role is the single role an account holds at any time.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the system. The email is the identity key and
// doubles as the Firestore document ID.
type User struct {
	Email      string    `json:"email" firestore:"email"`
	Name       string    `json:"name,omitempty" firestore:"name,omitempty"`
	PhotoURL   string    `json:"photoURL,omitempty" firestore:"photoURL,omitempty"`
	Role       Role      `json:"role" firestore:"role"`
	IsPremium  bool      `json:"isPremium" firestore:"isPremium"`
	IsBlocked  bool      `json:"isBlocked" firestore:"isBlocked"`
	IssueCount int       `json:"issueCount" firestore:"issueCount"` // citizens only, never negative
	CreatedAt  time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// Clone returns a copy that shares no memory with u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
