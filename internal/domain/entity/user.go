package entity

import "strings"

// User is an account taking part in task assignment and evaluation
type User struct {
	ID                 int64  `json:"id"`
	Username           string `json:"username"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Email              string `json:"email"`
	UserType           string `json:"user_type"`
	UnderSupervisionID *int64 `json:"under_supervision_id,omitempty"`
	LarkOpenID         string `json:"lark_open_id,omitempty"`
	IsActive           bool   `json:"is_active"`
}

// FullName returns the display name, falling back to the username
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

func (u *User) IsAdmin() bool    { return u.UserType == RoleAdmin }
func (u *User) IsManager() bool  { return u.UserType == RoleManager }
func (u *User) IsEmployee() bool { return u.UserType == RoleEmployee }

// Supervises reports whether other reports directly to u
func (u *User) Supervises(other *User) bool {
	return other != nil && other.UnderSupervisionID != nil && *other.UnderSupervisionID == u.ID
}
