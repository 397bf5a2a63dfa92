package entity

import "time"

// Role is a user's role within a company
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleManager  Role = "Manager"
	RoleEmployee Role = "Employee"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is one of the defined roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	default:
		return false
	}
}

// Company is the tenant boundary. DefaultCurrency is the conversion target
// for every expense submitted inside it.
type Company struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	DefaultCurrency string    `json:"default_currency"`
	CreatedAt       time.Time `json:"created_at"`
}

// User is an employee, manager or admin of a company.
// ManagerID is a parent pointer into the same company's user tree.
type User struct {
	ID                int64     `json:"id"`
	CompanyID         int64     `json:"company_id"`
	FullName          string    `json:"full_name"`
	Email             string    `json:"email"`
	Role              Role      `json:"role"`
	ManagerID         *int64    `json:"manager_id,omitempty"`
	IsManagerApprover bool      `json:"is_manager_approver"`
	CreatedAt         time.Time `json:"created_at"`
}

// HasManager reports whether the user has a direct manager assigned
func (u *User) HasManager() bool {
	return u.ManagerID != nil && *u.ManagerID != 0
}
