package models

import "time"

// Role is the portal role of a user.
type Role string

const (
	RoleStudent            Role = "student"
	RoleDepartmentGovernor Role = "department-governor"
	RoleFacultyGovernor    Role = "faculty-governor"
	RoleAdmin              Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleDepartmentGovernor, RoleFacultyGovernor, RoleAdmin:
		return true
	}
	return false
}

// User is the authenticated identity an event or request runs as.
// Users are owned by the external auth component; the portal only reads them.
type User struct {
	ID         int       `db:"id" json:"id"`
	Username   string    `db:"username" json:"username"`
	Role       Role      `db:"role" json:"role"`
	Department *string   `db:"department_name" json:"department_name"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// DepartmentName returns the user's department or "All Departments" when the
// user is not bound to one.
func (u User) DepartmentName() string {
	if u.Department == nil || *u.Department == "" {
		return "All Departments"
	}
	return *u.Department
}
