package domain

// Identity is the chat transport's opaque user identifier.
type Identity int64

// Role classifies the caller after the access check.
type Role string

const (
	RoleAdministrator Role = "ADMINISTRATOR"
	RoleEmployee      Role = "EMPLOYEE"
	RoleUnauthorized  Role = "UNAUTHORIZED"
)

// Authorization is the result of an access check: the role plus the display
// name of the matched roster entry when the caller is an employee.
type Authorization struct {
	Role         Role
	EmployeeName string
}

// Allowed reports whether the caller may use the system at all.
func (a Authorization) Allowed() bool {
	return a.Role == RoleAdministrator || a.Role == RoleEmployee
}
