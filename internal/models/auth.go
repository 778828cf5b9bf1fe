package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload issued by the identity service.
// FacultyID is set for faculty and HOD accounts; DepartmentID scopes HOD and faculty access.
type JWTClaims struct {
	UserID       string   `json:"user_id"`
	Role         UserRole `json:"role"`
	Email        string   `json:"email"`
	FullName     string   `json:"full_name"`
	DepartmentID string   `json:"department_id,omitempty"`
	FacultyID    string   `json:"faculty_id,omitempty"`
	jwt.RegisteredClaims
}

// CanManageDepartment reports whether the caller may run allocations for a department.
func (c *JWTClaims) CanManageDepartment(departmentID string) bool {
	if c == nil {
		return false
	}
	switch c.Role {
	case RoleAdmin, RolePrincipal:
		return true
	case RoleHOD:
		return c.DepartmentID != "" && c.DepartmentID == departmentID
	default:
		return false
	}
}
