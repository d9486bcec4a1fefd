package models

import "github.com/golang-jwt/jwt/v5"

// UserRole is the role carried by the caller's access token.
type UserRole string

const (
	RoleAdviser              UserRole = "adviser"
	RolePanel                UserRole = "panel"
	RoleCommitteeChairperson UserRole = "committee_chairperson"
	RoleFaculty              UserRole = "faculty"
	RoleProgramChair         UserRole = "program_chair"
	RoleAdmin                UserRole = "admin"
)

// ReviewingUserRoles are token roles that may submit reviews.
var ReviewingUserRoles = []UserRole{RoleAdviser, RolePanel, RoleCommitteeChairperson, RoleFaculty}

// JWTClaims represents the payload of access tokens minted by the identity provider.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
