package service

import "github.com/noah-isme/concept-review-api/internal/models"

var permittedRolesByUser = map[models.UserRole][]models.ReviewerRole{
	models.RoleAdviser:              {models.ReviewerRoleAdviser},
	models.RolePanel:                {models.ReviewerRolePanel},
	models.RoleCommitteeChairperson: {models.ReviewerRoleCommitteeChair},
	models.RoleFaculty:              {models.ReviewerRoleSubjectSpecialist},
}

// PermittedRoles maps a caller's token role to the assignment roles it may act on.
// Coordinators and unknown roles get an empty set.
func PermittedRoles(role models.UserRole) models.RoleSet {
	return models.NewRoleSet(permittedRolesByUser[role]...)
}
