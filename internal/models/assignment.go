package models

import (
	"sort"
	"time"
)

// ReviewerRole is the capacity in which a reviewer evaluates a concept title.
type ReviewerRole string

const (
	ReviewerRoleAdviser           ReviewerRole = "adviser"
	ReviewerRolePanel             ReviewerRole = "panel"
	ReviewerRoleCommitteeChair    ReviewerRole = "committee_chair"
	ReviewerRoleSubjectSpecialist ReviewerRole = "subject_specialist"
)

// AllReviewerRoles lists every role that takes part in ranking.
var AllReviewerRoles = []ReviewerRole{
	ReviewerRoleAdviser,
	ReviewerRolePanel,
	ReviewerRoleCommitteeChair,
	ReviewerRoleSubjectSpecialist,
}

// RoleSet is an immutable-by-convention set of reviewer roles.
type RoleSet map[ReviewerRole]struct{}

// NewRoleSet builds a set from the given roles.
func NewRoleSet(roles ...ReviewerRole) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s RoleSet) Has(role ReviewerRole) bool {
	_, ok := s[role]
	return ok
}

// Empty reports whether the set grants nothing.
func (s RoleSet) Empty() bool {
	return len(s) == 0
}

// Strings returns the roles sorted.
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, string(r))
	}
	sort.Strings(out)
	return out
}

// AssignmentStatus tracks the review lifecycle of one assignment.
type AssignmentStatus string

const (
	AssignmentStatusPending    AssignmentStatus = "pending"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
)

// ReviewerAssignment links one reviewer to one concept title. Provisioned externally;
// only Status is written by this service.
type ReviewerAssignment struct {
	ID             string           `db:"id" json:"id"`
	ConceptTitleID string           `db:"concept_title_id" json:"concept_title_id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	ReviewerID     string           `db:"reviewer_id" json:"reviewer_id"`
	ReviewerRole   ReviewerRole     `db:"reviewer_role" json:"reviewer_role"`
	Status         AssignmentStatus `db:"status" json:"status"`
	DueAt          *time.Time       `db:"due_at" json:"due_at,omitempty"`
	AssignedBy     *string          `db:"assigned_by" json:"assigned_by,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// AssignmentRankState is an assignment joined with the rank of its review, if any.
type AssignmentRankState struct {
	AssignmentID string       `db:"assignment_id"`
	ReviewerRole ReviewerRole `db:"reviewer_role"`
	RankOrder    *int         `db:"rank_order"`
}
