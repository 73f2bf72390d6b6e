package membership

import (
	"time"

	"github.com/frahmantamala/staff-access/internal/permission"
	"github.com/frahmantamala/staff-access/internal/team"
)

// AssignmentResult is returned from every single-user mutation: the final
// assignment state plus the effective-permission delta it caused.
type AssignmentResult struct {
	UserID int64             `json:"user_id"`
	TeamID string            `json:"team_id"`
	Role   team.Role         `json:"role,omitempty"`
	Delta  *permission.Delta `json:"delta"`
}

// BulkUserResult is the outcome for one user of a bulk assignment.
type BulkUserResult struct {
	UserID int64             `json:"user_id"`
	Delta  *permission.Delta `json:"delta,omitempty"`
	Error  string            `json:"error,omitempty"`
	Code   string            `json:"code,omitempty"`
}

// BulkResult aggregates a bulk assignment. Partial failure is the normal
// case, not an error: callers inspect FailureCount.
type BulkResult struct {
	SuccessCount int              `json:"success_count"`
	FailureCount int              `json:"failure_count"`
	Results      []BulkUserResult `json:"results"`
}

// TeamMember is one row of a team member listing.
type TeamMember struct {
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       team.Role `json:"role"`
	AssignedAt time.Time `json:"assigned_at"`
	AssignedBy int64     `json:"assigned_by"`
}

// UserTeamEntry is one team of a user's membership summary, with the
// permissions that team contributes for the user's role in it.
type UserTeamEntry struct {
	TeamID                 string            `json:"team_id"`
	TeamName               string            `json:"team_name"`
	Role                   team.Role         `json:"role"`
	AssignedAt             time.Time         `json:"assigned_at"`
	ContributedPermissions []team.Permission `json:"contributed_permissions"`
}

// UserTeams is the full membership view for one staff user.
type UserTeams struct {
	UserID               int64             `json:"user_id"`
	Email                string            `json:"email"`
	Name                 string            `json:"name"`
	Teams                []UserTeamEntry   `json:"teams"`
	BasePermissions      []team.Permission `json:"base_permissions"`
	EffectivePermissions []team.Permission `json:"effective_permissions"`
	MemberOf             []string          `json:"member_of"`
	ManagerOf            []string          `json:"manager_of"`
}

// TeamStats carries the member and manager counts for one catalog team.
type TeamStats struct {
	TeamID       string `json:"team_id"`
	Name         string `json:"name"`
	MemberCount  int    `json:"member_count"`
	ManagerCount int    `json:"manager_count"`
	TotalCount   int    `json:"total_count"`
}

// Stats is the catalog-wide assignment summary.
type Stats struct {
	Teams                []TeamStats `json:"teams"`
	TotalAssignments     int         `json:"total_assignments"`
	TeamsWithZeroMembers []string    `json:"teams_with_zero_members"`
}

// TeamRoleCount is one aggregation row from the stats reader.
type TeamRoleCount struct {
	TeamID string `db:"team_id"`
	Role   string `db:"role"`
	Count  int    `db:"count"`
}
