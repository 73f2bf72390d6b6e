package staff

import (
	"context"
	"time"

	"github.com/frahmantamala/staff-access/internal/team"
)

// TeamAssignment ties a staff user to one catalog team with a role. At most
// one assignment exists per (user, team) pair.
type TeamAssignment struct {
	TeamID     string    `json:"team_id"`
	Role       team.Role `json:"role"`
	AssignedAt time.Time `json:"assigned_at"`
	AssignedBy int64     `json:"assigned_by"`
}

// StaffUser is an internal platform operator. EffectivePermissions is a
// derived cache over BasePermissions and TeamAssignments; base permissions
// and assignments remain the source of truth. Version backs optimistic
// concurrency in the store.
type StaffUser struct {
	ID                   int64             `json:"id"`
	Email                string            `json:"email"`
	Name                 string            `json:"name"`
	IsActive             bool              `json:"is_active"`
	BasePermissions      []team.Permission `json:"base_permissions"`
	TeamAssignments      []TeamAssignment  `json:"team_assignments"`
	EffectivePermissions []team.Permission `json:"effective_permissions"`
	Version              int64             `json:"version"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

func (u *StaffUser) HasPermission(p team.Permission) bool {
	for _, held := range u.EffectivePermissions {
		if held == p {
			return true
		}
	}
	return false
}

func (u *StaffUser) HasAnyPermission(perms []team.Permission) bool {
	for _, p := range perms {
		if u.HasPermission(p) {
			return true
		}
	}
	return false
}

func (u *StaffUser) HasAllPermissions(perms []team.Permission) bool {
	for _, p := range perms {
		if !u.HasPermission(p) {
			return false
		}
	}
	return true
}

// AssignmentFor returns the assignment for teamID if present.
func (u *StaffUser) AssignmentFor(teamID string) (TeamAssignment, bool) {
	for _, a := range u.TeamAssignments {
		if a.TeamID == teamID {
			return a, true
		}
	}
	return TeamAssignment{}, false
}

func (u *StaffUser) InTeam(teamID string) bool {
	_, ok := u.AssignmentFor(teamID)
	return ok
}

func (u *StaffUser) IsTeamManager(teamID string) bool {
	a, ok := u.AssignmentFor(teamID)
	return ok && a.Role == team.RoleManager
}

// Store is the persistence port for staff users. Save must reject writes
// whose Version no longer matches the stored row and bump the version on
// success.
type Store interface {
	GetByID(ctx context.Context, id int64) (*StaffUser, error)
	Save(ctx context.Context, user *StaffUser) error
	List(ctx context.Context) ([]*StaffUser, error)
	ListUnassigned(ctx context.Context) ([]*StaffUser, error)
}
