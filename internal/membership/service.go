package membership

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	internal "github.com/frahmantamala/staff-access/internal"
	"github.com/frahmantamala/staff-access/internal/audit"
	"github.com/frahmantamala/staff-access/internal/permission"
	"github.com/frahmantamala/staff-access/internal/staff"
	"github.com/frahmantamala/staff-access/internal/team"
)

// StatsReader aggregates assignment counts straight from the database.
type StatsReader interface {
	TeamRoleCounts(ctx context.Context) ([]TeamRoleCount, error)
}

// Service owns team membership mutations. Every mutation validates against
// the catalog, recomputes the affected user's effective permissions before
// returning, and emits an audit record. Mutations for the same user are
// serialized through a per-user mutex; the store's version check catches
// writers that bypass this process.
type Service struct {
	catalog  *team.Catalog
	store    staff.Store
	resolver *permission.Resolver
	auditor  audit.Emitter
	stats    StatsReader
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewService(catalog *team.Catalog, store staff.Store, resolver *permission.Resolver, auditor audit.Emitter, stats StatsReader, logger *slog.Logger) *Service {
	return &Service{
		catalog:  catalog,
		store:    store,
		resolver: resolver,
		auditor:  auditor,
		stats:    stats,
		logger:   logger,
		locks:    make(map[int64]*sync.Mutex),
	}
}

func (s *Service) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// Assign adds a user to a team with the given role.
func (s *Service) Assign(ctx context.Context, actorID, userID int64, teamID string, role team.Role) (*AssignmentResult, error) {
	if !s.catalog.HasTeam(teamID) {
		return nil, internal.ErrInvalidTeamID
	}
	if role != team.RoleMember && role != team.RoleManager {
		return nil, internal.ErrInvalidRole
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if existing, ok := user.AssignmentFor(teamID); ok {
		s.logger.Warn("assign rejected: duplicate assignment",
			"user_id", userID, "team_id", teamID, "current_role", existing.Role)
		return nil, internal.ErrDuplicateAssignment.WithDetails(map[string]interface{}{
			"current_role": existing.Role,
		})
	}

	user.TeamAssignments = append(user.TeamAssignments, staff.TeamAssignment{
		TeamID:     teamID,
		Role:       role,
		AssignedAt: time.Now(),
		AssignedBy: actorID,
	})

	delta, err := s.resolver.RecalculateUser(ctx, user)
	if err != nil {
		return nil, err
	}

	s.auditor.Emit(ctx, audit.Record{
		Actor:                 actorID,
		Action:                audit.ActionAssign,
		TargetUserID:          userID,
		TeamID:                teamID,
		Role:                  string(role),
		BeforePermissionCount: delta.PreviousCount,
		AfterPermissionCount:  delta.NewCount,
	})

	s.logger.Info("team assigned",
		"actor", actorID, "user_id", userID, "team_id", teamID, "role", role,
		"permissions_added", len(delta.Added))

	return &AssignmentResult{UserID: userID, TeamID: teamID, Role: role, Delta: delta}, nil
}

// UpdateRole toggles an existing assignment between member and manager. The
// assignment's timestamps are preserved; only the role changes. The removed
// set is always computed as old effective minus new effective, so demotion
// never drops a permission still justified by another team or by base
// permissions.
func (s *Service) UpdateRole(ctx context.Context, actorID, userID int64, teamID string, newRole team.Role) (*AssignmentResult, error) {
	if !s.catalog.HasTeam(teamID) {
		return nil, internal.ErrInvalidTeamID
	}
	if newRole != team.RoleMember && newRole != team.RoleManager {
		return nil, internal.ErrInvalidRole
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range user.TeamAssignments {
		if user.TeamAssignments[i].TeamID == teamID {
			user.TeamAssignments[i].Role = newRole
			found = true
			break
		}
	}
	if !found {
		return nil, internal.ErrNotAssigned
	}

	delta, err := s.resolver.RecalculateUser(ctx, user)
	if err != nil {
		return nil, err
	}

	s.auditor.Emit(ctx, audit.Record{
		Actor:                 actorID,
		Action:                audit.ActionUpdateRole,
		TargetUserID:          userID,
		TeamID:                teamID,
		Role:                  string(newRole),
		BeforePermissionCount: delta.PreviousCount,
		AfterPermissionCount:  delta.NewCount,
	})

	s.logger.Info("team role updated",
		"actor", actorID, "user_id", userID, "team_id", teamID, "new_role", newRole,
		"permissions_added", len(delta.Added), "permissions_removed", len(delta.Removed))

	return &AssignmentResult{UserID: userID, TeamID: teamID, Role: newRole, Delta: delta}, nil
}

// Remove deletes an assignment. The pair becomes re-assignable afterwards.
func (s *Service) Remove(ctx context.Context, actorID, userID int64, teamID string) (*AssignmentResult, error) {
	if !s.catalog.HasTeam(teamID) {
		return nil, internal.ErrInvalidTeamID
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := user.TeamAssignments[:0]
	found := false
	for _, a := range user.TeamAssignments {
		if a.TeamID == teamID {
			found = true
			continue
		}
		kept = append(kept, a)
	}
	if !found {
		return nil, internal.ErrNotAssigned
	}
	user.TeamAssignments = kept

	delta, err := s.resolver.RecalculateUser(ctx, user)
	if err != nil {
		return nil, err
	}

	s.auditor.Emit(ctx, audit.Record{
		Actor:                 actorID,
		Action:                audit.ActionRemove,
		TargetUserID:          userID,
		TeamID:                teamID,
		BeforePermissionCount: delta.PreviousCount,
		AfterPermissionCount:  delta.NewCount,
	})

	s.logger.Info("team removed",
		"actor", actorID, "user_id", userID, "team_id", teamID,
		"permissions_removed", len(delta.Removed))

	return &AssignmentResult{UserID: userID, TeamID: teamID, Delta: delta}, nil
}

// BulkAssign assigns every listed user independently. One user's failure is
// captured in its result entry and never blocks the rest; cancellation
// stops further users but keeps already-committed assignments.
func (s *Service) BulkAssign(ctx context.Context, actorID int64, userIDs []int64, teamID string, role team.Role) (*BulkResult, error) {
	if len(userIDs) == 0 {
		return nil, internal.ErrEmptyUserIDList
	}
	if !s.catalog.HasTeam(teamID) {
		return nil, internal.ErrInvalidTeamID
	}
	if role != team.RoleMember && role != team.RoleManager {
		return nil, internal.ErrInvalidRole
	}

	result := &BulkResult{Results: make([]BulkUserResult, 0, len(userIDs))}
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			break
		}

		assignment, err := s.Assign(ctx, actorID, userID, teamID, role)
		if err != nil {
			entry := BulkUserResult{UserID: userID, Error: err.Error()}
			if appErr, ok := internal.IsAppError(err); ok {
				entry.Code = string(appErr.Code)
			}
			result.Results = append(result.Results, entry)
			result.FailureCount++
			continue
		}
		result.Results = append(result.Results, BulkUserResult{UserID: userID, Delta: assignment.Delta})
		result.SuccessCount++
	}

	s.logger.Info("bulk assignment finished",
		"actor", actorID, "team_id", teamID, "role", role,
		"success_count", result.SuccessCount, "failure_count", result.FailureCount)

	return result, nil
}

// ListMembers returns every user assigned to the team.
func (s *Service) ListMembers(ctx context.Context, teamID string) ([]TeamMember, error) {
	if !s.catalog.HasTeam(teamID) {
		return nil, internal.ErrInvalidTeamID
	}

	users, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	members := make([]TeamMember, 0)
	for _, user := range users {
		if a, ok := user.AssignmentFor(teamID); ok {
			members = append(members, TeamMember{
				UserID:     user.ID,
				Email:      user.Email,
				Name:       user.Name,
				Role:       a.Role,
				AssignedAt: a.AssignedAt,
				AssignedBy: a.AssignedBy,
			})
		}
	}
	return members, nil
}

// ListUnassigned returns staff with zero team assignments.
func (s *Service) ListUnassigned(ctx context.Context) ([]*staff.StaffUser, error) {
	return s.store.ListUnassigned(ctx)
}

// GetUserTeams returns a user's assignments with per-team contributed
// permissions, the effective set, and member-of/manager-of summaries.
func (s *Service) GetUserTeams(ctx context.Context, userID int64) (*UserTeams, error) {
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &UserTeams{
		UserID:               user.ID,
		Email:                user.Email,
		Name:                 user.Name,
		Teams:                make([]UserTeamEntry, 0, len(user.TeamAssignments)),
		BasePermissions:      user.BasePermissions,
		EffectivePermissions: user.EffectivePermissions,
		MemberOf:             make([]string, 0),
		ManagerOf:            make([]string, 0),
	}

	for _, a := range user.TeamAssignments {
		def, err := s.catalog.GetTeam(a.TeamID)
		if err != nil {
			s.logger.Warn("assignment references team missing from catalog", "user_id", userID, "team_id", a.TeamID)
			continue
		}

		view.Teams = append(view.Teams, UserTeamEntry{
			TeamID:                 def.ID,
			TeamName:               def.Name,
			Role:                   a.Role,
			AssignedAt:             a.AssignedAt,
			ContributedPermissions: def.PermissionsForRole(a.Role),
		})

		if a.Role == team.RoleManager {
			view.ManagerOf = append(view.ManagerOf, def.ID)
		} else {
			view.MemberOf = append(view.MemberOf, def.ID)
		}
	}

	sort.Strings(view.MemberOf)
	sort.Strings(view.ManagerOf)
	return view, nil
}

// GetStats aggregates per-team member and manager counts over all catalog
// teams, including teams nobody is assigned to.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	counts, err := s.stats.TeamRoleCounts(ctx)
	if err != nil {
		return nil, err
	}

	byTeam := make(map[string]*TeamStats)
	for _, def := range s.catalog.ListTeams() {
		byTeam[def.ID] = &TeamStats{TeamID: def.ID, Name: def.Name}
	}

	total := 0
	for _, row := range counts {
		ts, ok := byTeam[row.TeamID]
		if !ok {
			// drifted assignment outside the catalog; recalculate repairs it
			s.logger.Warn("assignment count for team missing from catalog", "team_id", row.TeamID, "count", row.Count)
			continue
		}
		switch team.Role(row.Role) {
		case team.RoleManager:
			ts.ManagerCount += row.Count
		default:
			ts.MemberCount += row.Count
		}
		ts.TotalCount += row.Count
		total += row.Count
	}

	stats := &Stats{
		Teams:                make([]TeamStats, 0, len(byTeam)),
		TotalAssignments:     total,
		TeamsWithZeroMembers: make([]string, 0),
	}
	for _, def := range s.catalog.ListTeams() {
		ts := byTeam[def.ID]
		stats.Teams = append(stats.Teams, *ts)
		if ts.TotalCount == 0 {
			stats.TeamsWithZeroMembers = append(stats.TeamsWithZeroMembers, def.ID)
		}
	}
	return stats, nil
}

// Recalculate repairs one user's cached effective permissions.
func (s *Service) Recalculate(ctx context.Context, actorID, userID int64) (*permission.Delta, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	delta, err := s.resolver.Recalculate(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.auditor.Emit(ctx, audit.Record{
		Actor:                 actorID,
		Action:                audit.ActionRecalculate,
		TargetUserID:          userID,
		BeforePermissionCount: delta.PreviousCount,
		AfterPermissionCount:  delta.NewCount,
	})

	return delta, nil
}

// RecalculateAll repairs every user; per-user failures are reported in the
// results, never as a batch error.
func (s *Service) RecalculateAll(ctx context.Context, actorID int64) ([]permission.UserResult, error) {
	results, err := s.resolver.RecalculateAll(ctx)
	if err != nil && len(results) == 0 {
		return nil, err
	}

	// on cancellation the partial results still describe committed repairs
	for _, res := range results {
		if res.Delta == nil || !res.Delta.Changed() {
			continue
		}
		s.auditor.Emit(ctx, audit.Record{
			Actor:                 actorID,
			Action:                audit.ActionRecalculate,
			TargetUserID:          res.UserID,
			BeforePermissionCount: res.Delta.PreviousCount,
			AfterPermissionCount:  res.Delta.NewCount,
		})
	}

	return results, err
}
