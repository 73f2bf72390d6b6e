package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/staff-access/internal/team"
)

// Authorizer gates requests on the actor's effective permissions and team
// assignments. Responses disclose only a generic message; which permission
// was missing goes to the log, not to the client.
type Authorizer struct {
	logger *slog.Logger
}

func NewAuthorizer(logger *slog.Logger) *Authorizer {
	return &Authorizer{logger: logger}
}

func (a *Authorizer) deny(w http.ResponseWriter) {
	http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
}

func (a *Authorizer) check(check func(actor *Actor) bool, reason string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok || actor == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !check(actor) {
				a.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", actor.ID,
					"requirement", reason,
					"user_permissions", actor.Permissions)
				a.deny(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission gates on a single effective permission.
func (a *Authorizer) RequirePermission(p team.Permission) func(http.Handler) http.Handler {
	return a.check(func(actor *Actor) bool {
		return actor.HasPermission(p)
	}, "permission "+string(p))
}

// RequireAllPermissions gates on the conjunction of permissions.
func (a *Authorizer) RequireAllPermissions(perms ...team.Permission) func(http.Handler) http.Handler {
	return a.check(func(actor *Actor) bool {
		return actor.HasAllPermissions(perms)
	}, "all of required permissions")
}

// RequireAnyPermission gates on the disjunction of permissions.
func (a *Authorizer) RequireAnyPermission(perms ...team.Permission) func(http.Handler) http.Handler {
	return a.check(func(actor *Actor) bool {
		return actor.HasAnyPermission(perms)
	}, "any of required permissions")
}

// RequireTeamAccess gates on membership in the team with any role.
func (a *Authorizer) RequireTeamAccess(teamID string) func(http.Handler) http.Handler {
	return a.check(func(actor *Actor) bool {
		_, ok := actor.AssignmentFor(teamID)
		return ok
	}, "membership in team "+teamID)
}

// RequireTeamManager gates on holding the manager role in the team.
func (a *Authorizer) RequireTeamManager(teamID string) func(http.Handler) http.Handler {
	return a.check(func(actor *Actor) bool {
		assignment, ok := actor.AssignmentFor(teamID)
		return ok && assignment.Role == team.RoleManager
	}, "manager role in team "+teamID)
}
