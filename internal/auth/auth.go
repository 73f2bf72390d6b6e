package auth

import (
	"context"
	"errors"

	"github.com/frahmantamala/staff-access/internal/staff"
	"github.com/frahmantamala/staff-access/internal/team"
	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const ContextActorKey ctxKey = "actor"

// Actor is the authenticated staff identity for one request, with the
// current effective permissions and assignments loaded. Authorization
// checks read it; nothing here mutates state.
type Actor struct {
	ID          int64                  `json:"id"`
	Email       string                 `json:"email"`
	Permissions []team.Permission      `json:"permissions"`
	Assignments []staff.TeamAssignment `json:"assignments"`
}

func (a *Actor) HasPermission(p team.Permission) bool {
	for _, held := range a.Permissions {
		if held == p {
			return true
		}
	}
	return false
}

func (a *Actor) HasAnyPermission(perms []team.Permission) bool {
	for _, p := range perms {
		if a.HasPermission(p) {
			return true
		}
	}
	return false
}

func (a *Actor) HasAllPermissions(perms []team.Permission) bool {
	for _, p := range perms {
		if !a.HasPermission(p) {
			return false
		}
	}
	return true
}

func (a *Actor) AssignmentFor(teamID string) (staff.TeamAssignment, bool) {
	for _, assignment := range a.Assignments {
		if assignment.TeamID == teamID {
			return assignment, true
		}
	}
	return staff.TeamAssignment{}, false
}

func ActorFromContext(ctx context.Context) (*Actor, bool) {
	actor, ok := ctx.Value(ContextActorKey).(*Actor)
	return actor, ok
}

func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, ContextActorKey, actor)
}

// Claims mirrors what the identity service puts into staff access tokens.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
