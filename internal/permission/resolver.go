package permission

import (
	"context"
	"log/slog"
	"sort"

	"github.com/frahmantamala/staff-access/internal/staff"
	"github.com/frahmantamala/staff-access/internal/team"
)

// ComputeEffectivePermissions returns the deduplicated union of base
// permissions and every assignment's team contribution for its role. It is
// pure and independent of assignment order; the result is sorted so equal
// inputs produce byte-equal outputs. Assignments referencing teams missing
// from the catalog contribute nothing, and base entries outside the
// catalog's permission vocabulary are dropped; Recalculate exists to repair
// exactly that kind of drift.
func ComputeEffectivePermissions(catalog *team.Catalog, base []team.Permission, assignments []staff.TeamAssignment) []team.Permission {
	set := make(map[team.Permission]struct{}, len(base))
	for _, p := range base {
		if !catalog.KnownPermission(p) {
			continue
		}
		set[p] = struct{}{}
	}

	for _, a := range assignments {
		perms, err := catalog.TeamPermissions(a.TeamID, a.Role)
		if err != nil {
			continue
		}
		for _, p := range perms {
			set[p] = struct{}{}
		}
	}

	out := make([]team.Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Delta describes how a recalculation changed a user's effective set.
type Delta struct {
	UserID        int64             `json:"user_id"`
	PreviousCount int               `json:"previous_count"`
	NewCount      int               `json:"new_count"`
	Added         []team.Permission `json:"added"`
	Removed       []team.Permission `json:"removed"`
}

func (d *Delta) Changed() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0
}

// Diff computes added and removed between two permission sets.
func Diff(before, after []team.Permission) (added, removed []team.Permission) {
	beforeSet := make(map[team.Permission]struct{}, len(before))
	for _, p := range before {
		beforeSet[p] = struct{}{}
	}
	afterSet := make(map[team.Permission]struct{}, len(after))
	for _, p := range after {
		afterSet[p] = struct{}{}
	}

	for _, p := range after {
		if _, ok := beforeSet[p]; !ok {
			added = append(added, p)
		}
	}
	for _, p := range before {
		if _, ok := afterSet[p]; !ok {
			removed = append(removed, p)
		}
	}
	sort.Slice(added, func(i, j int) bool { return added[i] < added[j] })
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return added, removed
}

// Resolver recomputes and persists cached effective permissions.
type Resolver struct {
	catalog *team.Catalog
	store   staff.Store
	logger  *slog.Logger
}

func NewResolver(catalog *team.Catalog, store staff.Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		catalog: catalog,
		store:   store,
		logger:  logger,
	}
}

// Recalculate reloads the user, recomputes the effective set from base
// permissions and current assignments, persists it and returns the delta.
// Safe to call with no prior drift; the delta is then empty.
func (r *Resolver) Recalculate(ctx context.Context, userID int64) (*Delta, error) {
	user, err := r.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.RecalculateUser(ctx, user)
}

// RecalculateUser recomputes for an already-loaded user and persists the
// result; the save also carries any assignment edits staged on the user.
func (r *Resolver) RecalculateUser(ctx context.Context, user *staff.StaffUser) (*Delta, error) {
	previous := user.EffectivePermissions
	effective := ComputeEffectivePermissions(r.catalog, user.BasePermissions, user.TeamAssignments)
	added, removed := Diff(previous, effective)

	delta := &Delta{
		UserID:        user.ID,
		PreviousCount: len(previous),
		NewCount:      len(effective),
		Added:         added,
		Removed:       removed,
	}

	user.EffectivePermissions = effective
	if err := r.store.Save(ctx, user); err != nil {
		return nil, err
	}

	if delta.Changed() {
		r.logger.Info("effective permissions recalculated",
			"user_id", user.ID,
			"previous_count", delta.PreviousCount,
			"new_count", delta.NewCount,
			"added", delta.Added,
			"removed", delta.Removed)
	}

	return delta, nil
}

// UserResult is one entry of a RecalculateAll run.
type UserResult struct {
	UserID int64  `json:"user_id"`
	Delta  *Delta `json:"delta,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RecalculateAll repairs every staff user. One user's failure is recorded
// and the loop continues; cancellation stops further users without touching
// already-persisted results.
func (r *Resolver) RecalculateAll(ctx context.Context) ([]UserResult, error) {
	users, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]UserResult, 0, len(users))
	for _, user := range users {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		delta, err := r.RecalculateUser(ctx, user)
		if err != nil {
			r.logger.Error("recalculation failed", "user_id", user.ID, "error", err)
			results = append(results, UserResult{UserID: user.ID, Error: err.Error()})
			continue
		}
		results = append(results, UserResult{UserID: user.ID, Delta: delta})
	}

	return results, nil
}
