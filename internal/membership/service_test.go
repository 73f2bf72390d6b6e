package membership_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	internal "github.com/frahmantamala/staff-access/internal"
	"github.com/frahmantamala/staff-access/internal/audit"
	"github.com/frahmantamala/staff-access/internal/membership"
	"github.com/frahmantamala/staff-access/internal/permission"
	"github.com/frahmantamala/staff-access/internal/staff"
	"github.com/frahmantamala/staff-access/internal/team"
)

func TestMembership(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Membership Service Suite")
}

// Mock store for testing
type mockStaffStore struct {
	users     map[int64]*staff.StaffUser
	saveError error
}

func newMockStaffStore() *mockStaffStore {
	return &mockStaffStore{users: make(map[int64]*staff.StaffUser)}
}

func (m *mockStaffStore) addUser(id int64, base ...team.Permission) *staff.StaffUser {
	user := &staff.StaffUser{
		ID:                   id,
		Email:                "user@mail.com",
		Name:                 "User",
		IsActive:             true,
		BasePermissions:      base,
		EffectivePermissions: append([]team.Permission{}, base...),
		Version:              1,
	}
	m.users[id] = user
	return user
}

func (m *mockStaffStore) GetByID(ctx context.Context, id int64) (*staff.StaffUser, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, internal.ErrUnknownUser
	}
	copied := *user
	copied.TeamAssignments = append([]staff.TeamAssignment{}, user.TeamAssignments...)
	copied.EffectivePermissions = append([]team.Permission{}, user.EffectivePermissions...)
	return &copied, nil
}

func (m *mockStaffStore) Save(ctx context.Context, user *staff.StaffUser) error {
	if m.saveError != nil {
		return m.saveError
	}
	stored, ok := m.users[user.ID]
	if !ok {
		return internal.ErrUnknownUser
	}
	if stored.Version != user.Version {
		return internal.ErrVersionConflict
	}
	user.Version++
	m.users[user.ID] = user
	return nil
}

func (m *mockStaffStore) List(ctx context.Context) ([]*staff.StaffUser, error) {
	out := make([]*staff.StaffUser, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *mockStaffStore) ListUnassigned(ctx context.Context) ([]*staff.StaffUser, error) {
	out := make([]*staff.StaffUser, 0)
	for _, u := range m.users {
		if len(u.TeamAssignments) == 0 {
			out = append(out, u)
		}
	}
	return out, nil
}

// Mock audit emitter capturing records
type mockEmitter struct {
	records []audit.Record
}

func (m *mockEmitter) Emit(ctx context.Context, record audit.Record) {
	m.records = append(m.records, record)
}

// Mock stats reader backed by the store's assignments
type mockStatsReader struct {
	store *mockStaffStore
}

func (m *mockStatsReader) TeamRoleCounts(ctx context.Context) ([]membership.TeamRoleCount, error) {
	counts := make(map[string]map[string]int)
	for _, u := range m.store.users {
		for _, a := range u.TeamAssignments {
			if counts[a.TeamID] == nil {
				counts[a.TeamID] = make(map[string]int)
			}
			counts[a.TeamID][string(a.Role)]++
		}
	}
	out := make([]membership.TeamRoleCount, 0)
	for teamID, roles := range counts {
		for role, count := range roles {
			out = append(out, membership.TeamRoleCount{TeamID: teamID, Role: role, Count: count})
		}
	}
	return out, nil
}

var _ = Describe("MembershipService", func() {
	var (
		service *membership.Service
		store   *mockStaffStore
		emitter *mockEmitter
		ctx     context.Context
	)

	const actorID = int64(99)

	BeforeEach(func() {
		store = newMockStaffStore()
		emitter = &mockEmitter{}
		catalog := team.NewCatalog()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		resolver := permission.NewResolver(catalog, store, logger)
		service = membership.NewService(catalog, store, resolver, emitter, &mockStatsReader{store: store}, logger)
		ctx = context.Background()
	})

	effective := func(userID int64) []team.Permission {
		return store.users[userID].EffectivePermissions
	}

	Describe("Assign", func() {
		It("grants the team's member permissions on top of base permissions", func() {
			store.addUser(1, team.PermStaffView)

			result, err := service.Assign(ctx, actorID, 1, "sales", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Delta.Added).To(ConsistOf(
				team.PermDealerAccounts,
				team.PermAnalyticsView,
				team.PermListingApproval,
			))
			Expect(effective(1)).To(ConsistOf(
				team.PermStaffView,
				team.PermDealerAccounts,
				team.PermAnalyticsView,
				team.PermListingApproval,
			))
		})

		It("records who assigned and when", func() {
			store.addUser(1)

			before := time.Now()
			_, err := service.Assign(ctx, actorID, 1, "support", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())

			assignment, ok := store.users[1].AssignmentFor("support")
			Expect(ok).To(BeTrue())
			Expect(assignment.AssignedBy).To(Equal(actorID))
			Expect(assignment.AssignedAt).To(BeTemporally(">=", before))
		})

		It("rejects a second assignment to the same team regardless of role", func() {
			store.addUser(1)
			_, err := service.Assign(ctx, actorID, 1, "sales", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Assign(ctx, actorID, 1, "sales", team.RoleManager)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeDuplicateAssignment))
			Expect(appErr.Details).To(HaveKeyWithValue("current_role", team.RoleMember))

			// the existing assignment is untouched
			assignment, _ := store.users[1].AssignmentFor("sales")
			Expect(assignment.Role).To(Equal(team.RoleMember))
		})

		It("rejects a team missing from the catalog", func() {
			store.addUser(1)
			_, err := service.Assign(ctx, actorID, 1, "skunkworks", team.RoleMember)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidTeamID))
		})

		It("rejects an unknown role", func() {
			store.addUser(1)
			_, err := service.Assign(ctx, actorID, 1, "sales", team.Role("admin"))
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidRole))
		})

		It("rejects an unknown user", func() {
			_, err := service.Assign(ctx, actorID, 404, "sales", team.RoleMember)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeUnknownUser))
		})

		It("emits an audit record for the assignment", func() {
			store.addUser(1)
			_, err := service.Assign(ctx, actorID, 1, "sales", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())

			Expect(emitter.records).To(HaveLen(1))
			record := emitter.records[0]
			Expect(record.Action).To(Equal(audit.ActionAssign))
			Expect(record.Actor).To(Equal(actorID))
			Expect(record.TargetUserID).To(Equal(int64(1)))
			Expect(record.TeamID).To(Equal("sales"))
			Expect(record.AfterPermissionCount).To(BeNumerically(">", record.BeforePermissionCount))
		})
	})

	Describe("UpdateRole", func() {
		It("promotion only ever adds permissions", func() {
			store.addUser(1, team.PermStaffView)
			_, err := service.Assign(ctx, actorID, 1, "sales", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())
			before := effective(1)

			result, err := service.UpdateRole(ctx, actorID, 1, "sales", team.RoleManager)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Delta.Removed).To(BeEmpty())
			Expect(result.Delta.Added).To(ConsistOf(
				team.PermDealerManagement,
				team.PermBulkOperations,
			))
			for _, p := range before {
				Expect(effective(1)).To(ContainElement(p))
			}
		})

		It("demotion drops manager permissions not justified elsewhere", func() {
			store.addUser(1)
			_, err := service.Assign(ctx, actorID, 1, "marketing", team.RoleManager)
			Expect(err).NotTo(HaveOccurred())

			result, err := service.UpdateRole(ctx, actorID, 1, "marketing", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Delta.Removed).To(ConsistOf(
				team.PermCampaignManagement,
				team.PermBulkOperations,
			))
			Expect(effective(1)).To(ConsistOf(
				team.PermContentManagement,
				team.PermCampaignView,
				team.PermAnalyticsView,
			))
		})

		It("demotion keeps a permission still granted by another team", func() {
			store.addUser(1)
			_, err := service.Assign(ctx, actorID, 1, "sales", team.RoleManager)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Assign(ctx, actorID, 1, "marketing", team.RoleManager)
			Expect(err).NotTo(HaveOccurred())

			// both manager roles grant bulk_operations; demoting one keeps it
			result, err := service.UpdateRole(ctx, actorID, 1, "sales", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Delta.Removed).To(ConsistOf(team.PermDealerManagement))
			Expect(effective(1)).To(ContainElement(team.PermBulkOperations))
		})

		It("preserves the original assignment timestamp", func() {
			store.addUser(1)
			_, err := service.Assign(ctx, actorID, 1, "sales", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())
			original, _ := store.users[1].AssignmentFor("sales")

			_, err = service.UpdateRole(ctx, actorID, 1, "sales", team.RoleManager)
			Expect(err).NotTo(HaveOccurred())

			updated, _ := store.users[1].AssignmentFor("sales")
			Expect(updated.AssignedAt).To(Equal(original.AssignedAt))
			Expect(updated.Role).To(Equal(team.RoleManager))
		})

		It("fails when the user is not in the team", func() {
			store.addUser(1)
			_, err := service.UpdateRole(ctx, actorID, 1, "sales", team.RoleManager)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeNotAssigned))
		})
	})

	Describe("Remove", func() {
		It("keeps permissions still granted by a remaining team", func() {
			store.addUser(1)
			// sales members and marketing members both hold analytics_view
			_, err := service.Assign(ctx, actorID, 1, "sales", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Assign(ctx, actorID, 1, "marketing", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())

			result, err := service.Remove(ctx, actorID, 1, "sales")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Delta.Removed).To(ConsistOf(
				team.PermDealerAccounts,
				team.PermListingApproval,
			))
			Expect(effective(1)).To(ConsistOf(
				team.PermContentManagement,
				team.PermCampaignView,
				team.PermAnalyticsView,
			))
		})

		It("keeps base permissions even when the last team is removed", func() {
			store.addUser(1, team.PermStaffView)
			_, err := service.Assign(ctx, actorID, 1, "analytics", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Remove(ctx, actorID, 1, "analytics")
			Expect(err).NotTo(HaveOccurred())
			Expect(effective(1)).To(Equal([]team.Permission{team.PermStaffView}))
		})

		It("makes the pair assignable again", func() {
			store.addUser(1)
			_, err := service.Assign(ctx, actorID, 1, "sales", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Remove(ctx, actorID, 1, "sales")
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Assign(ctx, actorID, 1, "sales", team.RoleManager)
			Expect(err).NotTo(HaveOccurred())
			assignment, _ := store.users[1].AssignmentFor("sales")
			Expect(assignment.Role).To(Equal(team.RoleManager))
		})

		It("fails when the user is not in the team", func() {
			store.addUser(1)
			_, err := service.Remove(ctx, actorID, 1, "sales")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeNotAssigned))
		})
	})

	Describe("BulkAssign", func() {
		It("processes each user independently", func() {
			for id := int64(1); id <= 5; id++ {
				store.addUser(id)
			}
			// user 3 is already in the team
			_, err := service.Assign(ctx, actorID, 3, "support", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())

			result, err := service.BulkAssign(ctx, actorID, []int64{1, 2, 3, 4, 5}, "support", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.SuccessCount).To(Equal(4))
			Expect(result.FailureCount).To(Equal(1))
			Expect(result.Results).To(HaveLen(5))

			Expect(result.Results[2].UserID).To(Equal(int64(3)))
			Expect(result.Results[2].Code).To(Equal(string(internal.ErrCodeDuplicateAssignment)))

			for _, id := range []int64{1, 2, 4, 5} {
				Expect(store.users[id].InTeam("support")).To(BeTrue())
			}
		})

		It("reports unknown users without aborting the batch", func() {
			store.addUser(1)
			store.addUser(2)

			result, err := service.BulkAssign(ctx, actorID, []int64{1, 404, 2}, "sales", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.SuccessCount).To(Equal(2))
			Expect(result.FailureCount).To(Equal(1))
			Expect(result.Results[1].Code).To(Equal(string(internal.ErrCodeUnknownUser)))
		})

		It("rejects an empty user list upfront", func() {
			_, err := service.BulkAssign(ctx, actorID, nil, "sales", team.RoleMember)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeEmptyUserIDList))
		})

		It("rejects an invalid team before touching any user", func() {
			store.addUser(1)
			_, err := service.BulkAssign(ctx, actorID, []int64{1}, "skunkworks", team.RoleMember)
			Expect(err).To(HaveOccurred())
			Expect(store.users[1].TeamAssignments).To(BeEmpty())
		})
	})

	Describe("ListMembers", func() {
		It("returns every member with their role", func() {
			store.addUser(1)
			store.addUser(2)
			store.addUser(3)
			_, err := service.Assign(ctx, actorID, 1, "sales", team.RoleManager)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Assign(ctx, actorID, 2, "sales", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())

			members, err := service.ListMembers(ctx, "sales")
			Expect(err).NotTo(HaveOccurred())
			Expect(members).To(HaveLen(2))

			roles := make(map[int64]team.Role)
			for _, m := range members {
				roles[m.UserID] = m.Role
			}
			Expect(roles[1]).To(Equal(team.RoleManager))
			Expect(roles[2]).To(Equal(team.RoleMember))
		})
	})

	Describe("ListUnassigned", func() {
		It("returns only staff without any team", func() {
			store.addUser(1)
			store.addUser(2)
			_, err := service.Assign(ctx, actorID, 1, "sales", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())

			users, err := service.ListUnassigned(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(users).To(HaveLen(1))
			Expect(users[0].ID).To(Equal(int64(2)))
		})
	})

	Describe("GetUserTeams", func() {
		It("splits memberships into member-of and manager-of", func() {
			store.addUser(1, team.PermStaffView)
			_, err := service.Assign(ctx, actorID, 1, "sales", team.RoleManager)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Assign(ctx, actorID, 1, "marketing", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())

			view, err := service.GetUserTeams(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.ManagerOf).To(Equal([]string{"sales"}))
			Expect(view.MemberOf).To(Equal([]string{"marketing"}))
			Expect(view.Teams).To(HaveLen(2))
			Expect(view.BasePermissions).To(Equal([]team.Permission{team.PermStaffView}))
			Expect(view.EffectivePermissions).To(ContainElement(team.PermDealerManagement))
		})
	})

	Describe("GetStats", func() {
		It("counts members and managers per team and lists empty teams", func() {
			store.addUser(1)
			store.addUser(2)
			_, err := service.Assign(ctx, actorID, 1, "sales", team.RoleManager)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Assign(ctx, actorID, 2, "sales", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())

			stats, err := service.GetStats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Teams).To(HaveLen(8))
			Expect(stats.TotalAssignments).To(Equal(2))

			var sales membership.TeamStats
			for _, ts := range stats.Teams {
				if ts.TeamID == "sales" {
					sales = ts
				}
			}
			Expect(sales.ManagerCount).To(Equal(1))
			Expect(sales.MemberCount).To(Equal(1))
			Expect(sales.TotalCount).To(Equal(2))
			Expect(stats.TeamsWithZeroMembers).To(HaveLen(7))
			Expect(stats.TeamsWithZeroMembers).NotTo(ContainElement("sales"))
		})
	})

	Describe("permission lifecycle", func() {
		It("grows and shrinks the effective set exactly with membership changes", func() {
			store.addUser(1)

			// manager of sales: member set plus manager extras, 5 permissions
			_, err := service.Assign(ctx, actorID, 1, "sales", team.RoleManager)
			Expect(err).NotTo(HaveOccurred())
			Expect(effective(1)).To(HaveLen(5))
			salesOnly := append([]team.Permission{}, effective(1)...)

			// marketing membership overlaps on analytics_view, adds exactly 2
			result, err := service.Assign(ctx, actorID, 1, "marketing", team.RoleMember)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Delta.Added).To(ConsistOf(
				team.PermContentManagement,
				team.PermCampaignView,
			))
			Expect(effective(1)).To(HaveLen(7))

			// leaving marketing reverts to the exact sales-only set
			_, err = service.Remove(ctx, actorID, 1, "marketing")
			Expect(err).NotTo(HaveOccurred())
			Expect(effective(1)).To(ConsistOf(salesOnly))
		})

		It("a user with only base permissions stays unassigned with an unchanged set", func() {
			store.addUser(1, team.PermAnalyticsView)

			Expect(effective(1)).To(Equal([]team.Permission{team.PermAnalyticsView}))

			users, err := service.ListUnassigned(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(users).To(HaveLen(1))
			Expect(users[0].ID).To(Equal(int64(1)))
		})
	})

	Describe("Recalculate", func() {
		It("repairs drift and emits an audit record", func() {
			user := store.addUser(1)
			user.EffectivePermissions = []team.Permission{team.PermAccessControl}

			delta, err := service.Recalculate(ctx, actorID, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(delta.Removed).To(ConsistOf(team.PermAccessControl))

			Expect(emitter.records).To(HaveLen(1))
			Expect(emitter.records[0].Action).To(Equal(audit.ActionRecalculate))
		})
	})
})
