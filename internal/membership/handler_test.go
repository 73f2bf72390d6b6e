package membership_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/staff-access/internal/auth"
	datamodel "github.com/frahmantamala/staff-access/internal/core/datamodel/staff"
	"github.com/frahmantamala/staff-access/internal/membership"
	"github.com/frahmantamala/staff-access/internal/permission"
	staffPostgres "github.com/frahmantamala/staff-access/internal/staff/postgres"
	"github.com/frahmantamala/staff-access/internal/team"
)

var _ = Describe("Membership Handler Integration", func() {
	var (
		db      *gorm.DB
		handler *membership.Handler
		router  *chi.Mux
		actor   *auth.Actor
	)

	seedUser := func(id int64, email string) {
		row := datamodel.StaffUser{
			ID:                   id,
			Email:                email,
			Name:                 email,
			PasswordHash:         "x",
			IsActive:             true,
			BasePermissions:      "[]",
			EffectivePermissions: "[]",
			Version:              1,
			CreatedAt:            time.Now(),
			UpdatedAt:            time.Now(),
		}
		Expect(db.Create(&row).Error).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		var err error
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&datamodel.StaffUser{}, &datamodel.TeamAssignment{})
		Expect(err).NotTo(HaveOccurred())

		catalog := team.NewCatalog()
		store := staffPostgres.NewStaffStore(db)
		resolver := permission.NewResolver(catalog, store, slogger)
		emitter := &mockEmitter{}
		service := membership.NewService(catalog, store, resolver, emitter, &noStats{}, slogger)
		handler = membership.NewHandler(service)

		actor = &auth.Actor{ID: 99, Email: "padil@mail.com", Permissions: []team.Permission{team.PermAccessControl}}

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(auth.ContextWithActor(r.Context(), actor)))
			})
		})
		router.Post("/teams/{teamID}/members", handler.Assign)
		router.Patch("/teams/{teamID}/members/{userID}", handler.UpdateRole)
		router.Delete("/teams/{teamID}/members/{userID}", handler.Remove)
		router.Get("/teams/{teamID}/members", handler.ListMembers)
		router.Get("/staff/{userID}/teams", handler.GetUserTeams)

		seedUser(1, "fadhil@mail.com")
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("assigns a member and returns the permission delta", func() {
		rec := do(http.MethodPost, "/teams/sales/members", `{"user_id":1,"role":"member"}`)
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var result membership.AssignmentResult
		Expect(json.NewDecoder(rec.Body).Decode(&result)).To(Succeed())
		Expect(result.TeamID).To(Equal("sales"))
		Expect(result.Delta.Added).To(ConsistOf(
			team.PermDealerAccounts,
			team.PermAnalyticsView,
			team.PermListingApproval,
		))
	})

	It("maps a duplicate assignment to 409 with a typed error", func() {
		Expect(do(http.MethodPost, "/teams/sales/members", `{"user_id":1,"role":"member"}`).Code).
			To(Equal(http.StatusCreated))

		rec := do(http.MethodPost, "/teams/sales/members", `{"user_id":1,"role":"manager"}`)
		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(rec.Body.String()).To(ContainSubstring("DUPLICATE_ASSIGNMENT"))
	})

	It("maps an unknown team to 400", func() {
		rec := do(http.MethodPost, "/teams/skunkworks/members", `{"user_id":1,"role":"member"}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("INVALID_TEAM_ID"))
	})

	It("maps an invalid role to 400", func() {
		rec := do(http.MethodPost, "/teams/sales/members", `{"user_id":1,"role":"admin"}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("INVALID_ROLE"))
	})

	It("updates a role through the full stack", func() {
		Expect(do(http.MethodPost, "/teams/sales/members", `{"user_id":1,"role":"member"}`).Code).
			To(Equal(http.StatusCreated))

		rec := do(http.MethodPatch, "/teams/sales/members/1", `{"role":"manager"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))

		var result membership.AssignmentResult
		Expect(json.NewDecoder(rec.Body).Decode(&result)).To(Succeed())
		Expect(result.Role).To(Equal(team.RoleManager))
		Expect(result.Delta.Added).To(ContainElement(team.PermDealerManagement))
	})

	It("removes a member and reports what was revoked", func() {
		Expect(do(http.MethodPost, "/teams/sales/members", `{"user_id":1,"role":"member"}`).Code).
			To(Equal(http.StatusCreated))

		rec := do(http.MethodDelete, "/teams/sales/members/1", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var result membership.AssignmentResult
		Expect(json.NewDecoder(rec.Body).Decode(&result)).To(Succeed())
		Expect(result.Delta.Removed).To(HaveLen(3))
	})

	It("returns 404 for an unknown user on the user teams view", func() {
		rec := do(http.MethodGet, "/staff/404/teams", "")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(rec.Body.String()).To(ContainSubstring("UNKNOWN_USER"))
	})

	It("rejects a malformed user id in the path", func() {
		rec := do(http.MethodGet, "/staff/abc/teams", "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("lists members with roles after assignments", func() {
		seedUser(2, "sari@mail.com")
		Expect(do(http.MethodPost, "/teams/sales/members", `{"user_id":1,"role":"manager"}`).Code).
			To(Equal(http.StatusCreated))
		Expect(do(http.MethodPost, "/teams/sales/members", `{"user_id":2,"role":"member"}`).Code).
			To(Equal(http.StatusCreated))

		rec := do(http.MethodGet, "/teams/sales/members", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var response struct {
			TeamID  string                  `json:"team_id"`
			Members []membership.TeamMember `json:"members"`
		}
		Expect(json.NewDecoder(rec.Body).Decode(&response)).To(Succeed())
		Expect(response.Members).To(HaveLen(2))
	})
})

// noStats satisfies the stats dependency for tests that never read stats.
type noStats struct{}

func (noStats) TeamRoleCounts(ctx context.Context) ([]membership.TeamRoleCount, error) {
	return nil, nil
}
