package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/staff-access/internal/auth"
	"github.com/frahmantamala/staff-access/internal/membership"
	"github.com/frahmantamala/staff-access/internal/team"
	"github.com/frahmantamala/staff-access/internal/transport/middleware"
	"github.com/frahmantamala/staff-access/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, authMiddleware *auth.Middleware, authorizer *auth.Authorizer, teamHandler *team.Handler, membershipHandler *membership.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(middleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Everything below requires an authenticated staff user.
		r.Group(func(pr chi.Router) {
			pr.Use(authMiddleware.Authenticate)

			// Read surface: team catalog, membership listings, user views.
			pr.Group(func(rr chi.Router) {
				rr.Use(authorizer.RequirePermission(team.PermStaffView))

				rr.Get("/teams", teamHandler.GetTeams)
				rr.Get("/teams/stats", membershipHandler.GetStats)
				rr.Get("/teams/{teamID}", teamHandler.GetTeam)
				rr.Get("/teams/{teamID}/members", membershipHandler.ListMembers)

				rr.Get("/staff/unassigned", membershipHandler.ListUnassigned)
				rr.Get("/staff/{userID}/teams", membershipHandler.GetUserTeams)
			})

			// Mutation surface: assignment changes and permission repair.
			pr.Group(func(mr chi.Router) {
				mr.Use(authorizer.RequirePermission(team.PermAccessControl))

				mr.Post("/teams/{teamID}/members", membershipHandler.Assign)
				mr.Post("/teams/{teamID}/members/bulk", membershipHandler.BulkAssign)
				mr.Patch("/teams/{teamID}/members/{userID}", membershipHandler.UpdateRole)
				mr.Delete("/teams/{teamID}/members/{userID}", membershipHandler.Remove)

				mr.Post("/staff/{userID}/recalculate", membershipHandler.Recalculate)
				mr.Post("/staff/recalculate", membershipHandler.RecalculateAll)
			})
		})
	})
}
