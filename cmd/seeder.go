package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	datamodel "github.com/frahmantamala/staff-access/internal/core/datamodel/staff"
	"github.com/frahmantamala/staff-access/internal/permission"
	"github.com/frahmantamala/staff-access/internal/staff"
	staffstore "github.com/frahmantamala/staff-access/internal/staff/postgres"
	"github.com/frahmantamala/staff-access/internal/team"
	"github.com/frahmantamala/staff-access/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

type seedUser struct {
	Email           string
	Name            string
	BasePermissions []team.Permission
	Teams           []struct {
		TeamID string
		Role   team.Role
	}
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample staff users and team assignments for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		gormDB, err := initGorm(cfg.Database, db)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"team_assignments", "audit_records", "staff_users"} {
				if err := gormDB.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		users := []seedUser{
			{
				Email:           "padil@mail.com",
				Name:            "Padil Admin",
				BasePermissions: []team.Permission{team.PermStaffView, team.PermAccessControl, team.PermStaffManagement},
			},
			{
				Email: "fadhil@mail.com",
				Name:  "Fadhil",
				Teams: []struct {
					TeamID string
					Role   team.Role
				}{{TeamID: "sales", Role: team.RoleManager}},
			},
			{
				Email: "sari@mail.com",
				Name:  "Sari",
				Teams: []struct {
					TeamID string
					Role   team.Role
				}{
					{TeamID: "sales", Role: team.RoleMember},
					{TeamID: "marketing", Role: team.RoleMember},
				},
			},
		}

		ctx := context.Background()
		catalog := team.NewCatalog()
		repo := staffstore.NewStaffStore(gormDB)
		resolver := permission.NewResolver(catalog, repo, logger.L())

		for _, u := range users {
			for _, p := range u.BasePermissions {
				if !catalog.KnownPermission(p) {
					log.Fatalf("seed user %s has permission %q outside the catalog", u.Email, p)
				}
			}

			var exists int
			row := gormDB.Raw("SELECT 1 FROM staff_users WHERE email = ?", u.Email).Row()
			if err := row.Scan(&exists); err == nil {
				fmt.Println("user already exists, skipping insert:", u.Email)
			} else {
				base, _ := json.Marshal(u.BasePermissions)
				if u.BasePermissions == nil {
					base = []byte("[]")
				}
				record := datamodel.StaffUser{
					Email:                u.Email,
					Name:                 u.Name,
					PasswordHash:         string(hash),
					IsActive:             true,
					BasePermissions:      string(base),
					EffectivePermissions: string(base),
					Version:              1,
					CreatedAt:            time.Now().UTC(),
					UpdatedAt:            time.Now().UTC(),
				}
				if err := gormDB.Create(&record).Error; err != nil {
					log.Fatalf("failed to insert user %s: %v", u.Email, err)
				}
				fmt.Println("Seeded user:", u.Email)
			}

			if len(u.Teams) == 0 {
				continue
			}

			var userID int64
			if err := gormDB.Raw("SELECT id FROM staff_users WHERE email = ?", u.Email).Row().Scan(&userID); err != nil {
				log.Fatalf("failed to lookup user id for %s: %v", u.Email, err)
			}

			user, err := repo.GetByID(ctx, userID)
			if err != nil {
				log.Fatalf("failed to load user %s: %v", u.Email, err)
			}

			for _, t := range u.Teams {
				if _, ok := user.AssignmentFor(t.TeamID); ok {
					continue
				}
				user.TeamAssignments = append(user.TeamAssignments, staff.TeamAssignment{
					TeamID:     t.TeamID,
					Role:       t.Role,
					AssignedAt: time.Now().UTC(),
					AssignedBy: 0,
				})
			}

			if _, err := resolver.RecalculateUser(ctx, user); err != nil {
				log.Fatalf("failed to resolve permissions for %s: %v", u.Email, err)
			}
			fmt.Println("Assigned teams for user:", u.Email)
		}

		fmt.Println("Seed data loaded successfully")
	},
}
