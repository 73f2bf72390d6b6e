package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/frahmantamala/staff-access/internal/permission"
	staffstore "github.com/frahmantamala/staff-access/internal/staff/postgres"
	"github.com/frahmantamala/staff-access/internal/team"
	"github.com/frahmantamala/staff-access/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	recalculateAll    bool
	recalculateUserID int64

	recalculateCmd = &cobra.Command{
		Use:   "recalculate",
		Short: "Recompute cached effective permissions",
		Long:  `Recompute cached effective permissions from base permissions and team assignments, for one user or for everyone.`,
		RunE:  runRecalculate,
	}
)

func init() {
	recalculateCmd.Flags().BoolVar(&recalculateAll, "all", false, "recalculate every staff user")
	recalculateCmd.Flags().Int64Var(&recalculateUserID, "user", 0, "recalculate a single staff user by id")
}

func runRecalculate(_ *cobra.Command, _ []string) error {
	if !recalculateAll && recalculateUserID == 0 {
		return fmt.Errorf("either --all or --user must be given")
	}

	cfg, err := loadConfig(".")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := initDB(cfg.Database)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}
	defer db.Close()

	gormDB, err := initGorm(cfg.Database, db)
	if err != nil {
		log.Fatalf("failed to init orm: %v", err)
	}

	ctx := context.Background()
	resolver := permission.NewResolver(team.NewCatalog(), staffstore.NewStaffStore(gormDB), logger.L())

	if recalculateUserID != 0 {
		delta, err := resolver.Recalculate(ctx, recalculateUserID)
		if err != nil {
			return fmt.Errorf("recalculate user %d: %w", recalculateUserID, err)
		}
		fmt.Printf("user %d: %d -> %d permissions (added %d, removed %d)\n",
			delta.UserID, delta.PreviousCount, delta.NewCount, len(delta.Added), len(delta.Removed))
		return nil
	}

	results, err := resolver.RecalculateAll(ctx)
	if err != nil {
		return fmt.Errorf("recalculate all: %w", err)
	}

	repaired := 0
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
			fmt.Printf("user %d: failed: %s\n", r.UserID, r.Error)
			continue
		}
		if r.Delta.Changed() {
			repaired++
			fmt.Printf("user %d: %d -> %d permissions\n", r.UserID, r.Delta.PreviousCount, r.Delta.NewCount)
		}
	}
	fmt.Printf("processed %d users, repaired %d, failed %d\n", len(results), repaired, failed)
	return nil
}
