package postgres

import (
	"context"

	"github.com/frahmantamala/staff-access/internal/membership"
	"github.com/jmoiron/sqlx"
)

// StatsReader answers aggregate membership queries with direct SQL; the
// gorm store stays on the single-user read/write path.
type StatsReader struct {
	db *sqlx.DB
}

func NewStatsReader(db *sqlx.DB) *StatsReader {
	return &StatsReader{db: db}
}

func (r *StatsReader) TeamRoleCounts(ctx context.Context) ([]membership.TeamRoleCount, error) {
	var counts []membership.TeamRoleCount
	query := `
SELECT team_id, role, COUNT(*) AS count
FROM team_assignments
GROUP BY team_id, role
`
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, err
	}
	return counts, nil
}
