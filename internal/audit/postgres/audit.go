package postgres

import (
	"context"

	"github.com/frahmantamala/staff-access/internal/audit"
	datamodel "github.com/frahmantamala/staff-access/internal/core/datamodel/audit"
	"gorm.io/gorm"
)

// AuditStore implements the audit.Sink interface using GORM
type AuditStore struct {
	db *gorm.DB
}

func NewAuditStore(db *gorm.DB) audit.Sink {
	return &AuditStore{db: db}
}

func (s *AuditStore) Store(ctx context.Context, record audit.Record) error {
	row := datamodel.Record{
		ID:                    record.ID,
		Actor:                 record.Actor,
		Action:                record.Action,
		TargetUserID:          record.TargetUserID,
		TeamID:                record.TeamID,
		Role:                  record.Role,
		BeforePermissionCount: record.BeforePermissionCount,
		AfterPermissionCount:  record.AfterPermissionCount,
		Timestamp:             record.Timestamp,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}
