package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	internal "github.com/frahmantamala/staff-access/internal"
	datamodel "github.com/frahmantamala/staff-access/internal/core/datamodel/staff"
	"github.com/frahmantamala/staff-access/internal/staff"
	"github.com/frahmantamala/staff-access/internal/team"
	"gorm.io/gorm"
)

// StaffStore implements the staff.Store interface using GORM
type StaffStore struct {
	db *gorm.DB
}

// NewStaffStore creates a new staff store
func NewStaffStore(db *gorm.DB) staff.Store {
	return &StaffStore{db: db}
}

func (s *StaffStore) GetByID(ctx context.Context, id int64) (*staff.StaffUser, error) {
	var row datamodel.StaffUser
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrUnknownUser
		}
		return nil, err
	}

	var assignments []datamodel.TeamAssignment
	if err := s.db.WithContext(ctx).Where("user_id = ?", id).Find(&assignments).Error; err != nil {
		return nil, err
	}

	return toDomain(&row, assignments)
}

// Save persists the user and replaces their assignments in one transaction.
// The row's version must still match user.Version; a stale version returns
// a conflict. On success user.Version reflects the stored value.
func (s *StaffStore) Save(ctx context.Context, user *staff.StaffUser) error {
	basePerms, err := json.Marshal(user.BasePermissions)
	if err != nil {
		return fmt.Errorf("marshal base permissions: %w", err)
	}
	effectivePerms, err := json.Marshal(user.EffectivePermissions)
	if err != nil {
		return fmt.Errorf("marshal effective permissions: %w", err)
	}

	newVersion := user.Version + 1

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&datamodel.StaffUser{}).
			Where("id = ? AND version = ?", user.ID, user.Version).
			Updates(map[string]interface{}{
				"base_permissions":      string(basePerms),
				"effective_permissions": string(effectivePerms),
				"version":               newVersion,
				"updated_at":            time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&datamodel.StaffUser{}).Where("id = ?", user.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return internal.ErrUnknownUser
			}
			return internal.ErrVersionConflict
		}

		if err := tx.Where("user_id = ?", user.ID).Delete(&datamodel.TeamAssignment{}).Error; err != nil {
			return err
		}
		for _, a := range user.TeamAssignments {
			row := datamodel.TeamAssignment{
				UserID:     user.ID,
				TeamID:     a.TeamID,
				Role:       string(a.Role),
				AssignedAt: a.AssignedAt,
				AssignedBy: a.AssignedBy,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	user.Version = newVersion
	return nil
}

func (s *StaffStore) List(ctx context.Context) ([]*staff.StaffUser, error) {
	var rows []datamodel.StaffUser
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	var assignments []datamodel.TeamAssignment
	if err := s.db.WithContext(ctx).Find(&assignments).Error; err != nil {
		return nil, err
	}

	byUser := make(map[int64][]datamodel.TeamAssignment)
	for _, a := range assignments {
		byUser[a.UserID] = append(byUser[a.UserID], a)
	}

	users := make([]*staff.StaffUser, 0, len(rows))
	for i := range rows {
		u, err := toDomain(&rows[i], byUser[rows[i].ID])
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *StaffStore) ListUnassigned(ctx context.Context) ([]*staff.StaffUser, error) {
	var rows []datamodel.StaffUser
	err := s.db.WithContext(ctx).
		Where("id NOT IN (?)", s.db.Model(&datamodel.TeamAssignment{}).Select("user_id")).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	users := make([]*staff.StaffUser, 0, len(rows))
	for i := range rows {
		u, err := toDomain(&rows[i], nil)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func toDomain(row *datamodel.StaffUser, assignments []datamodel.TeamAssignment) (*staff.StaffUser, error) {
	var basePerms []team.Permission
	if err := json.Unmarshal([]byte(row.BasePermissions), &basePerms); err != nil {
		return nil, fmt.Errorf("unmarshal base permissions for user %d: %w", row.ID, err)
	}
	var effectivePerms []team.Permission
	if err := json.Unmarshal([]byte(row.EffectivePermissions), &effectivePerms); err != nil {
		return nil, fmt.Errorf("unmarshal effective permissions for user %d: %w", row.ID, err)
	}

	domainAssignments := make([]staff.TeamAssignment, 0, len(assignments))
	for _, a := range assignments {
		domainAssignments = append(domainAssignments, staff.TeamAssignment{
			TeamID:     a.TeamID,
			Role:       team.Role(a.Role),
			AssignedAt: a.AssignedAt,
			AssignedBy: a.AssignedBy,
		})
	}

	return &staff.StaffUser{
		ID:                   row.ID,
		Email:                row.Email,
		Name:                 row.Name,
		IsActive:             row.IsActive,
		BasePermissions:      basePerms,
		TeamAssignments:      domainAssignments,
		EffectivePermissions: effectivePerms,
		Version:              row.Version,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}, nil
}
