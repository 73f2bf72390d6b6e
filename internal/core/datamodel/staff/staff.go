package staff

import "time"

type StaffUser struct {
	ID                   int64     `gorm:"primaryKey"`
	Email                string    `gorm:"column:email;uniqueIndex;not null"`
	Name                 string    `gorm:"column:name;not null"`
	PasswordHash         string    `gorm:"column:password_hash;not null"`
	IsActive             bool      `gorm:"column:is_active;default:true"`
	BasePermissions      string    `gorm:"column:base_permissions;not null;default:'[]'"`
	EffectivePermissions string    `gorm:"column:effective_permissions;not null;default:'[]'"`
	Version              int64     `gorm:"column:version;not null;default:1"`
	CreatedAt            time.Time `gorm:"column:created_at"`
	UpdatedAt            time.Time `gorm:"column:updated_at"`
}

func (StaffUser) TableName() string {
	return "staff_users"
}

type TeamAssignment struct {
	UserID     int64     `gorm:"column:user_id;primaryKey"`
	TeamID     string    `gorm:"column:team_id;primaryKey"`
	Role       string    `gorm:"column:role;not null"`
	AssignedAt time.Time `gorm:"column:assigned_at;not null"`
	AssignedBy int64     `gorm:"column:assigned_by"`
}

func (TeamAssignment) TableName() string {
	return "team_assignments"
}
