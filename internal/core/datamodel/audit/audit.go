package audit

import "time"

type Record struct {
	ID                    string    `gorm:"primaryKey"`
	Actor                 int64     `gorm:"column:actor;not null"`
	Action                string    `gorm:"column:action;not null"`
	TargetUserID          int64     `gorm:"column:target_user_id;not null"`
	TeamID                string    `gorm:"column:team_id"`
	Role                  string    `gorm:"column:role"`
	BeforePermissionCount int       `gorm:"column:before_permission_count"`
	AfterPermissionCount  int       `gorm:"column:after_permission_count"`
	Timestamp             time.Time `gorm:"column:timestamp;not null"`
}

func (Record) TableName() string {
	return "audit_records"
}
