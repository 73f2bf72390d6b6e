package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeTeamAssigned        = "access.team_assigned"
	EventTypeTeamRoleChanged     = "access.team_role_changed"
	EventTypeTeamRemoved         = "access.team_removed"
	EventTypePermissionsRepaired = "access.permissions_repaired"
)

type AccessChangeEvent struct {
	BaseEvent
	Actor        int64  `json:"actor"`
	TargetUserID int64  `json:"target_user_id"`
	TeamID       string `json:"team_id,omitempty"`
	Role         string `json:"role,omitempty"`
	BeforeCount  int    `json:"before_permission_count"`
	AfterCount   int    `json:"after_permission_count"`
}

func NewAccessChangeEvent(eventType string, actor, targetUserID int64, teamID, role string, beforeCount, afterCount int) *AccessChangeEvent {
	return &AccessChangeEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"actor":          actor,
				"target_user_id": targetUserID,
				"team_id":        teamID,
				"role":           role,
				"before_count":   beforeCount,
				"after_count":    afterCount,
			},
		},
		Actor:        actor,
		TargetUserID: targetUserID,
		TeamID:       teamID,
		Role:         role,
		BeforeCount:  beforeCount,
		AfterCount:   afterCount,
	}
}
