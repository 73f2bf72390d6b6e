package membership

import (
	internal "github.com/frahmantamala/staff-access/internal"
	"github.com/frahmantamala/staff-access/internal/team"
)

// AssignDTO is the request payload for assigning a user to a team
type AssignDTO struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

func (dto AssignDTO) Validate() error {
	if dto.UserID <= 0 {
		return internal.NewValidationError("user_id is required", internal.ErrCodeValidationFailed)
	}
	if _, err := team.ParseRole(dto.Role); err != nil {
		return err
	}
	return nil
}

// UpdateRoleDTO is the request payload for changing an assignment's role
type UpdateRoleDTO struct {
	Role string `json:"role"`
}

func (dto UpdateRoleDTO) Validate() error {
	if _, err := team.ParseRole(dto.Role); err != nil {
		return err
	}
	return nil
}

// BulkAssignDTO is the request payload for assigning many users at once
type BulkAssignDTO struct {
	UserIDs []int64 `json:"user_ids"`
	Role    string  `json:"role"`
}

func (dto BulkAssignDTO) Validate() error {
	if len(dto.UserIDs) == 0 {
		return internal.ErrEmptyUserIDList
	}
	if _, err := team.ParseRole(dto.Role); err != nil {
		return err
	}
	return nil
}
