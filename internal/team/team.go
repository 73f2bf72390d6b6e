package team

import (
	internal "github.com/frahmantamala/staff-access/internal"
)

// Permission is a closed enumeration. Anything outside the catalog union is
// rejected at the boundary.
type Permission string

const (
	PermDealerAccounts      Permission = "dealer_accounts"
	PermDealerManagement    Permission = "dealer_management"
	PermAnalyticsView       Permission = "analytics_view"
	PermListingApproval     Permission = "listing_approval"
	PermBulkOperations      Permission = "bulk_operations"
	PermContentManagement   Permission = "content_management"
	PermContentPublishing   Permission = "content_publishing"
	PermCampaignView        Permission = "campaign_view"
	PermCampaignManagement  Permission = "campaign_management"
	PermInventoryView       Permission = "inventory_view"
	PermInventoryManagement Permission = "inventory_management"
	PermBillingView         Permission = "billing_view"
	PermBillingManagement   Permission = "billing_management"
	PermRefundApproval      Permission = "refund_approval"
	PermTicketView          Permission = "ticket_view"
	PermTicketAssignment    Permission = "ticket_assignment"
	PermReportExport        Permission = "report_export"
	PermReportBuilder       Permission = "report_builder"
	PermStaffView           Permission = "staff_view"
	PermStaffManagement     Permission = "staff_management"
	PermAccessControl       Permission = "access_control"
)

type Role string

const (
	RoleMember  Role = "member"
	RoleManager Role = "manager"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleMember:
		return RoleMember, nil
	case RoleManager:
		return RoleManager, nil
	default:
		return "", internal.ErrInvalidRole
	}
}

// TeamDefinition is one entry of the static catalog. ManagerPermissions are
// additive to MemberPermissions for the same team.
type TeamDefinition struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Description        string       `json:"description"`
	MemberPermissions  []Permission `json:"member_permissions"`
	ManagerPermissions []Permission `json:"manager_permissions"`
}

// PermissionsForRole returns the member set, or member plus manager for the
// manager role. The returned slice is a fresh copy.
func (t TeamDefinition) PermissionsForRole(role Role) []Permission {
	perms := make([]Permission, 0, len(t.MemberPermissions)+len(t.ManagerPermissions))
	perms = append(perms, t.MemberPermissions...)
	if role == RoleManager {
		perms = append(perms, t.ManagerPermissions...)
	}
	return perms
}
