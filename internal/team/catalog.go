package team

import (
	"sort"

	internal "github.com/frahmantamala/staff-access/internal"
)

// Catalog is the process-wide registry of predefined teams. It is built once
// at startup and never mutated afterwards, so all reads are lock-free.
// Changing the team definitions means a deploy followed by a full
// recalculation of staff effective permissions.
type Catalog struct {
	teams map[string]TeamDefinition
	order []string
	perms map[Permission]struct{}
}

var definitions = []TeamDefinition{
	{
		ID:                 "sales",
		Name:               "Sales",
		Description:        "Dealer acquisition and listing sales",
		MemberPermissions:  []Permission{PermDealerAccounts, PermAnalyticsView, PermListingApproval},
		ManagerPermissions: []Permission{PermDealerManagement, PermBulkOperations},
	},
	{
		ID:                 "marketing",
		Name:               "Marketing",
		Description:        "Campaigns and site content promotion",
		MemberPermissions:  []Permission{PermContentManagement, PermCampaignView, PermAnalyticsView},
		ManagerPermissions: []Permission{PermCampaignManagement, PermBulkOperations},
	},
	{
		ID:                 "operations",
		Name:               "Operations",
		Description:        "Listing moderation and inventory operations",
		MemberPermissions:  []Permission{PermListingApproval, PermInventoryView},
		ManagerPermissions: []Permission{PermInventoryManagement, PermBulkOperations},
	},
	{
		ID:                 "finance",
		Name:               "Finance",
		Description:        "Billing and settlement",
		MemberPermissions:  []Permission{PermBillingView, PermAnalyticsView},
		ManagerPermissions: []Permission{PermBillingManagement, PermRefundApproval},
	},
	{
		ID:                 "support",
		Name:               "Customer Support",
		Description:        "Dealer and buyer support tickets",
		MemberPermissions:  []Permission{PermTicketView, PermDealerAccounts},
		ManagerPermissions: []Permission{PermTicketAssignment, PermRefundApproval},
	},
	{
		ID:                 "content",
		Name:               "Content",
		Description:        "Editorial content and listing quality",
		MemberPermissions:  []Permission{PermContentManagement, PermListingApproval},
		ManagerPermissions: []Permission{PermContentPublishing},
	},
	{
		ID:                 "analytics",
		Name:               "Analytics",
		Description:        "Reporting and data exports",
		MemberPermissions:  []Permission{PermAnalyticsView, PermReportExport},
		ManagerPermissions: []Permission{PermReportBuilder},
	},
	{
		ID:                 "platform",
		Name:               "Platform Administration",
		Description:        "Staff and access control administration",
		MemberPermissions:  []Permission{PermStaffView, PermAnalyticsView},
		ManagerPermissions: []Permission{PermAccessControl, PermStaffManagement, PermBulkOperations},
	},
}

// NewCatalog builds the catalog from the static definitions.
func NewCatalog() *Catalog {
	c := &Catalog{
		teams: make(map[string]TeamDefinition, len(definitions)),
		order: make([]string, 0, len(definitions)),
		perms: make(map[Permission]struct{}),
	}
	for _, def := range definitions {
		c.teams[def.ID] = def
		c.order = append(c.order, def.ID)
		for _, p := range def.MemberPermissions {
			c.perms[p] = struct{}{}
		}
		for _, p := range def.ManagerPermissions {
			c.perms[p] = struct{}{}
		}
	}
	return c
}

func (c *Catalog) GetTeam(id string) (TeamDefinition, error) {
	def, ok := c.teams[id]
	if !ok {
		return TeamDefinition{}, internal.ErrUnknownTeam
	}
	return def, nil
}

func (c *Catalog) HasTeam(id string) bool {
	_, ok := c.teams[id]
	return ok
}

// ListTeams returns all definitions in declaration order.
func (c *Catalog) ListTeams() []TeamDefinition {
	out := make([]TeamDefinition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.teams[id])
	}
	return out
}

// TeamPermissions returns the permission set a role contributes for a team.
func (c *Catalog) TeamPermissions(id string, role Role) ([]Permission, error) {
	def, ok := c.teams[id]
	if !ok {
		return nil, internal.ErrInvalidTeamID
	}
	if role != RoleMember && role != RoleManager {
		return nil, internal.ErrInvalidRole
	}
	return def.PermissionsForRole(role), nil
}

// KnownPermission reports whether p appears in any team's permission sets.
func (c *Catalog) KnownPermission(p Permission) bool {
	_, ok := c.perms[p]
	return ok
}

// AllPermissions returns the sorted union of every team's permissions.
func (c *Catalog) AllPermissions() []Permission {
	out := make([]Permission, 0, len(c.perms))
	for p := range c.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
