package access

// Role is the single role value recorded per user. The platform and
// organization vocabularies overlap on "owner" and "admin"; classification
// is derived from set membership below, never from a separate flag.
type Role string

const (
	RoleAdministrator   Role = "administrator"
	RoleAdmin           Role = "admin"
	RoleOwner           Role = "owner"
	RoleStaff           Role = "staff"
	RoleReception       Role = "reception"
	RoleRegisteredNurse Role = "registered_nurse"
	RoleCaregiver       Role = "caregiver"
)

var platformRoles = map[Role]struct{}{
	RoleAdministrator: {},
	RoleAdmin:         {},
	RoleOwner:         {},
}

var orgRoles = map[Role]struct{}{
	RoleOwner:           {},
	RoleAdmin:           {},
	RoleStaff:           {},
	RoleReception:       {},
	RoleRegisteredNurse: {},
	RoleCaregiver:       {},
}

// IsSuperAdmin reports whether the role grants super-admin portal access.
func IsSuperAdmin(role Role) bool {
	_, ok := platformRoles[role]
	return ok
}

// IsOrgUser reports whether the role is scoped to a single organization.
// "owner" and "admin" belong to both vocabularies; platform classification
// wins, so an ambiguous role is never silently downgraded to org level.
func IsOrgUser(role Role) bool {
	if IsSuperAdmin(role) {
		return false
	}
	_, ok := orgRoles[role]
	return ok
}

// Known reports whether the role belongs to either vocabulary.
func Known(role Role) bool {
	if _, ok := platformRoles[role]; ok {
		return true
	}
	_, ok := orgRoles[role]
	return ok
}

// Action enumerates the per-resource capabilities of the permission matrix.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Rule is one permission-matrix tuple, unique per (role, resource).
type Rule struct {
	Role      Role   `json:"role"`
	Resource  string `json:"resource"`
	CanView   bool   `json:"can_view"`
	CanCreate bool   `json:"can_create"`
	CanEdit   bool   `json:"can_edit"`
	CanDelete bool   `json:"can_delete"`
}

// Allows reports whether the rule grants the given action.
func (r Rule) Allows(action Action) bool {
	switch action {
	case ActionView:
		return r.CanView
	case ActionCreate:
		return r.CanCreate
	case ActionEdit:
		return r.CanEdit
	case ActionDelete:
		return r.CanDelete
	default:
		return false
	}
}

// PermissionSet is a caller's resolved permission mapping. The zero value
// denies everything, which is what a failed or empty load resolves to.
type PermissionSet struct {
	Role  Role            `json:"role"`
	Rules map[string]Rule `json:"rules"`
}

// Can reports whether the set grants action on resource. Resources absent
// from the set are denied: allow-list semantics, not deny-list.
func (p PermissionSet) Can(resource string, action Action) bool {
	rule, ok := p.Rules[resource]
	if !ok {
		return false
	}
	return rule.Allows(action)
}
