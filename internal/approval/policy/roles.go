package policy

import "strings"

// Role names recognised by the fallback table.
const (
	RoleSuperadmin = "superadmin"
	RolePrincipal  = "principal"
	RoleDirector   = "director"
)

var leadershipRoles = []string{RoleSuperadmin, RolePrincipal, RoleDirector}

// fallbackRoles is the fixed role table keyed by object_type. It is not
// configurable per rule row.
var fallbackRoles = map[string][]string{
	"degree":           leadershipRoles,
	"program":          leadershipRoles,
	"branch":           leadershipRoles,
	"faculty":          leadershipRoles,
	"semester":         leadershipRoles,
	"semesters":        leadershipRoles,
	"affiliation":      leadershipRoles,
	"curriculum_group": leadershipRoles,
	"subject":          leadershipRoles,
	"academic_year":    leadershipRoles,
	"outcome":          leadershipRoles,
}

// FallbackRoles returns the role-based approvers for objectType. Unlisted
// object types get the leadership roles.
func FallbackRoles(objectType string) []string {
	roles, ok := fallbackRoles[strings.ToLower(strings.TrimSpace(objectType))]
	if !ok {
		roles = leadershipRoles
	}
	out := make([]string, len(roles))
	copy(out, roles)
	return out
}
