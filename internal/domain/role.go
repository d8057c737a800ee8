package domain

import "strings"

// Role is compared by name; two roles with the same name are the same role.
type Role struct {
	Name string
}

func DefineRole(name string) Role {
	return Role{Name: name}
}

func (Role) Kind() Kind { return KindRole }
func (Role) isValue()   {}

func (r Role) String() string {
	return r.Name
}

// RolesFromNames keeps the first occurrence of every non-empty name.
func RolesFromNames(names []string) []Role {
	roles := make([]Role, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		roles = append(roles, Role{Name: trimmed})
	}

	return roles
}

func RoleNames(roles []Role) []string {
	names := make([]string, 0, len(roles))
	for _, role := range RolesFromNames(roleNamesRaw(roles)) {
		names = append(names, role.Name)
	}

	return names
}

func roleNamesRaw(roles []Role) []string {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	return names
}
