package config

import "strings"

// ParseAdminRoleNames parses a comma-separated list of admin role names
// Returns a slice of trimmed, non-empty role names
// Default roles if empty: ["admin", "superadmin"]
func ParseAdminRoleNames(envValue string) []string {
	// Use default if not provided
	if envValue == "" {
		return []string{"admin", "superadmin"}
	}

	parts := strings.Split(envValue, ",")
	roles := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			roles = append(roles, trimmed)
		}
	}

	// Fallback to default if all values were empty
	if len(roles) == 0 {
		return []string{"admin", "superadmin"}
	}

	return roles
}

// IsAdminRole checks if the given role is in the list of admin roles
// Performs case-insensitive comparison
func IsAdminRole(role string, adminRoles []string) bool {
	for _, adminRole := range adminRoles {
		if strings.EqualFold(adminRole, role) {
			return true
		}
	}
	return false
}
