package sso

import "github.com/mikepea/shelf/pkg/shelf/models"

// ResolveRole maps identity provider groups onto a workspace role. Membership of the admin
// group wins over the self service group. ok is false when no group matches.
func ResolveRole(details *models.SsoDetails, groups []string) (role models.OrganizationRole, ok bool) {
	if details == nil {
		return "", false
	}

	selfService := false
	for _, g := range groups {
		switch {
		case details.AdminGroupID != "" && g == details.AdminGroupID:
			return models.OrganizationRoleAdmin, true
		case details.SelfServiceGroupID != "" && g == details.SelfServiceGroupID:
			selfService = true
		}
	}
	if selfService {
		return models.OrganizationRoleSelfService, true
	}
	return "", false
}
