// Package authz holds the pure authorization decisions. Every check returns a
// typed failure instead of panicking so callers inspect the result and abort
// before any store access.
package authz

import "taskgraph/internal/domain"

// RequireAuthenticated admits any verified identity.
func RequireAuthenticated(id *Identity) *domain.Error {
	if id == nil {
		return domain.Unauthorized()
	}
	return nil
}

// RequireAdmin admits ADMIN only.
func RequireAdmin(id *Identity) *domain.Error {
	if id == nil {
		return domain.Unauthorized()
	}
	if id.Role != domain.RoleAdmin {
		return domain.Forbidden("admin access only")
	}
	return nil
}

// RequireSelfOrAdmin admits the target user itself, or ADMIN.
func RequireSelfOrAdmin(id *Identity, targetUserID string) *domain.Error {
	if id == nil {
		return domain.Unauthorized()
	}
	if id.Role == domain.RoleAdmin || id.UserID == targetUserID {
		return nil
	}
	return domain.Forbidden("only admin can access other users")
}

// RequireOwnerOrAdmin admits the task's assignee, or ADMIN.
func RequireOwnerOrAdmin(id *Identity, assigneeID string) *domain.Error {
	if id == nil {
		return domain.Unauthorized()
	}
	if id.Role == domain.RoleAdmin || id.UserID == assigneeID {
		return nil
	}
	return domain.Forbidden("not the task owner")
}
