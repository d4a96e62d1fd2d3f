// Package ownership decides whether a principal may act on a resource.
// Ownership is always resolved upward through the hierarchy (Preview →
// Version → Branch → Project → User), so callers pass the owner ID loaded
// from the resource's ownership chain. Today this is a pure equality check;
// a richer model (shared projects, roles) would slot in here without
// touching repositories or services.
package ownership

import "github.com/trackhouse/service/internal/apperr"

// Authorize returns nil when principalID owns the resource, or an auth-kind
// error otherwise.
func Authorize(principalID, resourceOwnerID string) error {
	if principalID == "" || principalID != resourceOwnerID {
		return &apperr.Error{
			Kind:          apperr.KindAuth,
			ClientMessage: "you can only access your own projects",
			Details:       principalID + " != " + resourceOwnerID,
		}
	}
	return nil
}
