package auth

import (
	"fmt"

	"github.com/isdelr/agora-be/internal/apperr"
)

// RequireOwner is the ownership guard for self-scoped mutations: it passes
// only when the session identity is the resource owner.
func RequireOwner(claims *Claims, ownerID string) error {
	if claims == nil {
		return apperr.ErrUnauthorized
	}
	if claims.ID != ownerID {
		return fmt.Errorf("user %s acting on %s: %w", claims.ID, ownerID, apperr.ErrForbidden)
	}
	return nil
}
