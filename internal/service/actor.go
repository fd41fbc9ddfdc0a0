package service

import (
	"context"
	"fmt"

	"divecenter-backend/internal/domain"
)

// Actor is the authenticated staff member behind a request.
type Actor struct {
	StaffID  string
	CenterID string
	Admin    bool
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// authorizeCenter allows requests without an actor (security disabled or internal callers),
// admins, and staff of the owning center.
func authorizeCenter(ctx context.Context, centerID string) error {
	a, ok := ActorFromContext(ctx)
	if !ok || a.Admin {
		return nil
	}
	if centerID == domain.AllCenters {
		return fmt.Errorf("all-centers view requires admin: %w", domain.ErrForbidden)
	}
	if a.CenterID != centerID {
		return fmt.Errorf("staff %s cannot act on center %s: %w", a.StaffID, centerID, domain.ErrForbidden)
	}
	return nil
}

func authorizeAdmin(ctx context.Context) error {
	a, ok := ActorFromContext(ctx)
	if !ok || a.Admin {
		return nil
	}
	return fmt.Errorf("staff %s is not an admin: %w", a.StaffID, domain.ErrForbidden)
}
