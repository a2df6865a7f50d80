package flow

import (
	"context"
	"errors"
	"fmt"

	"eventbot/internal/domain"
	"eventbot/internal/store"
)

var (
	// ErrNotAuthorized is returned when a curator acts on a client absent
	// from their relation set.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrUnknownGroup is returned when a named group is not among the
	// actor's memberships at resolution time.
	ErrUnknownGroup = errors.New("unknown group")
)

// ResolveOwner determines whose event is being created: the actor, unless the
// flow was entered through a curator assign action with a remembered client.
// The relation is re-checked here, not trusted from conversation start.
func (m *Machine) ResolveOwner(ctx context.Context, actorID, clientID int64) (int64, error) {
	if clientID == 0 {
		return actorID, nil
	}
	ok, err := m.repo.HasRelation(ctx, actorID, clientID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: no curator relation to %d", ErrNotAuthorized, clientID)
	}
	return clientID, nil
}

// ResolveScope maps a scope selection to a delivery target. Private targets
// the owner (the actor, or the delegated client). A group selection is looked
// up by name among the actor's current memberships, re-checked at resolution
// time since membership can change between turns.
func (m *Machine) ResolveScope(ctx context.Context, actorID, ownerID int64, private bool, groupName string) (domain.ScopeType, int64, error) {
	if private {
		return domain.ScopePrivate, ownerID, nil
	}
	g, err := m.repo.GetGroupByName(ctx, actorID, groupName)
	if errors.Is(err, store.ErrNotFound) {
		return "", 0, fmt.Errorf("%w: %q", ErrUnknownGroup, groupName)
	}
	if err != nil {
		return "", 0, err
	}
	return domain.ScopeGroup, g.ID, nil
}

// zoneForOwner returns the timezone that governs temporal normalization: the
// event owner's, never the curator's.
func (m *Machine) zoneForOwner(ctx context.Context, ownerID int64) (string, error) {
	u, err := m.repo.GetUser(ctx, ownerID)
	if err != nil {
		return "", err
	}
	if u.TZ == "" {
		return m.defaultTZ, nil
	}
	return u.TZ, nil
}
