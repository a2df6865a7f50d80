package store

import (
	"context"
	"errors"
	"time"

	"eventbot/internal/domain"
)

// ErrNotFound is returned when a keyed lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Repo defines storage operations over the four collections the core needs:
// users, events, groups (with membership), and curator-client relations.
type Repo interface {
	// UpsertUser inserts the user or refreshes identity fields, preserving any
	// existing timezone and subscription state.
	UpsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	SetTimezone(ctx context.Context, id int64, tz string) error
	// SetSubscription is the single inbound effect point of the billing
	// collaborator.
	SetSubscription(ctx context.Context, id int64, tier domain.Tier, lifetime bool, expiresAt *time.Time, autoRenew bool) error

	// InsertEvent persists the event together with its full reminder flag set
	// in one statement, so no event ever exists without reminder state.
	InsertEvent(ctx context.Context, e *domain.Event) error
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	UpdateEventFlags(ctx context.Context, id string, fs domain.FlagSet) error
	UpdateEventTime(ctx context.Context, id string, at time.Time) error
	// ListFutureByOwner returns private events delivered to ownerID with a
	// canonical instant strictly after now, ordered by instant ascending.
	ListFutureByOwner(ctx context.Context, ownerID int64, now time.Time) ([]domain.Event, error)
	// ListUpcoming returns up to limit events for a delivery target, ordered
	// by instant ascending.
	ListUpcoming(ctx context.Context, tt domain.ScopeType, targetID int64, now time.Time, limit int) ([]domain.Event, error)

	CreateGroup(ctx context.Context, name string, ownerID int64, now time.Time) (*domain.Group, error)
	GetGroup(ctx context.Context, id int64) (*domain.Group, error)
	// GetGroupByName resolves a group by display name among the groups the
	// given user is a member of.
	GetGroupByName(ctx context.Context, memberID int64, name string) (*domain.Group, error)
	ListGroupsForMember(ctx context.Context, userID int64) ([]domain.Group, error)
	CountOwnedGroups(ctx context.Context, ownerID int64) (int, error)
	AddGroupMember(ctx context.Context, groupID, userID int64) error

	AddRelation(ctx context.Context, curatorID, clientID int64, now time.Time) error
	RemoveRelation(ctx context.Context, curatorID, clientID int64) error
	HasRelation(ctx context.Context, curatorID, clientID int64) (bool, error)
	ListClients(ctx context.Context, curatorID int64) ([]domain.User, error)
	ListCurators(ctx context.Context, clientID int64) ([]domain.User, error)
	IsCurator(ctx context.Context, userID int64) (bool, error)

	Close() error
}
