package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventbot/internal/domain"
)

func newTestRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func testUser(id int64) *domain.User {
	return &domain.User{
		ID:        id,
		Username:  "user",
		FirstName: "User",
		TZ:        "Europe/Moscow",
		Tier:      domain.TierFree,
		CreatedAt: time.Now().UTC(),
	}
}

func testEvent(targetID int64, at time.Time) *domain.Event {
	return &domain.Event{
		ID:          uuid.NewString(),
		Title:       "Standup",
		Description: "Daily sync",
		At:          at,
		LocalAt:     at.Format("2006-01-02 15:04"),
		CreatedBy:   targetID,
		TargetType:  domain.ScopePrivate,
		TargetID:    targetID,
		Recurrence:  domain.RecurNone,
		Flags:       domain.NewFlagSet(),
		CreatedAt:   time.Now().UTC(),
	}
}

func TestUpsertUser_PreservesTimezoneAndSubscription(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := testUser(1)
	require.NoError(t, repo.UpsertUser(ctx, u))
	require.NoError(t, repo.SetTimezone(ctx, 1, "Asia/Yekaterinburg"))
	exp := time.Now().UTC().Add(30 * 24 * time.Hour)
	require.NoError(t, repo.SetSubscription(ctx, 1, domain.TierPremium, false, &exp, true))

	// Re-registering with fresh identity must not reset tz or subscription.
	again := testUser(1)
	again.Username = "renamed"
	again.TZ = "UTC"
	require.NoError(t, repo.UpsertUser(ctx, again))

	got, err := repo.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Username)
	assert.Equal(t, "Asia/Yekaterinburg", got.TZ)
	assert.Equal(t, domain.TierPremium, got.Tier)
	assert.True(t, got.AutoRenew)
	require.NotNil(t, got.ExpiresAt)
	assert.Equal(t, exp.Unix(), got.ExpiresAt.Unix())
}

func TestGetUser_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetUser(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEvent_RoundTripWithFlags(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	at := time.Date(2030, time.June, 1, 11, 30, 0, 0, time.UTC)
	e := testEvent(1, at)
	e.Attachment = &domain.Attachment{Type: "photo", ID: "file-123"}
	e.Recurrence = domain.RecurWeekly
	e.Flags[domain.Lead1Hour] = domain.Armed
	e.Flags[domain.Lead15Min] = domain.Armed
	require.NoError(t, repo.InsertEvent(ctx, e))

	got, err := repo.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Title, got.Title)
	assert.True(t, got.At.Equal(at))
	assert.Equal(t, e.LocalAt, got.LocalAt)
	assert.Equal(t, domain.ScopePrivate, got.TargetType)
	require.NotNil(t, got.Attachment)
	assert.Equal(t, "file-123", got.Attachment.ID)
	assert.Equal(t, domain.RecurWeekly, got.Recurrence)
	assert.Equal(t, 2, got.Flags.ArmedCount())
	assert.Equal(t, domain.Armed, got.Flags[domain.Lead1Hour])
	assert.Equal(t, domain.Resolved, got.Flags[domain.Lead7Days])
}

func TestUpdateEventFlags(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	e := testEvent(1, time.Now().UTC().Add(time.Hour))
	require.NoError(t, repo.InsertEvent(ctx, e))

	d := domain.NewReminderDraft()
	require.NoError(t, d.Select(domain.Lead30Min, domain.FreeReminderLimit))
	require.NoError(t, repo.UpdateEventFlags(ctx, e.ID, d.Finalize()))

	got, err := repo.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Flags.ArmedCount())
	assert.Equal(t, domain.Armed, got.Flags[domain.Lead30Min])

	assert.ErrorIs(t, repo.UpdateEventFlags(ctx, "missing", d.Finalize()), ErrNotFound)
}

func TestListFutureByOwner_OrderAndScoping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)

	later := testEvent(1, now.Add(48*time.Hour))
	sooner := testEvent(1, now.Add(2*time.Hour))
	past := testEvent(1, now.Add(-time.Hour))
	other := testEvent(2, now.Add(3*time.Hour))
	for _, e := range []*domain.Event{later, sooner, past, other} {
		require.NoError(t, repo.InsertEvent(ctx, e))
	}

	got, err := repo.ListFutureByOwner(ctx, 1, now)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, sooner.ID, got[0].ID) // ascending by instant
	assert.Equal(t, later.ID, got[1].ID)
}

func TestGroups_MembershipAndLookup(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	g, err := repo.CreateGroup(ctx, "Team", 1, now)
	require.NoError(t, err)

	// Owner is implicitly a member.
	found, err := repo.GetGroupByName(ctx, 1, "Team")
	require.NoError(t, err)
	assert.Equal(t, g.ID, found.ID)

	// Non-member cannot resolve the group by name.
	_, err = repo.GetGroupByName(ctx, 2, "Team")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.AddGroupMember(ctx, g.ID, 2))
	// Duplicate join is a no-op.
	require.NoError(t, repo.AddGroupMember(ctx, g.ID, 2))

	groups, err := repo.ListGroupsForMember(ctx, 2)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	n, err := repo.CountOwnedGroups(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRelations(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.UpsertUser(ctx, testUser(10)))
	require.NoError(t, repo.UpsertUser(ctx, testUser(20)))

	require.Error(t, repo.AddRelation(ctx, 10, 10, now)) // irreflexive
	require.NoError(t, repo.AddRelation(ctx, 10, 20, now))
	require.NoError(t, repo.AddRelation(ctx, 10, 20, now)) // idempotent

	ok, err := repo.HasRelation(ctx, 10, 20)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasRelation(ctx, 20, 10)
	require.NoError(t, err)
	assert.False(t, ok, "relation is ordered")

	clients, err := repo.ListClients(ctx, 10)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, int64(20), clients[0].ID)

	curators, err := repo.ListCurators(ctx, 20)
	require.NoError(t, err)
	require.Len(t, curators, 1)

	isCur, err := repo.IsCurator(ctx, 10)
	require.NoError(t, err)
	assert.True(t, isCur)

	require.NoError(t, repo.RemoveRelation(ctx, 10, 20))
	ok, _ = repo.HasRelation(ctx, 10, 20)
	assert.False(t, ok)
}
