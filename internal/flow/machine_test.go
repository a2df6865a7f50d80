package flow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eventbot/internal/domain"
	"eventbot/internal/session"
	"eventbot/internal/store"
)

const testOwnerID = 9999

func newTestMachine(t *testing.T) (*Machine, *store.SQLiteRepo) {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	m := New(repo, session.NewStore(), zap.NewNop(), testOwnerID, "UTC")
	return m, repo
}

func addUser(t *testing.T, repo store.Repo, id int64, tz string) {
	t.Helper()
	require.NoError(t, repo.UpsertUser(context.Background(), &domain.User{
		ID: id, FirstName: fmt.Sprintf("u%d", id), TZ: tz,
		Tier: domain.TierFree, CreatedAt: time.Now().UTC(),
	}))
}

// drive feeds a sequence of actions, failing the test on transport errors.
func drive(t *testing.T, m *Machine, userID int64, acts ...Action) Reply {
	t.Helper()
	var last Reply
	for i, act := range acts {
		r, err := m.Handle(context.Background(), userID, act)
		require.NoError(t, err, "action %d", i)
		last = r
	}
	return last
}

func text(s string) Action { return Action{Kind: ActText, Text: s} }

// creationSteps walks from begin through the time step for 2030-06-01 14:30.
func creationSteps() []Action {
	return []Action{
		{Kind: ActBeginEvent},
		text("Dentist"),
		text("Checkup appointment"),
		{Kind: ActSkip},
		{Kind: ActRecurrence, Recurrence: domain.RecurNone},
		text("2030"),
		text("06"),
		text("1"),
		text("14:30"),
	}
}

func TestFlow_HappyPathPrivate(t *testing.T) {
	m, repo := newTestMachine(t)
	ctx := context.Background()
	addUser(t, repo, 1, "Europe/Moscow")

	r := drive(t, m, 1, creationSteps()...)
	assert.Contains(t, r.Text, "Where should the event go?")
	assert.Equal(t, [][]string{{OptPrivate}}, r.Options)

	r = drive(t, m, 1, Action{Kind: ActScopePrivate})
	assert.Contains(t, r.Text, "Event saved")

	// Persisted with canonical UTC instant (14:30 MSK = 11:30 UTC) and every
	// flag resolved before the reminder loop touches it.
	events, err := repo.ListUpcoming(ctx, domain.ScopePrivate, 1, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	want := time.Date(2030, time.June, 1, 11, 30, 0, 0, time.UTC)
	assert.True(t, events[0].At.Equal(want), "got %v", events[0].At)
	assert.Equal(t, "2030-06-01 14:30", events[0].LocalAt, "entered wall clock recorded")
	assert.Equal(t, 0, events[0].Flags.ArmedCount())

	r = drive(t, m, 1,
		Action{Kind: ActLeadTime, Lead: domain.Lead1Hour},
		Action{Kind: ActLeadTime, Lead: domain.Lead15Min},
		Action{Kind: ActFinish},
	)
	assert.True(t, r.Done)
	assert.Contains(t, r.Text, "2 reminders")

	got, err := repo.GetEvent(ctx, events[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Flags.ArmedCount())
	assert.Equal(t, domain.Armed, got.Flags[domain.Lead1Hour])

	assert.False(t, m.InFlight(1), "session destroyed on completion")
}

func TestFlow_InvalidInputReprompts(t *testing.T) {
	m, repo := newTestMachine(t)
	addUser(t, repo, 1, "UTC")

	drive(t, m, 1,
		Action{Kind: ActBeginEvent},
		text("Review"),
		text("Quarterly"),
		Action{Kind: ActSkip},
		Action{Kind: ActRecurrence, Recurrence: domain.RecurNone},
		text("2030"),
		text("04"),
	)

	// April has 30 days: 31 re-prompts without losing collected fields.
	r := drive(t, m, 1, text("31"))
	assert.Contains(t, r.Text, "30 days")

	r = drive(t, m, 1, text("30"), text("25:00"))
	assert.Contains(t, r.Text, "HH:MM")

	r = drive(t, m, 1, text("10:00"))
	assert.Contains(t, r.Text, "Where should the event go?")
}

func TestFlow_CancelPersistsNothing(t *testing.T) {
	m, repo := newTestMachine(t)
	addUser(t, repo, 1, "UTC")

	drive(t, m, 1, creationSteps()...)
	r := drive(t, m, 1, Action{Kind: ActCancel})
	assert.True(t, r.Done)
	assert.False(t, m.InFlight(1))

	events, err := repo.ListUpcoming(context.Background(), domain.ScopePrivate, 1, time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFlow_CancelAfterPersistKeepsEvent(t *testing.T) {
	m, repo := newTestMachine(t)
	addUser(t, repo, 1, "UTC")

	drive(t, m, 1, creationSteps()...)
	drive(t, m, 1, Action{Kind: ActScopePrivate})
	// Cancel during the reminder loop resets state only; the persisted event
	// stays, with no reminders armed.
	drive(t, m, 1, Action{Kind: ActLeadTime, Lead: domain.Lead1Hour}, Action{Kind: ActCancel})

	events, err := repo.ListUpcoming(context.Background(), domain.ScopePrivate, 1, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 0, events[0].Flags.ArmedCount())
}

func TestFlow_TierLimitFree(t *testing.T) {
	m, repo := newTestMachine(t)
	addUser(t, repo, 1, "UTC")

	drive(t, m, 1, creationSteps()...)
	drive(t, m, 1, Action{Kind: ActScopePrivate})

	for i, lt := range domain.LeadTimes[:domain.FreeReminderLimit] {
		r := drive(t, m, 1, Action{Kind: ActLeadTime, Lead: lt})
		assert.Contains(t, r.Text, "Added", "lead %d", i)
	}
	r := drive(t, m, 1, Action{Kind: ActLeadTime, Lead: domain.LeadTimes[domain.FreeReminderLimit]})
	assert.Contains(t, r.Text, "limit")

	r = drive(t, m, 1, Action{Kind: ActFinish})
	assert.True(t, r.Done)

	events, err := repo.ListUpcoming(context.Background(), domain.ScopePrivate, 1, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.FreeReminderLimit, events[0].Flags.ArmedCount())
}

func TestFlow_DeclineReminders(t *testing.T) {
	m, repo := newTestMachine(t)
	addUser(t, repo, 1, "UTC")

	drive(t, m, 1, creationSteps()...)
	drive(t, m, 1, Action{Kind: ActScopePrivate})
	r := drive(t, m, 1, Action{Kind: ActDecline})
	assert.True(t, r.Done)

	events, err := repo.ListUpcoming(context.Background(), domain.ScopePrivate, 1, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 0, events[0].Flags.ArmedCount())
}

func TestFlow_DelegationUnauthorized(t *testing.T) {
	m, repo := newTestMachine(t)
	addUser(t, repo, 1, "UTC")
	addUser(t, repo, 2, "UTC")

	// No curator relation: the assign action is rejected and nothing starts.
	r := drive(t, m, 1, Action{Kind: ActAssignEvent, ClientID: 2})
	assert.Contains(t, r.Text, "not a curator")
	assert.False(t, m.InFlight(1))

	events, err := repo.ListUpcoming(context.Background(), domain.ScopePrivate, 2, time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFlow_DelegationUsesClientZone(t *testing.T) {
	m, repo := newTestMachine(t)
	ctx := context.Background()
	// Curator in Moscow, client in Yekaterinburg (UTC+5).
	addUser(t, repo, 1, "Europe/Moscow")
	addUser(t, repo, 2, "Asia/Yekaterinburg")
	require.NoError(t, repo.AddRelation(ctx, 1, 2, time.Now().UTC()))

	steps := creationSteps()
	steps[0] = Action{Kind: ActAssignEvent, ClientID: 2}
	r := drive(t, m, 1, steps...)
	// Delegated flow offers only private delivery.
	assert.Equal(t, [][]string{{OptPrivate}}, r.Options)

	r = drive(t, m, 1, Action{Kind: ActScopePrivate})
	assert.Contains(t, r.Text, "Event saved")
	require.Len(t, r.Pushes, 1)
	assert.Equal(t, int64(2), r.Pushes[0].UserID)

	// 14:30 in the client's zone (+5), not the curator's (+3): 09:30 UTC.
	events, err := repo.ListUpcoming(ctx, domain.ScopePrivate, 2, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	want := time.Date(2030, time.June, 1, 9, 30, 0, 0, time.UTC)
	assert.True(t, events[0].At.Equal(want), "got %v", events[0].At)
	assert.Equal(t, int64(1), events[0].CreatedBy)
	assert.Equal(t, int64(2), events[0].TargetID)
}

func TestFlow_DelegationRejectsGroupScope(t *testing.T) {
	m, repo := newTestMachine(t)
	ctx := context.Background()
	addUser(t, repo, 1, "Europe/Moscow")
	addUser(t, repo, 2, "Asia/Yekaterinburg")
	require.NoError(t, repo.AddRelation(ctx, 1, 2, time.Now().UTC()))
	g, err := repo.CreateGroup(ctx, "CuratorTeam", 1, time.Now().UTC())
	require.NoError(t, err)

	steps := creationSteps()
	steps[0] = Action{Kind: ActAssignEvent, ClientID: 2}
	drive(t, m, 1, steps...)

	// Typing the curator's own group name must not smuggle a group target
	// past the private-only delegation rule.
	r := drive(t, m, 1, text("CuratorTeam"))
	assert.Contains(t, r.Text, "delivered privately")
	assert.Equal(t, [][]string{{OptPrivate}}, r.Options)

	groupEvents, err := repo.ListUpcoming(ctx, domain.ScopeGroup, g.ID, time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Empty(t, groupEvents, "nothing persisted to the group")
	clientEvents, err := repo.ListUpcoming(ctx, domain.ScopePrivate, 2, time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Empty(t, clientEvents, "nothing persisted yet")

	// The flow continues: private delivery in the client's zone (UTC+5).
	r = drive(t, m, 1, Action{Kind: ActScopePrivate})
	assert.Contains(t, r.Text, "Event saved")

	clientEvents, err = repo.ListUpcoming(ctx, domain.ScopePrivate, 2, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, clientEvents, 1)
	want := time.Date(2030, time.June, 1, 9, 30, 0, 0, time.UTC)
	assert.True(t, clientEvents[0].At.Equal(want), "got %v", clientEvents[0].At)
}

func TestFlow_RelationRevokedMidConversation(t *testing.T) {
	m, repo := newTestMachine(t)
	ctx := context.Background()
	addUser(t, repo, 1, "UTC")
	addUser(t, repo, 2, "UTC")
	require.NoError(t, repo.AddRelation(ctx, 1, 2, time.Now().UTC()))

	steps := creationSteps()
	steps[0] = Action{Kind: ActAssignEvent, ClientID: 2}
	drive(t, m, 1, steps...)

	// Client removes the curator between turns: resolution re-checks and
	// aborts with no partial effect.
	require.NoError(t, repo.RemoveRelation(ctx, 1, 2))
	r := drive(t, m, 1, Action{Kind: ActScopePrivate})
	assert.Contains(t, r.Text, "no longer a curator")
	assert.False(t, m.InFlight(1))

	events, err := repo.ListUpcoming(ctx, domain.ScopePrivate, 2, time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFlow_GroupScope(t *testing.T) {
	m, repo := newTestMachine(t)
	ctx := context.Background()
	addUser(t, repo, 1, "UTC")
	g, err := repo.CreateGroup(ctx, "Team", 1, time.Now().UTC())
	require.NoError(t, err)

	r := drive(t, m, 1, creationSteps()...)
	assert.Contains(t, r.Options, []string{"Team"})

	// A name outside the actor's memberships re-prompts the scope step.
	r = drive(t, m, 1, text("Ghosts"))
	assert.Contains(t, r.Text, "No such group")

	r = drive(t, m, 1, text("Team"))
	assert.Contains(t, r.Text, "Event saved")

	events, err := repo.ListUpcoming(ctx, domain.ScopeGroup, g.ID, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.ScopeGroup, events[0].TargetType)
}

func TestFlow_SelectReminderIdempotentInLoop(t *testing.T) {
	m, repo := newTestMachine(t)
	addUser(t, repo, 1, "UTC")

	drive(t, m, 1, creationSteps()...)
	drive(t, m, 1, Action{Kind: ActScopePrivate})
	drive(t, m, 1,
		Action{Kind: ActLeadTime, Lead: domain.Lead1Hour},
		Action{Kind: ActLeadTime, Lead: domain.Lead1Hour},
	)
	r := drive(t, m, 1, Action{Kind: ActFinish})
	assert.True(t, r.Done)

	events, err := repo.ListUpcoming(context.Background(), domain.ScopePrivate, 1, time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, events[0].Flags.ArmedCount())
}
