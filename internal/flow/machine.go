package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"eventbot/internal/domain"
	"eventbot/internal/session"
	"eventbot/internal/store"
)

// Prompt and option labels. The telegram layer classifies these labels back
// into action kinds, so they live in one place.
const (
	OptPrivate    = "Private"
	OptSkipFile   = "Skip attachment"
	OptFinish     = "Done"
	OptNoReminder = "No reminders"

	OptRecurNone    = "No repeat"
	OptRecurDaily   = "Daily"
	OptRecurWeekly  = "Weekly"
	OptRecurMonthly = "Monthly"
)

// Machine drives the multi-turn event creation dialogue. One conversation per
// user identity; every transition validates its input and invalid input
// re-prompts the same state without losing collected fields.
type Machine struct {
	repo      store.Repo
	sessions  *session.Store
	log       *zap.Logger
	ownerID   int64
	defaultTZ string
	now       func() time.Time
}

// New creates a Machine. ownerID is the bot owner (always premium); defaultTZ
// is used when a user has no stored zone.
func New(repo store.Repo, sessions *session.Store, log *zap.Logger, ownerID int64, defaultTZ string) *Machine {
	return &Machine{
		repo:      repo,
		sessions:  sessions,
		log:       log,
		ownerID:   ownerID,
		defaultTZ: defaultTZ,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Handle advances the actor's conversation with one classified action.
// Recoverable conditions (invalid input, tier limits, unknown groups) come
// back as Reply texts with the state unchanged; the returned error is
// reserved for storage and transport failures.
func (m *Machine) Handle(ctx context.Context, actorID int64, act Action) (Reply, error) {
	switch act.Kind {
	case ActCancel:
		// Pure state reset; nothing already persisted is touched.
		m.sessions.End(actorID)
		return Reply{Text: "Canceled.", Done: true}, nil

	case ActBeginEvent:
		sess := m.sessions.Begin(actorID)
		sess.State = session.CollectingTitle
		return Reply{Text: "Enter the event title:"}, nil

	case ActAssignEvent:
		if _, err := m.ResolveOwner(ctx, actorID, act.ClientID); err != nil {
			if errors.Is(err, ErrNotAuthorized) {
				return Reply{Text: "You are not a curator of this user.", Done: true}, nil
			}
			return Reply{}, err
		}
		sess := m.sessions.Begin(actorID)
		sess.State = session.CollectingTitle
		sess.Draft.ClientID = act.ClientID
		return Reply{Text: "Enter the event title:"}, nil
	}

	sess, ok := m.sessions.Get(actorID)
	if !ok || sess.State == session.Idle {
		return Reply{}, nil
	}

	switch sess.State {
	case session.CollectingTitle:
		return m.stepTitle(sess, act)
	case session.CollectingDescription:
		return m.stepDescription(sess, act)
	case session.CollectingAttachment:
		return m.stepAttachment(sess, act)
	case session.CollectingRecurrence:
		return m.stepRecurrence(sess, act)
	case session.CollectingYear:
		return m.stepYear(sess, act)
	case session.CollectingMonth:
		return m.stepMonth(sess, act)
	case session.CollectingDay:
		return m.stepDay(sess, act)
	case session.CollectingTime:
		return m.stepTime(ctx, sess, act)
	case session.CollectingScope:
		return m.stepScope(ctx, sess, act)
	case session.CollectingReminders:
		return m.stepReminders(ctx, sess, act)
	default:
		return Reply{}, nil
	}
}

// InFlight reports whether the actor has a conversation past Idle.
func (m *Machine) InFlight(actorID int64) bool {
	sess, ok := m.sessions.Get(actorID)
	return ok && sess.State != session.Idle
}

func (m *Machine) stepTitle(sess *session.Session, act Action) (Reply, error) {
	if act.Kind != ActText {
		return Reply{Text: "Send the title as text."}, nil
	}
	title, err := domain.ValidateTitle(act.Text)
	if err != nil {
		return Reply{Text: fmt.Sprintf("Title must be 1..%d characters. Try again:", domain.TitleMaxLen)}, nil
	}
	sess.Draft.Title = title
	sess.State = session.CollectingDescription
	return Reply{Text: "Enter the description:"}, nil
}

func (m *Machine) stepDescription(sess *session.Session, act Action) (Reply, error) {
	if act.Kind != ActText {
		return Reply{Text: "Send the description as text."}, nil
	}
	desc, err := domain.ValidateDescription(act.Text)
	if err != nil {
		return Reply{Text: fmt.Sprintf("Description must be 1..%d characters. Try again:", domain.DescMaxLen)}, nil
	}
	sess.Draft.Description = desc
	sess.State = session.CollectingAttachment
	return Reply{
		Text:    "Send a photo, document or voice message (or skip):",
		Options: [][]string{{OptSkipFile}},
	}, nil
}

func (m *Machine) stepAttachment(sess *session.Session, act Action) (Reply, error) {
	switch act.Kind {
	case ActAttachment:
		sess.Draft.Attachment = act.Attachment
	case ActSkip:
		sess.Draft.Attachment = nil
	default:
		return Reply{
			Text:    "Unsupported type. Send a photo, document or voice message, or skip.",
			Options: [][]string{{OptSkipFile}},
		}, nil
	}
	sess.State = session.CollectingRecurrence
	return Reply{
		Text: "Does the event repeat?",
		Options: [][]string{
			{OptRecurNone},
			{OptRecurDaily},
			{OptRecurWeekly},
			{OptRecurMonthly},
		},
	}, nil
}

func (m *Machine) stepRecurrence(sess *session.Session, act Action) (Reply, error) {
	if act.Kind != ActRecurrence {
		return Reply{
			Text: "Pick one of the options.",
			Options: [][]string{
				{OptRecurNone},
				{OptRecurDaily},
				{OptRecurWeekly},
				{OptRecurMonthly},
			},
		}, nil
	}
	sess.Draft.Recurrence = act.Recurrence
	sess.State = session.CollectingYear
	year := m.now().Year()
	return Reply{
		Text:    "Enter the year:",
		Options: [][]string{{fmt.Sprint(year), fmt.Sprint(year + 1)}},
	}, nil
}

func (m *Machine) stepYear(sess *session.Session, act Action) (Reply, error) {
	y, err := domain.ParseYear(act.Text)
	if err != nil {
		return Reply{Text: fmt.Sprintf("Enter a year between %d and %d:", domain.YearMin, domain.YearMax)}, nil
	}
	sess.Draft.Year = y
	sess.State = session.CollectingMonth
	return Reply{
		Text: "Pick the month:",
		Options: [][]string{
			{"01", "02", "03", "04", "05", "06"},
			{"07", "08", "09", "10", "11", "12"},
		},
	}, nil
}

func (m *Machine) stepMonth(sess *session.Session, act Action) (Reply, error) {
	mo, err := domain.ParseMonth(act.Text)
	if err != nil {
		return Reply{Text: "Enter a month between 01 and 12:"}, nil
	}
	sess.Draft.Month = mo
	sess.State = session.CollectingDay
	return Reply{
		Text:    "Pick the day:",
		Options: dayRows(sess.Draft.Year, mo),
	}, nil
}

// dayRows lays out day buttons seven per row for the chosen month.
func dayRows(year, month int) [][]string {
	max := domain.DaysInMonth(year, month)
	var rows [][]string
	var row []string
	for d := 1; d <= max; d++ {
		row = append(row, fmt.Sprint(d))
		if len(row) == 7 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func (m *Machine) stepDay(sess *session.Session, act Action) (Reply, error) {
	d, err := domain.ParseDay(act.Text, sess.Draft.Year, sess.Draft.Month)
	if err != nil {
		return Reply{
			Text: fmt.Sprintf("That month has %d days. Pick again:",
				domain.DaysInMonth(sess.Draft.Year, sess.Draft.Month)),
			Options: dayRows(sess.Draft.Year, sess.Draft.Month),
		}, nil
	}
	sess.Draft.Day = d
	sess.State = session.CollectingTime
	return Reply{
		Text: "Enter the time (HH:MM):",
		Options: [][]string{
			{"09:00", "12:00", "15:00", "18:00"},
			{"08:30", "10:00", "14:00", "20:00"},
		},
	}, nil
}

func (m *Machine) stepTime(ctx context.Context, sess *session.Session, act Action) (Reply, error) {
	h, min, err := domain.ParseHourMinute(act.Text)
	if err != nil {
		return Reply{Text: "Enter the time as HH:MM, e.g. 14:30:"}, nil
	}
	sess.Draft.Hour, sess.Draft.Minute = h, min
	sess.State = session.CollectingScope

	// Scope choices come from the actor's memberships as they are now, not
	// as they were when the conversation started.
	opts, err := m.scopeOptions(ctx, sess)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: "Where should the event go?", Options: opts}, nil
}

func (m *Machine) scopeOptions(ctx context.Context, sess *session.Session) ([][]string, error) {
	rows := [][]string{{OptPrivate}}
	if sess.Draft.ClientID != 0 {
		// Delegated events are always private to the client.
		return rows, nil
	}
	groups, err := m.repo.ListGroupsForMember(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		rows = append(rows, []string{g.Name})
	}
	return rows, nil
}

func (m *Machine) stepScope(ctx context.Context, sess *session.Session, act Action) (Reply, error) {
	var (
		private   bool
		groupName string
	)
	switch act.Kind {
	case ActScopePrivate:
		private = true
	case ActText:
		groupName = act.Text
	default:
		opts, err := m.scopeOptions(ctx, sess)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: "Pick a delivery target.", Options: opts}, nil
	}

	// A delegated event goes to the client alone; a group of the curator's
	// would deliver it to people unrelated to the client. Re-prompt instead
	// of trusting that the hidden buttons were not typed by hand.
	if sess.Draft.ClientID != 0 && !private {
		return Reply{
			Text:    "Events for a client are delivered privately to them.",
			Options: [][]string{{OptPrivate}},
		}, nil
	}

	ownerID, err := m.ResolveOwner(ctx, sess.UserID, sess.Draft.ClientID)
	if err != nil {
		if errors.Is(err, ErrNotAuthorized) {
			// Relation revoked mid-conversation: abort with no partial effect.
			m.sessions.End(sess.UserID)
			return Reply{Text: "You are no longer a curator of this user.", Done: true}, nil
		}
		return Reply{}, err
	}

	targetType, targetID, err := m.ResolveScope(ctx, sess.UserID, ownerID, private, groupName)
	if err != nil {
		if errors.Is(err, ErrUnknownGroup) {
			opts, oerr := m.scopeOptions(ctx, sess)
			if oerr != nil {
				return Reply{}, oerr
			}
			return Reply{Text: "No such group among your memberships. Pick again:", Options: opts}, nil
		}
		return Reply{}, err
	}

	zone, err := m.zoneForOwner(ctx, ownerID)
	if err != nil {
		return Reply{}, err
	}
	local := domain.LocalDateTime(sess.Draft.Year, sess.Draft.Month, sess.Draft.Day, sess.Draft.Hour, sess.Draft.Minute)
	at, err := domain.ToCanonical(local, zone)
	if err != nil {
		// Unknown zone or unparseable time: report and keep the state.
		return Reply{Text: "Could not interpret that time for the target timezone. Try another time:"}, nil
	}

	ev := &domain.Event{
		ID:          uuid.NewString(),
		Title:       sess.Draft.Title,
		Description: sess.Draft.Description,
		At:          at,
		LocalAt:     local,
		CreatedBy:   sess.UserID,
		TargetType:  targetType,
		TargetID:    targetID,
		Attachment:  sess.Draft.Attachment,
		Recurrence:  sess.Draft.Recurrence,
		Flags:       domain.NewFlagSet(), // all resolved until the reminder loop
		CreatedAt:   m.now(),
	}
	if err := m.repo.InsertEvent(ctx, ev); err != nil {
		m.log.Error("insert event failed", zap.Error(err), zap.Int64("user", sess.UserID))
		return Reply{Text: "Could not save the event. Try again."}, err
	}

	sess.Draft.EventID = ev.ID
	sess.Draft.Reminders = domain.NewReminderDraft()
	sess.State = session.CollectingReminders

	localView, _ := domain.ToLocal(at, zone)
	reply := Reply{
		Text:    fmt.Sprintf("Event saved: %s at %s.\nPick reminders:", ev.Title, localView),
		Options: reminderRows(),
	}
	if sess.Draft.ClientID != 0 {
		reply.Pushes = append(reply.Pushes, Push{
			UserID: sess.Draft.ClientID,
			Text:   fmt.Sprintf("Your curator scheduled an event for you: %s at %s.", ev.Title, localView),
		})
	}
	return reply, nil
}

func reminderRows() [][]string {
	var rows [][]string
	var row []string
	for _, lt := range domain.LeadTimes {
		row = append(row, lt.String())
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []string{OptFinish}, []string{OptNoReminder})
	return rows
}

func (m *Machine) stepReminders(ctx context.Context, sess *session.Session, act Action) (Reply, error) {
	switch act.Kind {
	case ActLeadTime:
		limit, err := m.actorLimit(ctx, sess.UserID)
		if err != nil {
			return Reply{}, err
		}
		if err := sess.Draft.Reminders.Select(act.Lead, limit); err != nil {
			if errors.Is(err, domain.ErrTierLimitExceeded) {
				return Reply{Text: fmt.Sprintf("Reminder limit is %d. Press %s.", limit, OptFinish)}, nil
			}
			return Reply{Text: "Pick a reminder from the list.", Options: reminderRows()}, nil
		}
		return Reply{
			Text: fmt.Sprintf("Added: %s (%d of %d).", act.Lead, sess.Draft.Reminders.ArmedCount(), limit),
		}, nil

	case ActFinish:
		fs := sess.Draft.Reminders.Finalize()
		if err := m.repo.UpdateEventFlags(ctx, sess.Draft.EventID, fs); err != nil {
			m.log.Error("finalize reminders failed", zap.Error(err), zap.String("event", sess.Draft.EventID))
			return Reply{Text: "Could not save reminders. Try again."}, err
		}
		n := fs.ArmedCount()
		m.sessions.End(sess.UserID)
		if n == 0 {
			return Reply{Text: "No reminders set.", Done: true}, nil
		}
		return Reply{Text: fmt.Sprintf("Set %d reminders.", n), Done: true}, nil

	case ActDecline:
		// The event is already persisted with every flag resolved.
		m.sessions.End(sess.UserID)
		return Reply{Text: "No reminders set.", Done: true}, nil

	default:
		return Reply{Text: "Pick a reminder from the list.", Options: reminderRows()}, nil
	}
}

// actorLimit returns the reminder cap for the acting user's effective tier.
func (m *Machine) actorLimit(ctx context.Context, actorID int64) (int, error) {
	u, err := m.repo.GetUser(ctx, actorID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.FreeReminderLimit, nil
	}
	if err != nil {
		return 0, err
	}
	return u.ReminderLimit(m.now(), m.ownerID), nil
}
