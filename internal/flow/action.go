// Package flow implements the event creation conversation, ownership and
// scope resolution, and the timezone rescheduler. It is transport-agnostic:
// the telegram layer classifies raw updates into Actions and renders Replies.
package flow

import "eventbot/internal/domain"

// ActionKind tags the classified user input the state machine dispatches on.
type ActionKind int

const (
	// ActText is free-form text (titles, descriptions, dates, group names).
	ActText ActionKind = iota
	// ActCancel aborts the conversation from any state without persisting.
	ActCancel
	// ActBeginEvent starts the creation flow for the actor's own event.
	ActBeginEvent
	// ActAssignEvent starts the flow on behalf of a client (delegation).
	ActAssignEvent
	// ActSkip skips the optional attachment step.
	ActSkip
	// ActAttachment carries a file reference from the transport.
	ActAttachment
	// ActRecurrence carries a recurrence choice.
	ActRecurrence
	// ActScopePrivate selects private delivery in the scope step.
	ActScopePrivate
	// ActLeadTime arms one reminder lead time.
	ActLeadTime
	// ActFinish finalizes the reminder selection.
	ActFinish
	// ActDecline ends the reminder loop leaving the event with no reminders.
	ActDecline
)

// Action is the tagged union produced by the input classification layer.
// Payload fields are meaningful only for the kinds that carry them.
type Action struct {
	Kind       ActionKind
	Text       string
	Attachment *domain.Attachment
	Recurrence domain.Recurrence
	ClientID   int64
	Lead       domain.LeadTime
}

// Reply is what the state machine asks the transport to render: a message,
// optional keyboard rows, and any out-of-band pushes to other users.
type Reply struct {
	Text    string
	Options [][]string
	Pushes  []Push
	// Done reports that the conversation ended and the main menu applies.
	Done bool
}

// Push is an out-of-band message to a user other than the actor, e.g.
// notifying a client that a curator assigned them an event.
type Push struct {
	UserID int64
	Text   string
}
