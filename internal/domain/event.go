package domain

import "time"

// ScopeType is the kind of delivery target an event is addressed to.
type ScopeType string

const (
	ScopePrivate ScopeType = "private"
	ScopeGroup   ScopeType = "group"
)

// Attachment references a file stored by the transport (opaque id plus the
// transport's type tag: photo, document, voice).
type Attachment struct {
	Type string
	ID   string
}

// Event is a scheduled occurrence. At is always the canonical UTC instant;
// local renderings are derived with the viewer's zone at display time. The
// delivery target (TargetType/TargetID) owns the event and may differ from
// CreatedBy when a curator assigned it.
type Event struct {
	ID          string // uuid
	Title       string
	Description string
	At          time.Time
	LocalAt     string // wall clock as entered, canonical layout, owner's zone
	CreatedBy   int64
	TargetType  ScopeType
	TargetID    int64
	Attachment  *Attachment
	Recurrence  Recurrence
	Flags       FlagSet
	CreatedAt   time.Time
}

// Group is a named delivery target owned by a user. The owner is implicitly a
// member.
type Group struct {
	ID        int64
	Name      string
	OwnerID   int64
	CreatedAt time.Time
}

// MaxOwnedGroups caps how many groups a single user may own.
const MaxOwnedGroups = 10

// Relation is an ordered curator→client pair. Irreflexive: a user never
// curates themself.
type Relation struct {
	CuratorID int64
	ClientID  int64
	AddedAt   time.Time
}
