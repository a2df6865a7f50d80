package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"eventbot/internal/domain"
	"eventbot/internal/flow"
)

// leadByLabel maps reminder button labels back to lead times.
var leadByLabel = func() map[string]domain.LeadTime {
	m := make(map[string]domain.LeadTime, len(domain.LeadTimes))
	for _, lt := range domain.LeadTimes {
		m[lt.String()] = lt
	}
	return m
}()

var recurByLabel = map[string]domain.Recurrence{
	flow.OptRecurNone:    domain.RecurNone,
	flow.OptRecurDaily:   domain.RecurDaily,
	flow.OptRecurWeekly:  domain.RecurWeekly,
	flow.OptRecurMonthly: domain.RecurMonthly,
}

// classify turns a raw message into the tagged action the state machine
// dispatches on. This is the only place that inspects conversation button
// labels.
func classify(msg *tgbotapi.Message) flow.Action {
	if att := attachmentOf(msg); att != nil {
		return flow.Action{Kind: flow.ActAttachment, Attachment: att}
	}

	text := strings.TrimSpace(msg.Text)
	switch text {
	case btnCancel:
		return flow.Action{Kind: flow.ActCancel}
	case flow.OptSkipFile:
		return flow.Action{Kind: flow.ActSkip}
	case flow.OptPrivate:
		return flow.Action{Kind: flow.ActScopePrivate}
	case flow.OptFinish:
		return flow.Action{Kind: flow.ActFinish}
	case flow.OptNoReminder:
		return flow.Action{Kind: flow.ActDecline}
	}
	if r, ok := recurByLabel[text]; ok {
		return flow.Action{Kind: flow.ActRecurrence, Recurrence: r}
	}
	if lt, ok := leadByLabel[text]; ok {
		return flow.Action{Kind: flow.ActLeadTime, Lead: lt}
	}
	return flow.Action{Kind: flow.ActText, Text: text}
}

// attachmentOf extracts a supported file reference, if present.
func attachmentOf(msg *tgbotapi.Message) *domain.Attachment {
	switch {
	case len(msg.Photo) > 0:
		// Largest size is last.
		return &domain.Attachment{Type: "photo", ID: msg.Photo[len(msg.Photo)-1].FileID}
	case msg.Document != nil:
		return &domain.Attachment{Type: "document", ID: msg.Document.FileID}
	case msg.Voice != nil:
		return &domain.Attachment{Type: "voice", ID: msg.Voice.FileID}
	default:
		return nil
	}
}
