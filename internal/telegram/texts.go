package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"eventbot/internal/domain"
)

// Menu button labels. The classifier maps these to actions in one place; the
// state machine never sees raw label strings.
const (
	btnCreate    = "➕ New event"
	btnMyEvents  = "📋 My events"
	btnGroups    = "👥 Groups"
	btnHelp      = "❓ Help"
	btnProfile   = "⚙️ Profile"
	btnClients   = "👨‍🏫 Clients"
	btnBack      = "🔙 Back"
	btnCancel    = "❌ Cancel"
	btnChangeTZ  = "🌍 Change timezone"
	btnLocateTZ  = "📍 Detect by location"
	btnSendLoc   = "📍 Send my location"
	btnCurators  = "👥 My curators"
	btnAddCur    = "➕ Add curator"
	btnSubscribe = "💳 Subscribe"
	btnSupport   = "🛠 Support"
	btnAssign    = "📅 Assign event"
	btnDropCli   = "🗑 Remove client"
	btnDropCur   = "🗑 Remove curator"

	clientPrefix  = "👤 "
	curatorPrefix = "👨‍🏫 "
)

const (
	startFmt = "Hi, %s! 🎉\n\n" +
		"I help you remember what matters — events, meetings, deadlines.\n" +
		"Pick an action from the menu below."

	helpText = "📘 *Help*\n\n" +
		"I manage events and reminders.\n\n" +
		"🔹 *Free*:\n" +
		"• Event creation\n" +
		"• Up to 6 reminders per event\n" +
		"• Groups\n\n" +
		"💎 *Premium*:\n" +
		"• Up to 26 reminders per event\n" +
		"• Events keep their local time when you change timezone\n" +
		"• Priority support"

	supportText = "🛠 Contact support:\n[Open the support chat](https://t.me/helper_tp)"
)

// mainMenuKeyboard builds the top-level reply keyboard; curators get an extra
// clients row.
func mainMenuKeyboard(isCurator bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		{tgbotapi.NewKeyboardButton(btnCreate)},
	}
	if isCurator {
		rows = append(rows, []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnClients)})
	}
	rows = append(rows,
		[]tgbotapi.KeyboardButton{
			tgbotapi.NewKeyboardButton(btnMyEvents),
			tgbotapi.NewKeyboardButton(btnGroups),
		},
		[]tgbotapi.KeyboardButton{
			tgbotapi.NewKeyboardButton(btnHelp),
			tgbotapi.NewKeyboardButton(btnProfile),
		},
	)
	return tgbotapi.NewReplyKeyboard(rows...)
}

// optionsKeyboard renders flow reply options plus a trailing cancel row.
func optionsKeyboard(options [][]string) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for _, opts := range options {
		var row []tgbotapi.KeyboardButton
		for _, o := range opts {
			row = append(row, tgbotapi.NewKeyboardButton(o))
		}
		rows = append(rows, row)
	}
	rows = append(rows, []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnCancel)})
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.OneTimeKeyboard = true
	return kb
}

func zonePresetKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for _, p := range domain.ZonePresets {
		rows = append(rows, []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(p.Label)})
	}
	rows = append(rows, []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnCancel)})
	return tgbotapi.NewReplyKeyboard(rows...)
}

func locationKeyboard() tgbotapi.ReplyKeyboardMarkup {
	btn := tgbotapi.NewKeyboardButton(btnSendLoc)
	btn.RequestLocation = true
	kb := tgbotapi.NewReplyKeyboard(
		[]tgbotapi.KeyboardButton{btn},
		[]tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnCancel)},
	)
	kb.OneTimeKeyboard = true
	return kb
}

func listKeyboard(labels []string) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for _, l := range labels {
		rows = append(rows, []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(l)})
	}
	rows = append(rows, []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnBack)})
	return tgbotapi.NewReplyKeyboard(rows...)
}
