package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"eventbot/internal/flow"
	"eventbot/internal/session"
	"eventbot/internal/store"
)

// Router dispatches incoming updates: payment callbacks first, then the
// conversation machine if one is in flight, then menu commands.
type Router struct {
	bot      *tgbotapi.BotAPI
	log      *zap.Logger
	repo     store.Repo
	machine  *flow.Machine
	resched  *flow.Rescheduler
	sessions *session.Store

	ownerID      int64
	defaultTZ    string
	paymentToken string
}

func NewRouter(
	bot *tgbotapi.BotAPI,
	log *zap.Logger,
	repo store.Repo,
	machine *flow.Machine,
	resched *flow.Rescheduler,
	sessions *session.Store,
	ownerID int64,
	defaultTZ string,
	paymentToken string,
) *Router {
	return &Router{
		bot:          bot,
		log:          log,
		repo:         repo,
		machine:      machine,
		resched:      resched,
		sessions:     sessions,
		ownerID:      ownerID,
		defaultTZ:    defaultTZ,
		paymentToken: paymentToken,
	}
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.PreCheckoutQuery != nil {
		r.handlePreCheckout(upd.PreCheckoutQuery)
		return
	}
	msg := upd.Message
	if msg == nil || msg.From == nil {
		return
	}
	if msg.SuccessfulPayment != nil {
		r.handleSuccessfulPayment(ctx, msg)
		return
	}

	userID := msg.From.ID
	text := strings.TrimSpace(msg.Text)

	// /start always resets, even mid-conversation.
	if strings.HasPrefix(text, "/start") {
		r.sessions.End(userID)
		r.handleStart(ctx, msg)
		return
	}

	if r.machine.InFlight(userID) {
		r.dispatchFlow(ctx, msg, classify(msg))
		return
	}

	if msg.Location != nil {
		r.handleLocation(ctx, msg)
		return
	}

	switch {
	case text == btnCreate:
		r.dispatchFlow(ctx, msg, flow.Action{Kind: flow.ActBeginEvent})
	case text == btnAssign:
		r.beginAssign(ctx, msg)
	case text == btnMyEvents || text == "/events":
		r.handleMyEvents(ctx, msg)
	case text == btnGroups || text == "/groups":
		r.handleGroups(ctx, msg)
	case strings.HasPrefix(text, "/newgroup"):
		r.handleNewGroup(ctx, msg)
	case strings.HasPrefix(text, "/joingroup_"):
		r.handleJoinGroup(ctx, msg)
	case strings.HasPrefix(text, "/addclient_"):
		r.handleAddClient(ctx, msg)
	case text == btnProfile:
		r.handleProfile(ctx, msg)
	case text == btnChangeTZ:
		r.handleZoneMenu(msg.Chat.ID)
	case text == btnLocateTZ:
		r.handleLocationRequest(msg.Chat.ID)
	case strings.HasPrefix(text, "UTC+"):
		r.handleZoneChoice(ctx, msg)
	case text == btnAddCur:
		r.handleAddCuratorHint(msg.Chat.ID, userID)
	case text == btnClients:
		r.handleClients(ctx, msg)
	case strings.HasPrefix(text, clientPrefix):
		r.handleClientProfile(ctx, msg)
	case text == btnCurators:
		r.handleCurators(ctx, msg)
	case strings.HasPrefix(text, curatorPrefix):
		r.handleCuratorProfile(ctx, msg)
	case text == btnDropCli:
		r.handleRemoveClient(ctx, msg)
	case text == btnDropCur:
		r.handleRemoveCurator(ctx, msg)
	case text == btnSubscribe:
		r.handleSubscribe(ctx, msg)
	case text == btnSupport:
		r.handleSupport(ctx, msg.Chat.ID)
	case text == btnHelp || text == "/help":
		r.handleHelp(ctx, msg.Chat.ID)
	case text == btnBack || text == btnCancel:
		r.backToMenu(ctx, msg)
	default:
		r.sendText(msg.Chat.ID, "I did not get that. Use the menu below 👇")
	}
}

// beginAssign starts a delegated event flow for the client the curator has
// open in their session.
func (r *Router) beginAssign(ctx context.Context, msg *tgbotapi.Message) {
	sess, ok := r.sessions.Get(msg.From.ID)
	if !ok || sess.PeerID == 0 {
		r.sendText(msg.Chat.ID, "Open a client profile first.")
		return
	}
	r.dispatchFlow(ctx, msg, flow.Action{Kind: flow.ActAssignEvent, ClientID: sess.PeerID})
}

func (r *Router) backToMenu(ctx context.Context, msg *tgbotapi.Message) {
	r.sessions.End(msg.From.ID)
	out := tgbotapi.NewMessage(msg.Chat.ID, "Main menu:")
	out.ReplyMarkup = r.mainMenu(ctx, msg.From.ID)
	_, _ = r.bot.Send(out)
}

func (r *Router) dispatchFlow(ctx context.Context, msg *tgbotapi.Message, act flow.Action) {
	reply, err := r.machine.Handle(ctx, msg.From.ID, act)
	if err != nil {
		r.log.Error("flow step failed",
			zap.Int64("user", msg.From.ID), zap.Error(err))
		if reply.Text == "" {
			reply.Text = "Something went wrong. Please try again."
			reply.Done = true
		}
	}
	if reply.Text != "" {
		out := tgbotapi.NewMessage(msg.Chat.ID, reply.Text)
		if reply.Done {
			out.ReplyMarkup = r.mainMenu(ctx, msg.From.ID)
		} else {
			out.ReplyMarkup = optionsKeyboard(reply.Options)
		}
		if _, serr := r.bot.Send(out); serr != nil {
			r.log.Warn("send failed", zap.Int64("chat", msg.Chat.ID), zap.Error(serr))
		}
	}
	for _, p := range reply.Pushes {
		if serr := r.SendMessage(p.UserID, p.Text); serr != nil {
			r.log.Warn("push failed", zap.Int64("user", p.UserID), zap.Error(serr))
		}
	}
}

func (r *Router) mainMenu(ctx context.Context, userID int64) tgbotapi.ReplyKeyboardMarkup {
	isCurator, err := r.repo.IsCurator(ctx, userID)
	if err != nil {
		r.log.Warn("curator check failed", zap.Int64("user", userID), zap.Error(err))
	}
	return mainMenuKeyboard(isCurator)
}

func (r *Router) sendText(chatID int64, text string) {
	if err := r.SendMessage(chatID, text); err != nil {
		r.log.Warn("send failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

// SendMessage sends plain text to a chat.
func (r *Router) SendMessage(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
