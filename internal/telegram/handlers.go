package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"eventbot/internal/domain"
	"eventbot/internal/store"
)

const subscriptionPeriod = 30 * 24 * time.Hour

// ensureUser upserts the sender and returns the stored row. New users get the
// configured default timezone; existing timezone and subscription survive.
func (r *Router) ensureUser(ctx context.Context, from *tgbotapi.User) (*domain.User, error) {
	u := &domain.User{
		ID:        from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
		TZ:        r.defaultTZ,
		Tier:      domain.TierFree,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.repo.UpsertUser(ctx, u); err != nil {
		return nil, err
	}
	return r.repo.GetUser(ctx, from.ID)
}

func (r *Router) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	u, err := r.ensureUser(ctx, msg.From)
	if err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Profile initialization error. Please try again later.")
		return
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(startFmt, u.FirstName))
	out.ReplyMarkup = r.mainMenu(ctx, u.ID)
	_, _ = r.bot.Send(out)
}

func (r *Router) handleHelp(ctx context.Context, chatID int64) {
	out := tgbotapi.NewMessage(chatID, helpText)
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyMarkup = listKeyboard([]string{btnSubscribe, btnSupport})
	_, _ = r.bot.Send(out)
}

func (r *Router) handleSupport(ctx context.Context, chatID int64) {
	out := tgbotapi.NewMessage(chatID, supportText)
	out.ParseMode = tgbotapi.ModeMarkdown
	out.DisableWebPagePreview = true
	out.ReplyMarkup = r.mainMenu(ctx, chatID)
	_, _ = r.bot.Send(out)
}

// --- Profile and timezone ---

func (r *Router) handleProfile(ctx context.Context, msg *tgbotapi.Message) {
	u, err := r.ensureUser(ctx, msg.From)
	if err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Error reading your settings.")
		return
	}

	now := time.Now().UTC()
	var subText string
	switch {
	case u.ID == r.ownerID:
		subText = "💎 Premium (owner)"
	case u.EffectiveTier(now) == domain.TierPremium && u.Lifetime:
		subText = "💎 Premium (lifetime)"
	case u.EffectiveTier(now) == domain.TierPremium:
		local, _ := domain.ToLocal(*u.ExpiresAt, u.TZ)
		subText = "💎 Premium until " + local
	default:
		subText = "🆓 Free"
	}

	labels := []string{btnChangeTZ, btnLocateTZ}
	if curators, err := r.repo.ListCurators(ctx, u.ID); err == nil && len(curators) > 0 {
		labels = append(labels, btnCurators)
	}
	labels = append(labels, btnAddCur)

	out := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(
		"🔧 Your profile:\n\n🌍 Timezone: %s\n🎟 Subscription: %s", u.TZ, subText))
	out.ReplyMarkup = listKeyboard(labels)
	_, _ = r.bot.Send(out)
}

func (r *Router) handleZoneMenu(chatID int64) {
	out := tgbotapi.NewMessage(chatID, "Pick a timezone:")
	out.ReplyMarkup = zonePresetKeyboard()
	_, _ = r.bot.Send(out)
}

func (r *Router) handleLocationRequest(chatID int64) {
	out := tgbotapi.NewMessage(chatID,
		"Press the button below to share your location.\nI will suggest the nearest timezone.")
	out.ReplyMarkup = locationKeyboard()
	_, _ = r.bot.Send(out)
}

func (r *Router) handleZoneChoice(ctx context.Context, msg *tgbotapi.Message) {
	label := strings.TrimSpace(msg.Text)
	var newTZ string
	for _, p := range domain.ZonePresets {
		if p.Label == label {
			newTZ = p.TZ
			break
		}
	}
	if newTZ == "" {
		r.sendText(msg.Chat.ID, "Unknown timezone.")
		return
	}
	r.changeZone(ctx, msg, newTZ, "")
}

func (r *Router) handleLocation(ctx context.Context, msg *tgbotapi.Message) {
	tz, city := domain.NearestZone(msg.Location.Latitude, msg.Location.Longitude)
	if _, err := domain.ValidateZone(tz); err != nil {
		r.sendText(msg.Chat.ID, "Could not determine a timezone. Pick one manually.")
		return
	}
	r.changeZone(ctx, msg, tz, city)
}

// changeZone updates the user's zone and triggers the rescheduler. The zone
// change itself always succeeds; skipped event recomputations are only
// logged.
func (r *Router) changeZone(ctx context.Context, msg *tgbotapi.Message, newTZ, city string) {
	u, err := r.ensureUser(ctx, msg.From)
	if err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Could not change timezone.")
		return
	}
	oldTZ := u.TZ
	if err := r.repo.SetTimezone(ctx, u.ID, newTZ); err != nil {
		r.log.Error("set timezone failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Could not change timezone.")
		return
	}

	shifted, rerr := r.resched.RescheduleAll(ctx, u.ID, oldTZ, newTZ)
	if rerr != nil {
		r.log.Warn("reschedule incomplete",
			zap.Int64("user", u.ID), zap.Int("shifted", shifted), zap.Error(rerr))
	}

	text := fmt.Sprintf("✅ Timezone changed:\n\n📍 %s", newTZ)
	if city != "" {
		text = fmt.Sprintf("✅ Location processed!\n\n📍 Nearest city: %s\n🌍 Timezone: %s", city, newTZ)
	}
	if shifted > 0 {
		text += fmt.Sprintf("\n⏰ %d upcoming events keep their local time.", shifted)
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyMarkup = r.mainMenu(ctx, u.ID)
	_, _ = r.bot.Send(out)
}

// --- Events listing ---

func (r *Router) handleMyEvents(ctx context.Context, msg *tgbotapi.Message) {
	u, err := r.ensureUser(ctx, msg.From)
	if err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Error reading your events.")
		return
	}
	now := time.Now().UTC()
	events, err := r.repo.ListUpcoming(ctx, domain.ScopePrivate, u.ID, now, 10)
	if err != nil {
		r.log.Error("list events failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Error reading your events.")
		return
	}
	if len(events) == 0 {
		r.sendText(msg.Chat.ID, "📭 No upcoming events.")
		return
	}

	var b strings.Builder
	b.WriteString("📋 Your upcoming events:\n")
	for _, e := range events {
		at, _ := domain.NextOccurrence(e.At, e.Recurrence, now)
		local, lerr := domain.ToLocal(at, u.TZ)
		if lerr != nil {
			local = at.Format(domain.CanonicalLayout) + " UTC"
		}
		fmt.Fprintf(&b, "\n• %s — %s", e.Title, local)
		if e.Recurrence != domain.RecurNone {
			fmt.Fprintf(&b, " (repeats %s)", e.Recurrence)
		}
		if n := e.Flags.ArmedCount(); n > 0 {
			fmt.Fprintf(&b, " 🔔 %d", n)
		}
	}
	r.sendText(msg.Chat.ID, b.String())
}

// --- Groups ---

func (r *Router) handleGroups(ctx context.Context, msg *tgbotapi.Message) {
	groups, err := r.repo.ListGroupsForMember(ctx, msg.From.ID)
	if err != nil {
		r.log.Error("list groups failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Error reading your groups.")
		return
	}
	var b strings.Builder
	if len(groups) == 0 {
		b.WriteString("👥 You are not in any group yet.\n")
	} else {
		b.WriteString("👥 Your groups:\n")
		for _, g := range groups {
			fmt.Fprintf(&b, "• %s (join code: /joingroup_%d)\n", g.Name, g.ID)
		}
	}
	b.WriteString("\nCreate one with: /newgroup <name>")
	r.sendText(msg.Chat.ID, b.String())
}

func (r *Router) handleNewGroup(ctx context.Context, msg *tgbotapi.Message) {
	name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(msg.Text), "/newgroup"))
	if name == "" {
		r.sendText(msg.Chat.ID, "Usage: /newgroup <name>")
		return
	}
	n, err := r.repo.CountOwnedGroups(ctx, msg.From.ID)
	if err != nil {
		r.log.Error("count groups failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Could not create the group.")
		return
	}
	if n >= domain.MaxOwnedGroups {
		r.sendText(msg.Chat.ID, fmt.Sprintf("You already own %d groups, the maximum.", domain.MaxOwnedGroups))
		return
	}
	g, err := r.repo.CreateGroup(ctx, name, msg.From.ID, time.Now().UTC())
	if err != nil {
		r.log.Error("create group failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Could not create the group.")
		return
	}
	r.sendText(msg.Chat.ID, fmt.Sprintf(
		"✅ Group %q created. Members can join with:\n/joingroup_%d", g.Name, g.ID))
}

func (r *Router) handleJoinGroup(ctx context.Context, msg *tgbotapi.Message) {
	raw := strings.TrimPrefix(strings.TrimSpace(msg.Text), "/joingroup_")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		r.sendText(msg.Chat.ID, "Invalid join code.")
		return
	}
	g, err := r.repo.GetGroup(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		r.sendText(msg.Chat.ID, "No such group.")
		return
	}
	if err != nil {
		r.log.Error("get group failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Could not join the group.")
		return
	}
	if err := r.repo.AddGroupMember(ctx, g.ID, msg.From.ID); err != nil {
		r.log.Error("add member failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Could not join the group.")
		return
	}
	r.sendText(msg.Chat.ID, fmt.Sprintf("✅ You joined %q.", g.Name))
}

// --- Curator / client relations ---

func (r *Router) handleAddCuratorHint(chatID, userID int64) {
	r.sendText(chatID, fmt.Sprintf(
		"Send this command to your curator:\n\n/addclient_%d", userID))
}

func (r *Router) handleAddClient(ctx context.Context, msg *tgbotapi.Message) {
	raw := strings.TrimPrefix(strings.TrimSpace(msg.Text), "/addclient_")
	clientID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		r.sendText(msg.Chat.ID, "Invalid command.")
		return
	}
	if clientID == msg.From.ID {
		r.sendText(msg.Chat.ID, "You cannot curate yourself.")
		return
	}
	if _, err := r.repo.GetUser(ctx, clientID); errors.Is(err, store.ErrNotFound) {
		r.sendText(msg.Chat.ID, "This user has not started the bot yet.")
		return
	} else if err != nil {
		r.log.Error("get client failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Could not add the client.")
		return
	}

	ok, err := r.repo.HasRelation(ctx, msg.From.ID, clientID)
	if err != nil {
		r.log.Error("relation check failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Could not add the client.")
		return
	}
	if ok {
		r.sendText(msg.Chat.ID, "✅ This user is already your client.")
		return
	}
	if err := r.repo.AddRelation(ctx, msg.From.ID, clientID, time.Now().UTC()); err != nil {
		r.log.Error("add relation failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Could not add the client.")
		return
	}

	r.sendText(msg.Chat.ID, "✅ Client added.")
	name := msg.From.UserName
	if name == "" {
		name = strconv.FormatInt(msg.From.ID, 10)
	}
	_ = r.SendMessage(clientID, fmt.Sprintf("🔔 You were added as a client by curator @%s.", name))
}

func (r *Router) handleClients(ctx context.Context, msg *tgbotapi.Message) {
	clients, err := r.repo.ListClients(ctx, msg.From.ID)
	if err != nil {
		r.log.Error("list clients failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Error reading your clients.")
		return
	}
	if len(clients) == 0 {
		r.sendText(msg.Chat.ID, "📭 You have no clients yet.")
		return
	}
	labels := make([]string, 0, len(clients))
	for _, c := range clients {
		labels = append(labels, fmt.Sprintf("%s%s (ID: %d)", clientPrefix, c.FirstName, c.ID))
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, "Pick a client:")
	out.ReplyMarkup = listKeyboard(labels)
	_, _ = r.bot.Send(out)
}

// parsePeerID extracts the user id from a "Name (ID: n)" listing label.
func parsePeerID(text string) (int64, error) {
	idx := strings.LastIndex(text, "(ID: ")
	if idx < 0 {
		return 0, fmt.Errorf("no id in %q", text)
	}
	raw := strings.TrimSuffix(strings.TrimSpace(text[idx+len("(ID: "):]), ")")
	return strconv.ParseInt(raw, 10, 64)
}

func (r *Router) handleClientProfile(ctx context.Context, msg *tgbotapi.Message) {
	clientID, err := parsePeerID(msg.Text)
	if err != nil {
		r.sendText(msg.Chat.ID, "Could not read the client id.")
		return
	}
	ok, err := r.repo.HasRelation(ctx, msg.From.ID, clientID)
	if err != nil || !ok {
		r.sendText(msg.Chat.ID, "You are not a curator of this user.")
		return
	}

	client, err := r.repo.GetUser(ctx, clientID)
	if err != nil {
		r.log.Error("get client failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Could not open the client profile.")
		return
	}

	next := "no upcoming events"
	if events, err := r.repo.ListUpcoming(ctx, domain.ScopePrivate, clientID, time.Now().UTC(), 1); err == nil && len(events) > 0 {
		if local, lerr := domain.ToLocal(events[0].At, client.TZ); lerr == nil {
			next = fmt.Sprintf("%s at %s", events[0].Title, local)
		}
	}

	sess := r.sessions.GetOrBegin(msg.From.ID)
	sess.PeerID = clientID

	out := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(
		"👨‍💼 %s\n\n⏰ Next event: %s", client.FirstName, next))
	out.ReplyMarkup = listKeyboard([]string{btnAssign, btnDropCli})
	_, _ = r.bot.Send(out)
}

func (r *Router) handleCurators(ctx context.Context, msg *tgbotapi.Message) {
	curators, err := r.repo.ListCurators(ctx, msg.From.ID)
	if err != nil {
		r.log.Error("list curators failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Error reading your curators.")
		return
	}
	if len(curators) == 0 {
		r.sendText(msg.Chat.ID, "📭 You have no curators.")
		return
	}
	labels := make([]string, 0, len(curators))
	for _, c := range curators {
		labels = append(labels, fmt.Sprintf("%s%s (ID: %d)", curatorPrefix, c.FirstName, c.ID))
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, "Your curators:")
	out.ReplyMarkup = listKeyboard(labels)
	_, _ = r.bot.Send(out)
}

func (r *Router) handleCuratorProfile(ctx context.Context, msg *tgbotapi.Message) {
	curatorID, err := parsePeerID(msg.Text)
	if err != nil {
		r.sendText(msg.Chat.ID, "Could not read the curator id.")
		return
	}
	ok, err := r.repo.HasRelation(ctx, curatorID, msg.From.ID)
	if err != nil || !ok {
		r.sendText(msg.Chat.ID, "This user is not your curator.")
		return
	}
	curator, err := r.repo.GetUser(ctx, curatorID)
	if err != nil {
		r.log.Error("get curator failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Could not open the curator profile.")
		return
	}

	sess := r.sessions.GetOrBegin(msg.From.ID)
	sess.PeerID = curatorID

	out := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("👨‍🏫 %s", curator.FirstName))
	out.ReplyMarkup = listKeyboard([]string{btnDropCur})
	_, _ = r.bot.Send(out)
}

func (r *Router) handleRemoveClient(ctx context.Context, msg *tgbotapi.Message) {
	sess, ok := r.sessions.Get(msg.From.ID)
	if !ok || sess.PeerID == 0 {
		r.sendText(msg.Chat.ID, "Pick a client first.")
		return
	}
	if err := r.repo.RemoveRelation(ctx, msg.From.ID, sess.PeerID); err != nil {
		r.log.Error("remove relation failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Could not remove the client.")
		return
	}
	r.sessions.End(msg.From.ID)
	out := tgbotapi.NewMessage(msg.Chat.ID, "🗑 Client removed.")
	out.ReplyMarkup = r.mainMenu(ctx, msg.From.ID)
	_, _ = r.bot.Send(out)
}

func (r *Router) handleRemoveCurator(ctx context.Context, msg *tgbotapi.Message) {
	sess, ok := r.sessions.Get(msg.From.ID)
	if !ok || sess.PeerID == 0 {
		r.sendText(msg.Chat.ID, "Pick a curator first.")
		return
	}
	if err := r.repo.RemoveRelation(ctx, sess.PeerID, msg.From.ID); err != nil {
		r.log.Error("remove relation failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Could not remove the curator.")
		return
	}
	r.sessions.End(msg.From.ID)
	out := tgbotapi.NewMessage(msg.Chat.ID, "🗑 Curator removed.")
	out.ReplyMarkup = r.mainMenu(ctx, msg.From.ID)
	_, _ = r.bot.Send(out)
}

// --- Subscription (billing collaborator boundary) ---

func (r *Router) handleSubscribe(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID == r.ownerID {
		r.sendText(msg.Chat.ID, "You are the bot owner and already have full access.")
		return
	}
	u, err := r.ensureUser(ctx, msg.From)
	if err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Subscription is unavailable right now.")
		return
	}
	if u.EffectiveTier(time.Now().UTC()) == domain.TierPremium {
		r.sendText(msg.Chat.ID, "You already have an active subscription!")
		return
	}
	if r.paymentToken == "" {
		r.sendText(msg.Chat.ID, "💳 Subscription is temporarily unavailable. Stay tuned!")
		return
	}

	inv := tgbotapi.NewInvoice(msg.Chat.ID,
		"💎 Premium subscription",
		"Full access for 30 days",
		"subscription_30_days",
		r.paymentToken,
		"subscribe",
		"RUB",
		[]tgbotapi.LabeledPrice{{Label: "Premium", Amount: 10000}},
	)
	if _, err := r.bot.Send(inv); err != nil {
		r.log.Error("send invoice failed", zap.Error(err))
		r.sendText(msg.Chat.ID, "Could not start the payment.")
	}
}

func (r *Router) handlePreCheckout(q *tgbotapi.PreCheckoutQuery) {
	if _, err := r.bot.Request(tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: q.ID,
		OK:                 true,
	}); err != nil {
		r.log.Error("pre-checkout answer failed", zap.Error(err))
	}
}

// handleSuccessfulPayment is the single inbound effect point of the billing
// collaborator: premium for 30 days with auto-renew.
func (r *Router) handleSuccessfulPayment(ctx context.Context, msg *tgbotapi.Message) {
	expires := time.Now().UTC().Add(subscriptionPeriod)
	if err := r.repo.SetSubscription(ctx, msg.From.ID, domain.TierPremium, false, &expires, true); err != nil {
		r.log.Error("set subscription failed", zap.Error(err), zap.Int64("user", msg.From.ID))
		r.sendText(msg.Chat.ID, "Payment received, but activation failed. Contact support.")
		return
	}
	r.sendText(msg.Chat.ID, fmt.Sprintf(
		"✅ Payment accepted! Premium is active until %s UTC.",
		expires.Format(domain.CanonicalLayout)))
}
