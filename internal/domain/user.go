package domain

import "time"

// Tier is a subscription level.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// Armed-flag caps per effective tier.
const (
	FreeReminderLimit    = 6
	PremiumReminderLimit = 26
)

// User holds per-user identity, timezone preference and subscription state.
// All instants are UTC.
type User struct {
	ID        int64
	Username  string
	FirstName string
	TZ        string // IANA zone, defaulted from config on first contact
	Tier      Tier
	Lifetime  bool       // premium with no expiry
	ExpiresAt *time.Time // nil for free or lifetime
	AutoRenew bool
	CreatedAt time.Time
}

// EffectiveTier collapses an expired premium subscription to free. Premium
// holds only while the subscription is lifetime or its expiry is in the
// future.
func (u *User) EffectiveTier(now time.Time) Tier {
	if u.Tier != TierPremium {
		return TierFree
	}
	if u.Lifetime {
		return TierPremium
	}
	if u.ExpiresAt != nil && u.ExpiresAt.After(now) {
		return TierPremium
	}
	return TierFree
}

// ReminderLimit returns the armed-flag cap for this user. The bot owner is
// always treated as premium.
func (u *User) ReminderLimit(now time.Time, ownerID int64) int {
	if u.ID == ownerID || u.EffectiveTier(now) == TierPremium {
		return PremiumReminderLimit
	}
	return FreeReminderLimit
}
