package limits

import (
	"time"

	"github.com/theceo1/trustbank-engine/internal/database"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ProfileStore resolves a user's verification profile.
type ProfileStore interface {
	GetVerificationProfile(userID string) (*database.VerificationProfile, bool, error)
}

// Headroom is the remaining allowed amount per window after the proposed
// transaction.
type Headroom struct {
	Daily   float64 `json:"daily"`
	Monthly float64 `json:"monthly"`
}

// LimitDecision is the structured outcome of a limit check. A denial is an
// expected, user-actionable result, not an error; errors are reserved for
// store failures.
type LimitDecision struct {
	Allowed   bool       `json:"allowed"`
	Reason    string     `json:"reason,omitempty"`
	Tier      Tier       `json:"-"`
	Limits    TierLimits `json:"current_limits"`
	Remaining *Headroom  `json:"remaining,omitempty"`
}

// TradeLimitGuard composes the tier policy and the usage aggregator to decide
// whether a prospective transaction amount fits the user's ceilings.
type TradeLimitGuard struct {
	policy   *TierLimitPolicy
	usage    *UsageAggregator
	profiles ProfileStore
	now      func() time.Time
}

func NewTradeLimitGuard(policy *TierLimitPolicy, usage *UsageAggregator, profiles ProfileStore) *TradeLimitGuard {
	return &TradeLimitGuard{
		policy:   policy,
		usage:    usage,
		profiles: profiles,
		now:      time.Now,
	}
}

var printer = message.NewPrinter(language.English)

const kycRequiredReason = "KYC verification required. Complete verification to increase your limits."

// CheckLimit approves or denies a proposed amount against the user's daily and
// monthly ceilings. An amount that lands exactly on a ceiling is allowed;
// denial starts one unit past it.
func (g *TradeLimitGuard) CheckLimit(userID string, amount float64) (*LimitDecision, error) {
	profile, found, err := g.profiles.GetVerificationProfile(userID)
	if err != nil {
		return nil, err
	}

	tier := EffectiveTier(profile)
	if !found || profile.KycStatus != database.KycStatusVerified || tier == TierNone {
		return &LimitDecision{
			Allowed: false,
			Reason:  kycRequiredReason,
			Tier:    tier,
			Limits:  g.policy.Limits(TierNone),
		}, nil
	}

	tierLimits := g.policy.Limits(tier)

	totals, err := g.usage.Usage(userID, g.now())
	if err != nil {
		return nil, err
	}

	if totals.DailyTotal+amount > tierLimits.DailyLimit {
		return &LimitDecision{
			Allowed: false,
			Reason:  printer.Sprintf("This transaction would exceed your daily limit of ₦%.0f", tierLimits.DailyLimit),
			Tier:    tier,
			Limits:  tierLimits,
		}, nil
	}

	if totals.MonthlyTotal+amount > tierLimits.MonthlyLimit {
		return &LimitDecision{
			Allowed: false,
			Reason:  printer.Sprintf("This transaction would exceed your monthly limit of ₦%.0f", tierLimits.MonthlyLimit),
			Tier:    tier,
			Limits:  tierLimits,
		}, nil
	}

	return &LimitDecision{
		Allowed: true,
		Tier:    tier,
		Limits:  tierLimits,
		Remaining: &Headroom{
			Daily:   tierLimits.DailyLimit - totals.DailyTotal - amount,
			Monthly: tierLimits.MonthlyLimit - totals.MonthlyTotal - amount,
		},
	}, nil
}

// Usage exposes the aggregated window totals, for the limits endpoint.
func (g *TradeLimitGuard) Usage(userID string) (UsageTotals, error) {
	return g.usage.Usage(userID, g.now())
}
