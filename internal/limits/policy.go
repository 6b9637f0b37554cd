package limits

import (
	"github.com/theceo1/trustbank-engine/internal/database"
)

// Tier is a KYC verification level. Ordinals match the kyc_tiers table.
type Tier int

const (
	TierNone Tier = iota
	TierBasic
	TierIntermediate
	TierAdvanced
)

func (t Tier) String() string {
	switch t {
	case TierBasic:
		return "Basic"
	case TierIntermediate:
		return "Intermediate"
	case TierAdvanced:
		return "Advanced"
	default:
		return "None"
	}
}

type TierLimits struct {
	DailyLimit   float64 `json:"daily_limit"`
	MonthlyLimit float64 `json:"monthly_limit"`
}

// TierLimitPolicy maps tiers to their transaction ceilings. The table is
// immutable once constructed; a pure lookup with no side effects.
type TierLimitPolicy struct {
	limits map[Tier]TierLimits
}

// defaultTierLimits mirrors the seeded kyc_tiers rows. Used when the tier
// table cannot be loaded at startup, and in tests.
var defaultTierLimits = map[Tier]TierLimits{
	TierNone:         {DailyLimit: 0, MonthlyLimit: 0},
	TierBasic:        {DailyLimit: 100_000, MonthlyLimit: 2_000_000},
	TierIntermediate: {DailyLimit: 1_000_000, MonthlyLimit: 20_000_000},
	TierAdvanced:     {DailyLimit: 10_000_000, MonthlyLimit: 100_000_000},
}

func NewTierLimitPolicy(limits map[Tier]TierLimits) *TierLimitPolicy {
	table := make(map[Tier]TierLimits, len(limits))
	for tier, l := range limits {
		table[tier] = l
	}

	return &TierLimitPolicy{limits: table}
}

func DefaultTierLimitPolicy() *TierLimitPolicy {
	return NewTierLimitPolicy(defaultTierLimits)
}

// NewTierLimitPolicyFromTiers builds the policy from the kyc_tiers table.
func NewTierLimitPolicyFromTiers(tiers []database.KYCTier) *TierLimitPolicy {
	table := make(map[Tier]TierLimits, len(tiers))
	for _, tier := range tiers {
		table[Tier(tier.Ordinal)] = TierLimits{
			DailyLimit:   tier.DailyLimit,
			MonthlyLimit: tier.MonthlyLimit,
		}
	}

	return NewTierLimitPolicy(table)
}

// Limits returns the ceilings for a tier. An unknown tier gets the None
// ceilings, which lock the user out until verification.
func (p *TierLimitPolicy) Limits(tier Tier) TierLimits {
	if l, ok := p.limits[tier]; ok {
		return l
	}

	return p.limits[TierNone]
}

// EffectiveTier resolves a profile to the highest tier with a verified flag.
// The profile's kyc_level ordinal is a denormalized cache written by the
// verification webhook and can drift from the flags, so it is never consulted.
func EffectiveTier(profile *database.VerificationProfile) Tier {
	switch {
	case profile == nil:
		return TierNone
	case profile.Tier3Verified:
		return TierAdvanced
	case profile.Tier2Verified:
		return TierIntermediate
	case profile.Tier1Verified:
		return TierBasic
	default:
		return TierNone
	}
}
