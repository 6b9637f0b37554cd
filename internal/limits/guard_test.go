package limits

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/theceo1/trustbank-engine/internal/database"
)

type stubProfileStore struct {
	profile *database.VerificationProfile
	found   bool
	err     error
}

func (s *stubProfileStore) GetVerificationProfile(userID string) (*database.VerificationProfile, bool, error) {
	return s.profile, s.found, s.err
}

type stubUsageStore struct {
	calls   int
	daily   float64
	monthly float64
	err     error
}

func (s *stubUsageStore) SumTransactionAmounts(userID string, windowStart time.Time) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}

	s.calls++
	if s.calls == 1 {
		return s.daily, nil
	}
	return s.monthly, nil
}

func newTestGuard(profile *database.VerificationProfile, usage *stubUsageStore) *TradeLimitGuard {
	profiles := &stubProfileStore{profile: profile, found: profile != nil}
	guard := NewTradeLimitGuard(DefaultTierLimitPolicy(), NewUsageAggregator(usage), profiles)
	guard.now = func() time.Time {
		return time.Date(2025, time.March, 15, 12, 0, 0, 0, time.Local)
	}
	return guard
}

func verifiedBasicProfile() *database.VerificationProfile {
	return &database.VerificationProfile{
		UserID:        "user-1",
		KycStatus:     database.KycStatusVerified,
		Tier1Verified: true,
	}
}

func TestCheckLimit_DeniesWithoutVerifiedKyc(t *testing.T) {
	tests := []struct {
		name    string
		profile *database.VerificationProfile
	}{
		{
			name:    "no profile",
			profile: nil,
		},
		{
			name: "pending status",
			profile: &database.VerificationProfile{
				KycStatus:     database.KycStatusPending,
				Tier1Verified: true,
			},
		},
		{
			name: "rejected status",
			profile: &database.VerificationProfile{
				KycStatus:     database.KycStatusRejected,
				Tier1Verified: true,
			},
		},
		{
			name: "verified status but no verified tier",
			profile: &database.VerificationProfile{
				KycStatus: database.KycStatusVerified,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := newTestGuard(tt.profile, &stubUsageStore{})

			// amount is irrelevant here, even a trivial one is denied
			decision, err := guard.CheckLimit("user-1", 1)
			require.NoError(t, err)
			require.False(t, decision.Allowed)
			require.Equal(t, kycRequiredReason, decision.Reason)
		})
	}
}

func TestCheckLimit_ExactBoundaryIsAllowed(t *testing.T) {
	// Basic tier: daily 100,000 / monthly 2,000,000
	usage := &stubUsageStore{daily: 99_999, monthly: 99_999}
	guard := newTestGuard(verifiedBasicProfile(), usage)

	decision, err := guard.CheckLimit("user-1", 1)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.Equal(t, 0.0, decision.Remaining.Daily)
}

func TestCheckLimit_OneUnitPastBoundaryIsDenied(t *testing.T) {
	usage := &stubUsageStore{daily: 99_999, monthly: 99_999}
	guard := newTestGuard(verifiedBasicProfile(), usage)

	decision, err := guard.CheckLimit("user-1", 2)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Contains(t, decision.Reason, "daily limit")
	require.Contains(t, decision.Reason, "₦100,000")
}

func TestCheckLimit_MonthlyCeiling(t *testing.T) {
	// daily window untouched, monthly nearly spent
	usage := &stubUsageStore{daily: 0, monthly: 1_999_999}
	guard := newTestGuard(verifiedBasicProfile(), usage)

	decision, err := guard.CheckLimit("user-1", 2)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Contains(t, decision.Reason, "monthly limit")
}

func TestCheckLimit_ReportsHeadroom(t *testing.T) {
	usage := &stubUsageStore{daily: 40_000, monthly: 500_000}
	guard := newTestGuard(verifiedBasicProfile(), usage)

	decision, err := guard.CheckLimit("user-1", 10_000)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.Equal(t, 50_000.0, decision.Remaining.Daily)
	require.Equal(t, 1_490_000.0, decision.Remaining.Monthly)
}

func TestCheckLimit_FailsClosedOnLedgerError(t *testing.T) {
	usage := &stubUsageStore{err: errors.New("ledger down")}
	guard := newTestGuard(verifiedBasicProfile(), usage)

	_, err := guard.CheckLimit("user-1", 1)
	require.Error(t, err)
}

func TestCheckLimit_FailsClosedOnProfileStoreError(t *testing.T) {
	profiles := &stubProfileStore{err: errors.New("profile store down")}
	guard := NewTradeLimitGuard(DefaultTierLimitPolicy(), NewUsageAggregator(&stubUsageStore{}), profiles)

	_, err := guard.CheckLimit("user-1", 1)
	require.Error(t, err)
}
