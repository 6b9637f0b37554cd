package limits

import (
	"time"
)

// TransactionStore is the slice of the ledger the aggregator reads.
type TransactionStore interface {
	SumTransactionAmounts(userID string, windowStart time.Time) (float64, error)
}

type UsageTotals struct {
	DailyTotal   float64 `json:"daily_total"`
	MonthlyTotal float64 `json:"monthly_total"`
}

// UsageAggregator sums a user's pending and completed transaction amounts
// within the current calendar day and month, both in server-local time.
type UsageAggregator struct {
	store TransactionStore
}

func NewUsageAggregator(store TransactionStore) *UsageAggregator {
	return &UsageAggregator{store: store}
}

// Usage fetches both window totals. Any store failure propagates so that the
// guard fails closed instead of treating an unreachable ledger as zero usage.
func (a *UsageAggregator) Usage(userID string, now time.Time) (UsageTotals, error) {
	daily, err := a.store.SumTransactionAmounts(userID, DayStart(now))
	if err != nil {
		return UsageTotals{}, err
	}

	monthly, err := a.store.SumTransactionAmounts(userID, MonthStart(now))
	if err != nil {
		return UsageTotals{}, err
	}

	return UsageTotals{DailyTotal: daily, MonthlyTotal: monthly}, nil
}

// DayStart returns midnight of now's calendar day in now's location.
func DayStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// MonthStart returns midnight of the first day of now's calendar month.
func MonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}
