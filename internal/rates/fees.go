package rates

// Two fee schedules coexist in this system and are not interchangeable.
// QuoteFees applies to the rate quoted on instant buy/sell requests;
// SettlementFee applies to the transaction total on the withdrawal and
// settlement path. Each call site picks one explicitly.

const (
	quoteSpread = 0.005

	exchangeFeeRate   = 0.001
	platformFeeRate   = 0.002
	processingFeeRate = 0.001

	settlementFeeRate = 0.03
)

type FeeBreakdown struct {
	ExchangeFee   float64 `json:"exchange_fee"`
	PlatformFee   float64 `json:"platform_fee"`
	ProcessingFee float64 `json:"processing_fee"`
}

func (f FeeBreakdown) Total() float64 {
	return f.ExchangeFee + f.PlatformFee + f.ProcessingFee
}

// QuoteFees computes the three-party fee breakdown as fixed percentages of
// the quoted rate, not of the trade total.
func QuoteFees(rate float64) FeeBreakdown {
	return FeeBreakdown{
		ExchangeFee:   rate * exchangeFeeRate,
		PlatformFee:   rate * platformFeeRate,
		ProcessingFee: rate * processingFeeRate,
	}
}

// SettlementFee computes the flat settlement charge on a transaction total.
func SettlementFee(total float64) float64 {
	return total * settlementFeeRate
}
