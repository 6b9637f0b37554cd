package rates

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubPriceSource struct {
	price float64
	err   error
}

func (s *stubPriceSource) USDPrice(ctx context.Context, currency string) (float64, error) {
	return s.price, s.err
}

type stubFxSource struct {
	rate float64
	err  error
}

func (s *stubFxSource) UsdToNgn(ctx context.Context) (float64, error) {
	return s.rate, s.err
}

func TestGetRate_BuyCarriesSpreadAboveBase(t *testing.T) {
	engine := NewRateQuoteEngine(&stubPriceSource{price: 60_000}, &stubFxSource{rate: 1500})

	quote, err := engine.GetRate(context.Background(), &QuoteRequest{
		Amount:   0.5,
		Currency: "btc",
		Type:     TradeTypeBuy,
	})
	require.NoError(t, err)

	require.InDelta(t, 90_000_000, quote.BaseRate, 0.01)
	require.InDelta(t, quote.BaseRate*1.005, quote.Rate, 0.01)
	require.Greater(t, quote.Rate, quote.BaseRate)
	require.InDelta(t, quote.Rate+quote.Fees.Total(), quote.Total, 0.01)
}

func TestGetRate_SellCarriesSpreadBelowBase(t *testing.T) {
	engine := NewRateQuoteEngine(&stubPriceSource{price: 60_000}, &stubFxSource{rate: 1500})

	quote, err := engine.GetRate(context.Background(), &QuoteRequest{
		Amount:   0.5,
		Currency: "btc",
		Type:     TradeTypeSell,
	})
	require.NoError(t, err)

	require.InDelta(t, quote.BaseRate*0.995, quote.Rate, 0.01)
	require.Less(t, quote.Rate, quote.BaseRate)
	require.InDelta(t, quote.Rate-quote.Fees.Total(), quote.Total, 0.01)
}

func TestGetRate_FeesArePercentagesOfQuotedRate(t *testing.T) {
	engine := NewRateQuoteEngine(&stubPriceSource{price: 1}, &stubFxSource{rate: 1000})

	quote, err := engine.GetRate(context.Background(), &QuoteRequest{
		Amount:   100,
		Currency: "usdt",
		Type:     TradeTypeBuy,
	})
	require.NoError(t, err)

	require.InDelta(t, quote.Rate*0.001, quote.Fees.ExchangeFee, 1e-9)
	require.InDelta(t, quote.Rate*0.002, quote.Fees.PlatformFee, 1e-9)
	require.InDelta(t, quote.Rate*0.001, quote.Fees.ProcessingFee, 1e-9)
}

func TestGetRate_FxFailureFallsBackToConstant(t *testing.T) {
	engine := NewRateQuoteEngine(&stubPriceSource{price: 2}, &stubFxSource{err: errors.New("fx feed down")})

	quote, err := engine.GetRate(context.Background(), &QuoteRequest{
		Amount:   10,
		Currency: "eth",
		Type:     TradeTypeBuy,
	})
	require.NoError(t, err)
	require.InDelta(t, 2*FallbackUsdNgnRate, quote.BaseRate, 0.01)
}

func TestGetRate_PriceFeedFailureAbortsQuote(t *testing.T) {
	engine := NewRateQuoteEngine(&stubPriceSource{err: errors.New("feed down")}, &stubFxSource{rate: 1500})

	_, err := engine.GetRate(context.Background(), &QuoteRequest{
		Amount:   1,
		Currency: "btc",
		Type:     TradeTypeSell,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "crypto price lookup")
}

func TestGetRate_RejectsUnknownTradeType(t *testing.T) {
	engine := NewRateQuoteEngine(&stubPriceSource{price: 1}, &stubFxSource{rate: 1500})

	_, err := engine.GetRate(context.Background(), &QuoteRequest{
		Amount:   1,
		Currency: "btc",
		Type:     "swap",
	})
	require.ErrorIs(t, err, ErrUnsupportedTradeType)
}

func TestSettlementFee(t *testing.T) {
	require.InDelta(t, 3_000, SettlementFee(100_000), 1e-9)
}
