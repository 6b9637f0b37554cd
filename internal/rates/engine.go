package rates

import (
	"context"
	"errors"
	"fmt"
)

// FallbackUsdNgnRate is used when the fx rate API is unreachable. The macro
// rate is a coarse reference, not a tradable price, so a stale constant is
// acceptable there and only there.
const FallbackUsdNgnRate = 1550

var ErrUnsupportedTradeType = errors.New("trade type must be buy or sell")

type QuoteRequest struct {
	Amount   float64
	Currency string
	Type     string
}

const (
	TradeTypeBuy  = "buy"
	TradeTypeSell = "sell"
)

// Quote is the priced outcome of a request. Total is the effective unit rate
// after fees: what the user pays per unit on a buy, or receives on a sell.
// Quotes are ephemeral; the caller enforces the validity window.
type Quote struct {
	BaseRate float64      `json:"base_rate"`
	Rate     float64      `json:"rate"`
	Fees     FeeBreakdown `json:"fees"`
	Total    float64      `json:"total"`
}

// RateQuoteEngine turns a notional fiat amount and currency pair into a
// priced quote with spread and the three-party fee breakdown.
type RateQuoteEngine struct {
	prices CryptoPriceSource
	fx     FxRateSource
}

func NewRateQuoteEngine(prices CryptoPriceSource, fx FxRateSource) *RateQuoteEngine {
	return &RateQuoteEngine{
		prices: prices,
		fx:     fx,
	}
}

// GetRate fetches the crypto/USD price and the USD/NGN rate concurrently and
// derives the quoted rate. A price-feed failure aborts the quote; there is no
// fallback for tradable prices. The fx lookup alone may fall back to
// FallbackUsdNgnRate.
func (e *RateQuoteEngine) GetRate(ctx context.Context, req *QuoteRequest) (*Quote, error) {
	if req.Type != TradeTypeBuy && req.Type != TradeTypeSell {
		return nil, ErrUnsupportedTradeType
	}

	priceCh := make(chan float64, 1)
	fxCh := make(chan float64, 1)
	errCh := make(chan error, 1)

	go func() {
		price, err := e.prices.USDPrice(ctx, req.Currency)
		if err != nil {
			errCh <- fmt.Errorf("crypto price lookup: %w", err)
			return
		}
		priceCh <- price
	}()

	go func() {
		fxRate, err := e.fx.UsdToNgn(ctx)
		if err != nil {
			// coarse reference rate, fallback permitted
			fxCh <- FallbackUsdNgnRate
			return
		}
		fxCh <- fxRate
	}()

	var cryptoUsd, usdNgn float64

	select {
	case err := <-errCh:
		return nil, err
	case cryptoUsd = <-priceCh:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case usdNgn = <-fxCh:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	baseRate := cryptoUsd * usdNgn

	var rate float64
	if req.Type == TradeTypeBuy {
		rate = baseRate * (1 + quoteSpread)
	} else {
		rate = baseRate * (1 - quoteSpread)
	}

	fees := QuoteFees(rate)

	var total float64
	if req.Type == TradeTypeBuy {
		total = rate + fees.Total()
	} else {
		total = rate - fees.Total()
	}

	return &Quote{
		BaseRate: baseRate,
		Rate:     rate,
		Fees:     fees,
		Total:    total,
	}, nil
}
