package tradecheck

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Counter is an external keyed counter with expiry. The increment must be
// atomic at the store so the guard stays correct under concurrent requests.
type Counter interface {
	Increment(key string, ttl time.Duration) (int64, error)
}

// ValidationError is a user-facing rule violation. It is never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type TradeParams struct {
	UserID        string
	Amount        float64
	Currency      string
	Type          string
	PaymentMethod string
}

const (
	minTradeAmount = 0.0001
	maxTradeAmount = 100_000

	tradingOpenHour  = 9
	tradingCloseHour = 23

	maxAttemptsPerHour = 10
	attemptWindow      = time.Hour
)

var supportedCurrencies = map[string]bool{
	"btc":  true,
	"eth":  true,
	"usdt": true,
	"usdc": true,
}

type methodBounds struct {
	Min float64
	Max float64
}

// Each payment method carries its own bounds, independent of the general
// amount bounds above.
var paymentMethodBounds = map[string]methodBounds{
	"bank":   {Min: 1_000, Max: 10_000_000},
	"card":   {Min: 100, Max: 1_000_000},
	"wallet": {Min: 10, Max: 5_000_000},
}

var printer = message.NewPrinter(language.English)

// TradeValidationGuard applies schema and business-rule validation to an
// inbound trade request: amount bounds, currency whitelist, trading hours,
// per-user submission rate, and payment-method bounds, in that order. The
// first failing rule short-circuits the rest.
type TradeValidationGuard struct {
	counter Counter
	now     func() time.Time
}

func NewTradeValidationGuard(counter Counter) *TradeValidationGuard {
	return &TradeValidationGuard{
		counter: counter,
		now:     time.Now,
	}
}

func (g *TradeValidationGuard) Validate(params *TradeParams) error {
	if err := g.checkSchema(params); err != nil {
		return err
	}

	if err := g.checkTradingHours(); err != nil {
		return err
	}

	if err := g.checkSubmissionRate(params.UserID); err != nil {
		return err
	}

	return g.checkPaymentMethodBounds(params)
}

func (g *TradeValidationGuard) checkSchema(params *TradeParams) error {
	if params.Amount < minTradeAmount || params.Amount > maxTradeAmount {
		return &ValidationError{
			Message: fmt.Sprintf("Amount must be between %g and %g", float64(minTradeAmount), float64(maxTradeAmount)),
		}
	}

	if !supportedCurrencies[params.Currency] {
		currencies := maps.Keys(supportedCurrencies)
		sort.Strings(currencies)

		return &ValidationError{
			Message: fmt.Sprintf("Currency must be one of: %s", strings.Join(currencies, ", ")),
		}
	}

	if params.Type != "buy" && params.Type != "sell" {
		return &ValidationError{Message: "Trade type must be buy or sell"}
	}

	if _, ok := paymentMethodBounds[params.PaymentMethod]; !ok {
		return &ValidationError{Message: "Payment method must be bank, wallet or card"}
	}

	return nil
}

func (g *TradeValidationGuard) checkTradingHours() error {
	hour := g.now().Hour()
	if hour < tradingOpenHour || hour >= tradingCloseHour {
		return &ValidationError{
			Message: fmt.Sprintf("Trading is only available between %d:00 and %d:00", tradingOpenHour, tradingCloseHour),
		}
	}

	return nil
}

// checkSubmissionRate counts every validation attempt, not only successful
// trades, so a user cannot probe the limits for free. The counter key expires
// on its own after the window; nothing clears it explicitly.
func (g *TradeValidationGuard) checkSubmissionRate(userID string) error {
	attempts, err := g.counter.Increment("trade_attempts:"+userID, attemptWindow)
	if err != nil {
		// counter unreachable, fail closed
		return fmt.Errorf("submission rate counter: %w", err)
	}

	if attempts > maxAttemptsPerHour {
		return &ValidationError{
			Message: "Too many trade attempts. Please wait a while before trying again",
		}
	}

	return nil
}

func (g *TradeValidationGuard) checkPaymentMethodBounds(params *TradeParams) error {
	bounds := paymentMethodBounds[params.PaymentMethod]

	if params.Amount < bounds.Min || params.Amount > bounds.Max {
		return &ValidationError{
			Message: printer.Sprintf("%s payments must be between ₦%.0f and ₦%.0f",
				cases.Title(language.English).String(params.PaymentMethod), bounds.Min, bounds.Max),
		}
	}

	return nil
}
