package handler

import (
	dctx "context"
	"errors"
	"net/http"
	"time"

	"github.com/cradoe/gopass"
	"github.com/google/uuid"
	"github.com/theceo1/trustbank-engine/internal/context"
	"github.com/theceo1/trustbank-engine/internal/database"
	"github.com/theceo1/trustbank-engine/internal/errHandler"
	"github.com/theceo1/trustbank-engine/internal/limits"
	"github.com/theceo1/trustbank-engine/internal/rates"
	"github.com/theceo1/trustbank-engine/internal/request"
	"github.com/theceo1/trustbank-engine/internal/response"
	"github.com/theceo1/trustbank-engine/internal/stream"
	"github.com/theceo1/trustbank-engine/internal/tradecheck"
	"github.com/theceo1/trustbank-engine/internal/validator"
)

var (
	ErrNoTransactionPin = errors.New("you need to set a transaction PIN for your account")
	ErrInvalidPin       = errors.New("invalid pin")
	ErrDuplicateTrade   = errors.New("this appears to be a duplicate trade")
	ErrHeadroomGone     = errors.New("this transaction would exceed your current limit")
	ErrProfileNotFound  = errors.New("verification profile not found")
	ErrDocumentMissing  = errors.New("a document file is required")
)

const quoteTimeout = 5 * time.Second

// Narrow views over the collaborators, so the pipeline can be exercised with
// fakes in tests.
type tradeLedger interface {
	FindTransactionByReference(referenceNumber string) (*database.Transaction, bool, error)
	ReserveTransaction(transaction *database.Transaction, dayStart, monthStart time.Time, dailyLimit, monthlyLimit float64) (*database.Transaction, bool, error)
}

type tradeValidator interface {
	Validate(params *tradecheck.TradeParams) error
}

type limitChecker interface {
	CheckLimit(userID string, amount float64) (*limits.LimitDecision, error)
}

type quoteEngine interface {
	GetRate(ctx dctx.Context, req *rates.QuoteRequest) (*rates.Quote, error)
}

type eventProducer interface {
	ProduceJSON(topic string, value any) error
}

type backgroundRunner interface {
	BackgroundTask(fn func() error)
}

type tradeHandler struct {
	ledger     tradeLedger
	validation tradeValidator
	limits     limitChecker
	quotes     quoteEngine
	producer   eventProducer
	helper     backgroundRunner
	errHandler *errHandler.ErrorRepository
}

func NewTradeHandler(ledger tradeLedger, validation tradeValidator, limitGuard limitChecker, quotes quoteEngine, producer eventProducer, helper backgroundRunner, errHandler *errHandler.ErrorRepository) *tradeHandler {
	return &tradeHandler{
		ledger:     ledger,
		validation: validation,
		limits:     limitGuard,
		quotes:     quotes,
		producer:   producer,
		helper:     helper,
		errHandler: errHandler,
	}
}

type InitiatedTrade struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	Type            string           `json:"type"`
	Currency        string           `json:"currency"`
	Amount          float64          `json:"amount"`
	Rate            float64          `json:"rate"`
	Fee             float64          `json:"fee"`
	PaymentMethod   string           `json:"payment_method"`
	ReferenceNumber string           `json:"reference_number"`
	Status          string           `json:"status"`
	CreatedAt       string           `json:"created_at"`
	Remaining       *limits.Headroom `json:"remaining,omitempty"`
}

func (h *tradeHandler) HandleInitiateTrade(w http.ResponseWriter, r *http.Request) {
	// To initiate a trade, we need to
	// Step 1: Verify the transaction PIN
	// Step 2: Check the reference number for idempotency
	// Step 3: Run the validation guard (schema, trading hours, submission rate, method bounds)
	// Step 4: Run the limit guard against the user's tier ceilings
	// Step 5: Price the trade
	// Step 6: Reserve headroom by inserting the pending ledger row
	// Step 7: Hand the trade to the settlement worker

	type InitiateTradeInput struct {
		Amount          float64             `json:"amount"`
		Currency        string              `json:"currency"`
		Type            string              `json:"type"`
		PaymentMethod   string              `json:"payment_method"`
		ReferenceNumber string              `json:"reference_number"`
		Pin             string              `json:"pin"`
		Validator       validator.Validator `json:"-"`
	}

	var input InitiateTradeInput

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	user := context.ContextGetAuthenticatedUser(r)

	// Step 1: Verify the transaction PIN.
	// We return early on PIN problems because nothing else should run, not
	// even the attempt counter, until the caller proves it is the account owner.
	input.Validator.Check(validator.NotBlank(input.Pin), "Pin is required")
	if input.Validator.HasErrors() {
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	if !user.PinHash.Valid {
		input.Validator.AddError(ErrNoTransactionPin.Error())
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	pinMatches, err := gopass.ComparePasswordAndHash(input.Pin, user.PinHash.String)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !pinMatches {
		input.Validator.AddError(ErrInvalidPin.Error())
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	// Step 2: idempotency. Clients send a reference so retries don't double
	// trade; one is generated when absent.
	if input.ReferenceNumber == "" {
		input.ReferenceNumber = uuid.NewString()
	} else {
		_, found, err := h.ledger.FindTransactionByReference(input.ReferenceNumber)
		if err != nil {
			h.errHandler.ServerError(w, r, err)
			return
		}
		if found {
			input.Validator.AddError(ErrDuplicateTrade.Error())
			h.errHandler.FailedValidation(w, r, input.Validator.Errors)
			return
		}
	}

	// Step 3: validation guard. Rule violations are user-facing; anything
	// else (counter unreachable) is a server fault and fails closed.
	err = h.validation.Validate(&tradecheck.TradeParams{
		UserID:        user.ID,
		Amount:        input.Amount,
		Currency:      input.Currency,
		Type:          input.Type,
		PaymentMethod: input.PaymentMethod,
	})
	if err != nil {
		var validationErr *tradecheck.ValidationError
		if errors.As(err, &validationErr) {
			input.Validator.AddError(validationErr.Message)
			h.errHandler.FailedValidation(w, r, input.Validator.Errors)
			return
		}
		h.errHandler.ServerError(w, r, err)
		return
	}

	// Step 4: limit guard. A denial is an expected outcome, not a fault.
	decision, err := h.limits.CheckLimit(user.ID, input.Amount)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !decision.Allowed {
		response.JSONErrorResponse(w, decision, decision.Reason, http.StatusUnprocessableEntity, nil)
		return
	}

	// Step 5: price the trade. Upstream price failures surface as server
	// errors; we never quote from a guessed rate.
	ctx, cancel := dctx.WithTimeout(r.Context(), quoteTimeout)
	defer cancel()

	quote, err := h.quotes.GetRate(ctx, &rates.QuoteRequest{
		Amount:   input.Amount,
		Currency: input.Currency,
		Type:     input.Type,
	})
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	// Step 6: reserve headroom. The reservation re-checks both window totals
	// under a per-user lock, so a concurrent trade that got in first flips
	// this to a denial rather than letting the combined total exceed the
	// ceiling.
	now := time.Now()
	newTrans := &database.Transaction{
		UserID:          user.ID,
		Type:            input.Type,
		Currency:        input.Currency,
		Amount:          input.Amount,
		Rate:            quote.Rate,
		Fee:             quote.Fees.Total(),
		PaymentMethod:   input.PaymentMethod,
		ReferenceNumber: input.ReferenceNumber,
	}

	transaction, reserved, err := h.ledger.ReserveTransaction(newTrans,
		limits.DayStart(now), limits.MonthStart(now),
		decision.Limits.DailyLimit, decision.Limits.MonthlyLimit)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !reserved {
		response.JSONErrorResponse(w, nil, ErrHeadroomGone.Error(), http.StatusUnprocessableEntity, nil)
		return
	}

	tradeRes := &InitiatedTrade{
		ID:              transaction.ID,
		UserID:          user.ID,
		Type:            transaction.Type,
		Currency:        transaction.Currency,
		Amount:          transaction.Amount,
		Rate:            transaction.Rate,
		Fee:             transaction.Fee,
		PaymentMethod:   transaction.PaymentMethod,
		ReferenceNumber: transaction.ReferenceNumber,
		Status:          transaction.Status,
		CreatedAt:       transaction.CreatedAt.Format(time.RFC3339),
		Remaining:       decision.Remaining,
	}

	// Step 7: the settlement worker takes it from here. Produced off the
	// request goroutine, but tracked so shutdown waits for the handoff.
	h.helper.BackgroundTask(func() error {
		return h.producer.ProduceJSON(stream.TradeExecuteTopic, tradeRes)
	})

	message := "Trade initiated successfully"

	err = response.JSONOkResponse(w, tradeRes, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
