package handler

import (
	"bytes"
	dctx "context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cradoe/gopass"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/theceo1/trustbank-engine/internal/context"
	"github.com/theceo1/trustbank-engine/internal/database"
	"github.com/theceo1/trustbank-engine/internal/errHandler"
	"github.com/theceo1/trustbank-engine/internal/limits"
	"github.com/theceo1/trustbank-engine/internal/rates"
	"github.com/theceo1/trustbank-engine/internal/stream"
	"github.com/theceo1/trustbank-engine/internal/tradecheck"
)

type MockTradeLedger struct {
	mock.Mock
}

func (m *MockTradeLedger) FindTransactionByReference(referenceNumber string) (*database.Transaction, bool, error) {
	args := m.Called(referenceNumber)
	transaction, _ := args.Get(0).(*database.Transaction)
	return transaction, args.Bool(1), args.Error(2)
}

func (m *MockTradeLedger) ReserveTransaction(transaction *database.Transaction, dayStart, monthStart time.Time, dailyLimit, monthlyLimit float64) (*database.Transaction, bool, error) {
	args := m.Called(transaction, dayStart, monthStart, dailyLimit, monthlyLimit)
	reserved, _ := args.Get(0).(*database.Transaction)
	return reserved, args.Bool(1), args.Error(2)
}

type MockValidationGuard struct {
	mock.Mock
}

func (m *MockValidationGuard) Validate(params *tradecheck.TradeParams) error {
	args := m.Called(params)
	return args.Error(0)
}

type MockLimitGuard struct {
	mock.Mock
}

func (m *MockLimitGuard) CheckLimit(userID string, amount float64) (*limits.LimitDecision, error) {
	args := m.Called(userID, amount)
	decision, _ := args.Get(0).(*limits.LimitDecision)
	return decision, args.Error(1)
}

type MockQuoteEngine struct {
	mock.Mock
}

func (m *MockQuoteEngine) GetRate(ctx dctx.Context, req *rates.QuoteRequest) (*rates.Quote, error) {
	args := m.Called(req)
	quote, _ := args.Get(0).(*rates.Quote)
	return quote, args.Error(1)
}

type producedEvent struct {
	topic string
	value any
}

// stubProducer records the handed-off trade on a channel, since the handler
// publishes from a goroutine.
type stubProducer struct {
	produced chan producedEvent
}

func newStubProducer() *stubProducer {
	return &stubProducer{produced: make(chan producedEvent, 1)}
}

func (p *stubProducer) ProduceJSON(topic string, value any) error {
	p.produced <- producedEvent{topic: topic, value: value}
	return nil
}

// syncRunner runs background tasks inline so tests stay deterministic.
type syncRunner struct{}

func (syncRunner) BackgroundTask(fn func() error) {
	_ = fn()
}

func testErrorHandler() *errHandler.ErrorRepository {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return errHandler.New("", "http://localhost", nil, logger)
}

func testUserWithPin(t *testing.T, pin string) *database.User {
	t.Helper()

	pinHash, err := gopass.Hash(pin)
	require.NoError(t, err)

	return &database.User{
		ID:      "user-1",
		Email:   "test@example.com",
		Status:  database.UserAccountActiveStatus,
		PinHash: sql.NullString{String: pinHash, Valid: true},
	}
}

func newTradeRequest(t *testing.T, user *database.User, body map[string]any) *http.Request {
	t.Helper()

	requestBody, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest("POST", "/trades", bytes.NewBuffer(requestBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	return context.ContextSetAuthenticatedUser(req, user)
}

func allowedDecision() *limits.LimitDecision {
	return &limits.LimitDecision{
		Allowed: true,
		Tier:    limits.TierBasic,
		Limits:  limits.TierLimits{DailyLimit: 100_000, MonthlyLimit: 2_000_000},
		Remaining: &limits.Headroom{
			Daily:   45_000,
			Monthly: 1_945_000,
		},
	}
}

func TestHandleInitiateTrade_HappyPath(t *testing.T) {
	mockLedger := new(MockTradeLedger)
	mockValidation := new(MockValidationGuard)
	mockLimits := new(MockLimitGuard)
	mockQuotes := new(MockQuoteEngine)
	producer := newStubProducer()

	quote := &rates.Quote{
		BaseRate: 90_000_000,
		Rate:     90_450_000,
		Fees:     rates.QuoteFees(90_450_000),
		Total:    90_811_800,
	}

	mockValidation.On("Validate", mock.Anything).Return(nil)
	mockLimits.On("CheckLimit", "user-1", 50_000.0).Return(allowedDecision(), nil)
	mockQuotes.On("GetRate", mock.Anything).Return(quote, nil)
	mockLedger.On("ReserveTransaction", mock.Anything, mock.Anything, mock.Anything, 100_000.0, 2_000_000.0).
		Return(&database.Transaction{
			ID:              "txn-1",
			UserID:          "user-1",
			Type:            "buy",
			Currency:        "btc",
			Amount:          50_000,
			Rate:            quote.Rate,
			Fee:             quote.Fees.Total(),
			PaymentMethod:   "bank",
			ReferenceNumber: "ref-abc",
			Status:          database.TransactionStatusPending,
			CreatedAt:       time.Now(),
		}, true, nil)

	h := NewTradeHandler(mockLedger, mockValidation, mockLimits, mockQuotes, producer, syncRunner{}, testErrorHandler())

	req := newTradeRequest(t, testUserWithPin(t, "123456"), map[string]any{
		"amount":         50_000,
		"currency":       "btc",
		"type":           "buy",
		"payment_method": "bank",
		"pin":            "123456",
	})
	rr := httptest.NewRecorder()

	h.HandleInitiateTrade(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var response map[string]any
	err := json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)

	data, ok := response["data"].(map[string]any)
	require.True(t, ok, "Expected response['data'] to be a map")

	require.Equal(t, "txn-1", data["id"])
	require.Equal(t, database.TransactionStatusPending, data["status"])
	require.NotEmpty(t, data["reference_number"])
	require.Contains(t, data, "remaining")

	select {
	case published := <-producer.produced:
		require.Equal(t, stream.TradeExecuteTopic, published.topic)

		trade, ok := published.value.(*InitiatedTrade)
		require.True(t, ok)
		require.Equal(t, "txn-1", trade.ID)
	case <-time.After(time.Second):
		t.Fatal("trade was never handed to the settlement worker")
	}

	mockLedger.AssertExpectations(t)
	mockValidation.AssertExpectations(t)
	mockLimits.AssertExpectations(t)
	mockQuotes.AssertExpectations(t)
}

func TestHandleInitiateTrade_InvalidPin(t *testing.T) {
	h := NewTradeHandler(new(MockTradeLedger), new(MockValidationGuard), new(MockLimitGuard), new(MockQuoteEngine), newStubProducer(), syncRunner{}, testErrorHandler())

	req := newTradeRequest(t, testUserWithPin(t, "123456"), map[string]any{
		"amount":         50_000,
		"currency":       "btc",
		"type":           "buy",
		"payment_method": "bank",
		"pin":            "999999",
	})
	rr := httptest.NewRecorder()

	h.HandleInitiateTrade(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), ErrInvalidPin.Error())
}

func TestHandleInitiateTrade_MissingPinHash(t *testing.T) {
	h := NewTradeHandler(new(MockTradeLedger), new(MockValidationGuard), new(MockLimitGuard), new(MockQuoteEngine), newStubProducer(), syncRunner{}, testErrorHandler())

	user := testUserWithPin(t, "123456")
	user.PinHash = sql.NullString{}

	req := newTradeRequest(t, user, map[string]any{
		"amount":         50_000,
		"currency":       "btc",
		"type":           "buy",
		"payment_method": "bank",
		"pin":            "123456",
	})
	rr := httptest.NewRecorder()

	h.HandleInitiateTrade(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), ErrNoTransactionPin.Error())
}

func TestHandleInitiateTrade_DuplicateReference(t *testing.T) {
	mockLedger := new(MockTradeLedger)
	mockLedger.On("FindTransactionByReference", "ref-dup").
		Return(&database.Transaction{ID: "txn-1"}, true, nil)

	h := NewTradeHandler(mockLedger, new(MockValidationGuard), new(MockLimitGuard), new(MockQuoteEngine), newStubProducer(), syncRunner{}, testErrorHandler())

	req := newTradeRequest(t, testUserWithPin(t, "123456"), map[string]any{
		"amount":           50_000,
		"currency":         "btc",
		"type":             "buy",
		"payment_method":   "bank",
		"pin":              "123456",
		"reference_number": "ref-dup",
	})
	rr := httptest.NewRecorder()

	h.HandleInitiateTrade(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), ErrDuplicateTrade.Error())
	mockLedger.AssertExpectations(t)
}

func TestHandleInitiateTrade_ValidationRuleViolation(t *testing.T) {
	mockValidation := new(MockValidationGuard)
	mockValidation.On("Validate", mock.Anything).
		Return(&tradecheck.ValidationError{Message: "Trading is only available between 9:00 and 23:00"})

	h := NewTradeHandler(new(MockTradeLedger), mockValidation, new(MockLimitGuard), new(MockQuoteEngine), newStubProducer(), syncRunner{}, testErrorHandler())

	req := newTradeRequest(t, testUserWithPin(t, "123456"), map[string]any{
		"amount":         50_000,
		"currency":       "btc",
		"type":           "buy",
		"payment_method": "bank",
		"pin":            "123456",
	})
	rr := httptest.NewRecorder()

	h.HandleInitiateTrade(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "Trading is only available")
	mockValidation.AssertExpectations(t)
}

func TestHandleInitiateTrade_CounterFailureIsServerError(t *testing.T) {
	mockValidation := new(MockValidationGuard)
	mockValidation.On("Validate", mock.Anything).
		Return(errors.New("submission rate counter: connection refused"))

	h := NewTradeHandler(new(MockTradeLedger), mockValidation, new(MockLimitGuard), new(MockQuoteEngine), newStubProducer(), syncRunner{}, testErrorHandler())

	req := newTradeRequest(t, testUserWithPin(t, "123456"), map[string]any{
		"amount":         50_000,
		"currency":       "btc",
		"type":           "buy",
		"payment_method": "bank",
		"pin":            "123456",
	})
	rr := httptest.NewRecorder()

	h.HandleInitiateTrade(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestHandleInitiateTrade_LimitDenial(t *testing.T) {
	mockValidation := new(MockValidationGuard)
	mockValidation.On("Validate", mock.Anything).Return(nil)

	mockLimits := new(MockLimitGuard)
	mockLimits.On("CheckLimit", "user-1", 50_000.0).Return(&limits.LimitDecision{
		Allowed: false,
		Reason:  "This transaction would exceed your daily limit of ₦100,000",
		Tier:    limits.TierBasic,
		Limits:  limits.TierLimits{DailyLimit: 100_000, MonthlyLimit: 2_000_000},
	}, nil)

	h := NewTradeHandler(new(MockTradeLedger), mockValidation, mockLimits, new(MockQuoteEngine), newStubProducer(), syncRunner{}, testErrorHandler())

	req := newTradeRequest(t, testUserWithPin(t, "123456"), map[string]any{
		"amount":         50_000,
		"currency":       "btc",
		"type":           "buy",
		"payment_method": "bank",
		"pin":            "123456",
	})
	rr := httptest.NewRecorder()

	h.HandleInitiateTrade(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "daily limit")
	mockLimits.AssertExpectations(t)
}

func TestHandleInitiateTrade_HeadroomGoneAtReserve(t *testing.T) {
	mockValidation := new(MockValidationGuard)
	mockValidation.On("Validate", mock.Anything).Return(nil)

	mockLimits := new(MockLimitGuard)
	mockLimits.On("CheckLimit", "user-1", 50_000.0).Return(allowedDecision(), nil)

	mockQuotes := new(MockQuoteEngine)
	mockQuotes.On("GetRate", mock.Anything).Return(&rates.Quote{Rate: 90_450_000}, nil)

	// a concurrent trade consumed the headroom between the check and the insert
	mockLedger := new(MockTradeLedger)
	mockLedger.On("ReserveTransaction", mock.Anything, mock.Anything, mock.Anything, 100_000.0, 2_000_000.0).
		Return(nil, false, nil)

	h := NewTradeHandler(mockLedger, mockValidation, mockLimits, mockQuotes, newStubProducer(), syncRunner{}, testErrorHandler())

	req := newTradeRequest(t, testUserWithPin(t, "123456"), map[string]any{
		"amount":         50_000,
		"currency":       "btc",
		"type":           "buy",
		"payment_method": "bank",
		"pin":            "123456",
	})
	rr := httptest.NewRecorder()

	h.HandleInitiateTrade(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), ErrHeadroomGone.Error())
	mockLedger.AssertExpectations(t)
}

func TestHandleInitiateTrade_QuoteFailureIsServerError(t *testing.T) {
	mockValidation := new(MockValidationGuard)
	mockValidation.On("Validate", mock.Anything).Return(nil)

	mockLimits := new(MockLimitGuard)
	mockLimits.On("CheckLimit", "user-1", 50_000.0).Return(allowedDecision(), nil)

	mockQuotes := new(MockQuoteEngine)
	mockQuotes.On("GetRate", mock.Anything).Return(nil, errors.New("crypto price lookup: feed down"))

	h := NewTradeHandler(new(MockTradeLedger), mockValidation, mockLimits, mockQuotes, newStubProducer(), syncRunner{}, testErrorHandler())

	req := newTradeRequest(t, testUserWithPin(t, "123456"), map[string]any{
		"amount":         50_000,
		"currency":       "btc",
		"type":           "buy",
		"payment_method": "bank",
		"pin":            "123456",
	})
	rr := httptest.NewRecorder()

	h.HandleInitiateTrade(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
}
