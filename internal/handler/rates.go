package handler

import (
	dctx "context"
	"net/http"
	"strconv"

	"github.com/theceo1/trustbank-engine/internal/errHandler"
	"github.com/theceo1/trustbank-engine/internal/rates"
	"github.com/theceo1/trustbank-engine/internal/response"
	"github.com/theceo1/trustbank-engine/internal/validator"
)

type ratesHandler struct {
	quotes     quoteEngine
	errHandler *errHandler.ErrorRepository
}

func NewRatesHandler(quotes quoteEngine, errHandler *errHandler.ErrorRepository) *ratesHandler {
	return &ratesHandler{
		quotes:     quotes,
		errHandler: errHandler,
	}
}

type QuoteResponseData struct {
	Currency string  `json:"currency"`
	Type     string  `json:"type"`
	Amount   float64 `json:"amount"`
	*rates.Quote
	// Quotes are priced fresh per request; the client enforces this window.
	ValidForSeconds int `json:"valid_for_seconds"`
}

func (h *ratesHandler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	var v validator.Validator

	currency := r.URL.Query().Get("currency")
	tradeType := r.URL.Query().Get("type")
	amountStr := r.URL.Query().Get("amount")

	amount, err := strconv.ParseFloat(amountStr, 64)

	v.Check(validator.NotBlank(currency), "Currency is required")
	v.Check(validator.In(tradeType, rates.TradeTypeBuy, rates.TradeTypeSell), "Type must be buy or sell")
	v.Check(err == nil && amount > 0, "Amount must be a positive number")

	if v.HasErrors() {
		h.errHandler.FailedValidation(w, r, v.Errors)
		return
	}

	ctx, cancel := dctx.WithTimeout(r.Context(), quoteTimeout)
	defer cancel()

	quote, err := h.quotes.GetRate(ctx, &rates.QuoteRequest{
		Amount:   amount,
		Currency: currency,
		Type:     tradeType,
	})
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := &QuoteResponseData{
		Currency:        currency,
		Type:            tradeType,
		Amount:          amount,
		Quote:           quote,
		ValidForSeconds: 30,
	}

	err = response.JSONOkResponse(w, data, "Quote generated successfully", nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
