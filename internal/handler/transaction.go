package handler

import (
	"net/http"
	"time"

	"github.com/theceo1/trustbank-engine/internal/context"
	"github.com/theceo1/trustbank-engine/internal/database"
	"github.com/theceo1/trustbank-engine/internal/errHandler"
	"github.com/theceo1/trustbank-engine/internal/response"
)

type transactionHandler struct {
	db         *database.DB
	errHandler *errHandler.ErrorRepository
}

func NewTransactionHandler(db *database.DB, errHandler *errHandler.ErrorRepository) *transactionHandler {
	return &transactionHandler{
		db:         db,
		errHandler: errHandler,
	}
}

type TransactionResponseData struct {
	ID              string  `json:"id"`
	Type            string  `json:"type"`
	Currency        string  `json:"currency"`
	Amount          float64 `json:"amount"`
	Rate            float64 `json:"rate"`
	Fee             float64 `json:"fee"`
	PaymentMethod   string  `json:"payment_method"`
	ReferenceNumber string  `json:"reference_number"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
}

func (h *transactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	queryValues := retrieveUrlQueryValues(r)

	transactions, err := h.db.GetUserTransactions(user.ID,
		queryValues.StartDate, queryValues.EndDate,
		queryValues.Limit, queryValues.Offset)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := make([]TransactionResponseData, len(transactions))
	for i, trans := range transactions {
		data[i] = TransactionResponseData{
			ID:              trans.ID,
			Type:            trans.Type,
			Currency:        trans.Currency,
			Amount:          trans.Amount,
			Rate:            trans.Rate,
			Fee:             trans.Fee,
			PaymentMethod:   trans.PaymentMethod,
			ReferenceNumber: trans.ReferenceNumber,
			Status:          trans.Status,
			CreatedAt:       trans.CreatedAt.Format(time.RFC3339),
		}
	}

	err = response.JSONOkResponse(w, data, "Data retrieved successfully", nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
