package handler

import (
	"net/http"
	"regexp"

	"github.com/cradoe/gopass"
	"github.com/theceo1/trustbank-engine/internal/context"
	"github.com/theceo1/trustbank-engine/internal/database"
	"github.com/theceo1/trustbank-engine/internal/errHandler"
	"github.com/theceo1/trustbank-engine/internal/request"
	"github.com/theceo1/trustbank-engine/internal/response"
	"github.com/theceo1/trustbank-engine/internal/validator"
)

var rgxTransactionPin = regexp.MustCompile(`^\d{4,6}$`)

type accountHandler struct {
	db         *database.DB
	errHandler *errHandler.ErrorRepository
}

func NewAccountHandler(db *database.DB, errHandler *errHandler.ErrorRepository) *accountHandler {
	return &accountHandler{
		db:         db,
		errHandler: errHandler,
	}
}

func (h *accountHandler) HandleSetPin(w http.ResponseWriter, r *http.Request) {
	type SetPinInput struct {
		Pin       string              `json:"pin"`
		Validator validator.Validator `json:"-"`
	}

	var input SetPinInput

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Pin), "Pin is required")
	input.Validator.Check(validator.Matches(input.Pin, rgxTransactionPin), "Pin must be 4 to 6 digits")

	if input.Validator.HasErrors() {
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	// hashed like a password so a leaked database row doesn't leak the PIN
	hashedPin, err := gopass.Hash(input.Pin)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	user := context.ContextGetAuthenticatedUser(r)

	if err := h.db.SetTransactionPin(user.ID, hashedPin); err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	err = response.JSONOkResponse(w, nil, "Transaction PIN set successfully", nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
