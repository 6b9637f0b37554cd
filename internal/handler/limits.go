package handler

import (
	"net/http"

	"github.com/theceo1/trustbank-engine/internal/context"
	"github.com/theceo1/trustbank-engine/internal/errHandler"
	"github.com/theceo1/trustbank-engine/internal/limits"
	"github.com/theceo1/trustbank-engine/internal/response"
)

type limitsHandler struct {
	guard      *limits.TradeLimitGuard
	errHandler *errHandler.ErrorRepository
}

func NewLimitsHandler(guard *limits.TradeLimitGuard, errHandler *errHandler.ErrorRepository) *limitsHandler {
	return &limitsHandler{
		guard:      guard,
		errHandler: errHandler,
	}
}

type LimitsResponseData struct {
	Tier      string             `json:"tier"`
	KycNeeded bool               `json:"kyc_needed"`
	Limits    limits.TierLimits  `json:"limits"`
	Usage     limits.UsageTotals `json:"usage"`
	Remaining *limits.Headroom   `json:"remaining,omitempty"`
}

// HandleGetLimits reports the user's tier, ceilings, window usage and
// remaining headroom. A zero-amount check reuses the guard so the numbers
// here always agree with what a trade would see.
func (h *limitsHandler) HandleGetLimits(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	decision, err := h.guard.CheckLimit(user.ID, 0)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := &LimitsResponseData{
		Tier:      decision.Tier.String(),
		Limits:    decision.Limits,
		Remaining: decision.Remaining,
	}

	if decision.Allowed {
		totals, err := h.guard.Usage(user.ID)
		if err != nil {
			h.errHandler.ServerError(w, r, err)
			return
		}
		data.Usage = totals
	} else {
		data.KycNeeded = true
	}

	err = response.JSONOkResponse(w, data, "Data retrieved successfully", nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
