package handler

import (
	"net/http"

	"github.com/theceo1/trustbank-engine/internal/context"
	"github.com/theceo1/trustbank-engine/internal/database"
	"github.com/theceo1/trustbank-engine/internal/errHandler"
	"github.com/theceo1/trustbank-engine/internal/file"
	"github.com/theceo1/trustbank-engine/internal/response"
)

type KYCTierResponseData struct {
	ID           string                       `json:"id"`
	TierName     string                       `json:"tier_name"`
	Ordinal      int                          `json:"ordinal"`
	DailyLimit   float64                      `json:"daily_limit"`
	MonthlyLimit float64                      `json:"monthly_limit"`
	Requirements []KYCRequirementResponseData `json:"requirements"`
}

type KYCRequirementResponseData struct {
	ID          string `json:"id"`
	Requirement string `json:"requirement"`
}

type kycHandler struct {
	db         *database.DB
	uploader   *file.FileUploader
	errHandler *errHandler.ErrorRepository
}

func NewKycHandler(db *database.DB, uploader *file.FileUploader, errHandler *errHandler.ErrorRepository) *kycHandler {
	return &kycHandler{
		db:         db,
		uploader:   uploader,
		errHandler: errHandler,
	}
}

func (h *kycHandler) HandleListTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.db.GetKYCTiers()
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	if len(tiers) == 0 {
		message := "No KYC tier found"
		err = response.JSONOkResponse(w, []KYCTierResponseData{}, message, nil)
		if err != nil {
			h.errHandler.ServerError(w, r, err)
		}
		return
	}

	message := "Data retrieved successfully"

	data := make([]*KYCTierResponseData, len(tiers))
	for i, tier := range tiers {
		requirements := make([]KYCRequirementResponseData, len(tier.Requirements))
		for j, req := range tier.Requirements {
			requirements[j] = KYCRequirementResponseData{
				ID:          req.ID,
				Requirement: req.Requirement,
			}
		}

		data[i] = &KYCTierResponseData{
			ID:           tier.ID,
			TierName:     tier.TierName,
			Ordinal:      tier.Ordinal,
			DailyLimit:   tier.DailyLimit,
			MonthlyLimit: tier.MonthlyLimit,
			Requirements: requirements,
		}
	}

	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

const maxDocumentSize = 10 << 20 // 10MB

// HandleUploadDocument accepts a KYC document and attaches it to the user's
// verification profile. The verification decision itself arrives later via
// the KYC webhook collaborator; we only store the document and flip the
// profile back to pending review.
func (h *kycHandler) HandleUploadDocument(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	document, _, err := r.FormFile("document")
	if err != nil {
		h.errHandler.BadRequest(w, r, ErrDocumentMissing)
		return
	}
	defer document.Close()

	documentURL, err := h.uploader.UploadFile(r.Context(), document, "kyc-documents")
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	_, found, err := h.db.GetVerificationProfile(user.ID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !found {
		if _, err := h.db.CreateVerificationProfile(user.ID, nil); err != nil {
			h.errHandler.ServerError(w, r, err)
			return
		}
	}

	if err := h.db.AttachKycDocument(user.ID, documentURL); err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := map[string]any{
		"DocumentUrl": documentURL,
	}

	err = response.JSONOkResponse(w, data, "Document uploaded successfully", nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
