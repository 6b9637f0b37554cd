package app

import (
	"net/http"

	"github.com/theceo1/trustbank-engine/internal/handler"
	"github.com/theceo1/trustbank-engine/internal/helper"
	"github.com/theceo1/trustbank-engine/internal/middleware"
)

func (app *Application) routes() http.Handler {
	mux := http.NewServeMux()

	middlewareRepo := middleware.New(app.errorHandler, app.Logger, app.DB, &app.Config)
	helperRepo := helper.New(&app.Config.BaseURL, &app.WG, app.errorHandler)

	healthHandler := handler.NewHealthCheckHandler(app.errorHandler)
	tradeHandler := handler.NewTradeHandler(app.DB, app.ValidationGuard, app.LimitGuard, app.QuoteEngine, app.Kafka, helperRepo, app.errorHandler)
	ratesHandler := handler.NewRatesHandler(app.QuoteEngine, app.errorHandler)
	limitsHandler := handler.NewLimitsHandler(app.LimitGuard, app.errorHandler)
	kycHandler := handler.NewKycHandler(app.DB, app.FileUploader, app.errorHandler)
	accountHandler := handler.NewAccountHandler(app.DB, app.errorHandler)
	transactionHandler := handler.NewTransactionHandler(app.DB, app.errorHandler)

	mux.HandleFunc("GET /status", healthHandler.HandleHealthCheck)
	mux.HandleFunc("GET /kyc/tiers", kycHandler.HandleListTiers)

	authenticated := func(h http.HandlerFunc) http.Handler {
		return middlewareRepo.RequireAuthenticatedUser(h)
	}

	mux.Handle("POST /trades", authenticated(tradeHandler.HandleInitiateTrade))
	mux.Handle("GET /rates", authenticated(ratesHandler.HandleGetQuote))
	mux.Handle("GET /limits", authenticated(limitsHandler.HandleGetLimits))
	mux.Handle("GET /transactions", authenticated(transactionHandler.HandleListTransactions))
	mux.Handle("POST /kyc/documents", authenticated(kycHandler.HandleUploadDocument))
	mux.Handle("POST /account/pin", authenticated(accountHandler.HandleSetPin))

	return middlewareRepo.LogAccess(middlewareRepo.RecoverPanic(middlewareRepo.Authenticate(mux)))
}
