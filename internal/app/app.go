package app

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/theceo1/trustbank-engine/internal/cache"
	"github.com/theceo1/trustbank-engine/internal/config"
	"github.com/theceo1/trustbank-engine/internal/database"
	"github.com/theceo1/trustbank-engine/internal/env"
	"github.com/theceo1/trustbank-engine/internal/errHandler"
	"github.com/theceo1/trustbank-engine/internal/exchange"
	"github.com/theceo1/trustbank-engine/internal/file"
	"github.com/theceo1/trustbank-engine/internal/limits"
	"github.com/theceo1/trustbank-engine/internal/rates"
	"github.com/theceo1/trustbank-engine/internal/smtp"
	"github.com/theceo1/trustbank-engine/internal/stream"
	"github.com/theceo1/trustbank-engine/internal/tradecheck"
)

const priceCacheTTL = 30 * time.Second

// Essential services and resources are exposed to the application
// this makes it possible for methods to have access to these items when they need them
type Application struct {
	Config          config.Config
	DB              *database.DB
	Cache           *cache.Cache
	Logger          *slog.Logger
	Mailer          *smtp.Mailer
	WG              sync.WaitGroup
	Kafka           *stream.KafkaStream
	FileUploader    *file.FileUploader
	Exchange        *exchange.Client
	QuoteEngine     *rates.RateQuoteEngine
	LimitGuard      *limits.TradeLimitGuard
	ValidationGuard *tradecheck.TradeValidationGuard
	errorHandler    *errHandler.ErrorRepository
}

func NewApplication(logger *slog.Logger) (*Application, error) {
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", "error", err)
	}

	var cfg config.Config

	// config values are loaded from the .env file
	// Default values are provided for these items and these should strictly be values for development mode only
	// make sure no production-level value is exposed as default value here
	cfg.BaseURL = env.GetString("BASE_URL", "http://localhost:4444")
	cfg.HttpPort = env.GetInt("HTTP_PORT", 4444)

	cfg.Db.Dsn = env.GetString("DB_DSN", "user:pass@localhost:5432/db")
	cfg.Db.Automigrate = env.GetBool("DB_AUTOMIGRATE", true)

	cfg.Jwt.SecretKey = env.GetString("JWT_SECRET_KEY", "ajf5nx3qmp6zquevllxocxqvyz42ypuo")

	cfg.Redis.Addr = env.GetString("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Db = env.GetInt("REDIS_DB", 0)

	// server errors won't be sent via email if the NOTIFICATIONS_EMAIL wasn't set in the .env file
	cfg.Notifications.Email = env.GetString("NOTIFICATIONS_EMAIL", "")

	cfg.Smtp.Host = env.GetString("SMTP_HOST", "example.smtp.host")
	cfg.Smtp.Port = env.GetInt("SMTP_PORT", 25)
	cfg.Smtp.Username = env.GetString("SMTP_USERNAME", "example_username")
	cfg.Smtp.Password = env.GetString("SMTP_PASSWORD", "pa55word")
	cfg.Smtp.From = env.GetString("SMTP_FROM", "trustBank <no_reply@example.org>")

	cfg.KafkaServers = env.GetString("KAFKA_SERVERS", "localhost:9092")

	cfg.FileUploader.ApiKey = env.GetString("CLOUDINARY_API_KEY", "")
	cfg.FileUploader.CloudName = env.GetString("CLOUDINARY_CLOUD_NAME", "")
	cfg.FileUploader.ApiSecret = env.GetString("CLOUDINARY_API_SECRET", "")

	cfg.PriceFeeds.CryptoURL = env.GetString("PRICE_FEED_URL", "https://api.coingecko.com/api/v3")
	cfg.PriceFeeds.FxURL = env.GetString("FX_RATE_URL", "https://open.er-api.com/v6")

	cfg.Exchange.BaseURL = env.GetString("EXCHANGE_BASE_URL", "https://www.quidax.com")
	cfg.Exchange.SecretKey = env.GetString("EXCHANGE_SECRET_KEY", "")

	db, err := database.New(cfg.Db.Dsn, cfg.Db.Automigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisCache := cache.New(cfg.Redis.Addr, cfg.Redis.Db)

	mailer, err := smtp.NewMailer(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.From)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	errorHandler := errHandler.New(cfg.Notifications.Email, cfg.BaseURL, mailer, logger)

	kafkaStream := stream.New(cfg.KafkaServers)

	fileUploader := file.New(cfg.FileUploader.CloudName, cfg.FileUploader.ApiKey, cfg.FileUploader.ApiSecret)

	exchangeClient := exchange.New(cfg.Exchange.BaseURL, cfg.Exchange.SecretKey)

	// tier ceilings come from the kyc_tiers table; fall back to the built-in
	// table if it can't be read so the guard still denies correctly
	policy := limits.DefaultTierLimitPolicy()
	if tiers, err := db.GetKYCTiers(); err != nil {
		logger.Error("failed to load kyc tiers, using default ceilings", "error", err)
	} else if len(tiers) > 0 {
		policy = limits.NewTierLimitPolicyFromTiers(tiers)
	}

	aggregator := limits.NewUsageAggregator(db)
	limitGuard := limits.NewTradeLimitGuard(policy, aggregator, db)

	validationGuard := tradecheck.NewTradeValidationGuard(redisCache)

	priceSource := rates.NewCachedPriceSource(
		rates.NewCoinPriceClient(cfg.PriceFeeds.CryptoURL),
		redisCache,
		priceCacheTTL,
	)
	quoteEngine := rates.NewRateQuoteEngine(priceSource, rates.NewFxRateClient(cfg.PriceFeeds.FxURL))

	app := &Application{
		Config:          cfg,
		DB:              db,
		Cache:           redisCache,
		Logger:          logger,
		Mailer:          mailer,
		Kafka:           kafkaStream,
		FileUploader:    fileUploader,
		Exchange:        exchangeClient,
		QuoteEngine:     quoteEngine,
		LimitGuard:      limitGuard,
		ValidationGuard: validationGuard,
		errorHandler:    errorHandler,
	}

	return app, nil
}
