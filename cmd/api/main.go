package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/theceo1/trustbank-engine/internal/app"
	"github.com/theceo1/trustbank-engine/internal/version"
	"github.com/theceo1/trustbank-engine/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	err := run(logger)
	if err != nil {
		trace := string(debug.Stack())
		logger.Error(err.Error(), "trace", trace)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	showVersion := flag.Bool("version", false, "display version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("version: %s\n", version.Get())
		return nil
	}

	application, err := app.NewApplication(logger)
	if err != nil {
		return err
	}
	defer application.DB.Close()
	defer application.Cache.Close()

	workers := worker.New(&worker.Worker{
		KafkaStream: application.Kafka,
		DB:          application.DB,
		Exchange:    application.Exchange,
	})

	go workers.SettlementWorker()
	go workers.SettledTradeWorker()
	go workers.FailedTradeWorker()

	return application.ServeHTTP()
}
