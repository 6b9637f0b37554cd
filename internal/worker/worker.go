package worker

import (
	"github.com/theceo1/trustbank-engine/internal/database"
	"github.com/theceo1/trustbank-engine/internal/exchange"
	"github.com/theceo1/trustbank-engine/internal/stream"
)

// Workers consume initiated trades off the stream and drive them through the
// exchange partner. They all need the ledger and the event stream; anything
// worker-specific is passed alongside.
type Worker struct {
	KafkaStream *stream.KafkaStream
	DB          *database.DB
	Exchange    *exchange.Client
}

const (
	// tradeExecuteGroupID is used by workers that settle initiated trades
	// through the exchange partner.
	tradeExecuteGroupID = "trade-execute-group"

	// tradeStatusGroupID is used by workers that record settlement outcomes
	// on the ledger.
	tradeStatusGroupID = "trade-status-group"
)

func New(wk *Worker) *Worker {
	return &Worker{
		KafkaStream: wk.KafkaStream,
		DB:          wk.DB,
		Exchange:    wk.Exchange,
	}
}
