package worker

import (
	"encoding/json"
	"log"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/theceo1/trustbank-engine/internal/database"
	"github.com/theceo1/trustbank-engine/internal/handler"
	"github.com/theceo1/trustbank-engine/internal/stream"
)

// SettledTradeWorker marks confirmed trades completed on the ledger.
func (wk *Worker) SettledTradeWorker() {
	wk.consumeStatusTopic(stream.TradeSettledTopic, database.TransactionStatusCompleted)
}

// FailedTradeWorker marks failed trades on the ledger. A failed row stops
// counting against the usage windows, releasing the reserved headroom.
func (wk *Worker) FailedTradeWorker() {
	wk.consumeStatusTopic(stream.TradeFailedTopic, database.TransactionStatusFailed)
}

func (wk *Worker) consumeStatusTopic(topic, status string) {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: tradeStatusGroupID,
		Topic:   topic,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}
	for {
		event := consumer.Poll(100)
		switch e := event.(type) {
		case *kafka.Message:
			var trade handler.InitiatedTrade
			if err := json.Unmarshal(e.Value, &trade); err != nil {
				log.Printf("Error decoding trade message: %v", err)
				continue
			}

			if err := wk.DB.UpdateTransactionStatus(trade.ID, status); err != nil {
				log.Printf("Error marking trade %s as %s: %v", trade.ID, status, err)
				continue
			}

			log.Printf("Trade %s marked %s", trade.ReferenceNumber, status)
		case kafka.Error:
			log.Printf("Error: %v\n", e)
		default:
		}
	}
}
