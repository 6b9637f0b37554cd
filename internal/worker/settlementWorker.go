package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/theceo1/trustbank-engine/internal/exchange"
	"github.com/theceo1/trustbank-engine/internal/handler"
	"github.com/theceo1/trustbank-engine/internal/rates"
	"github.com/theceo1/trustbank-engine/internal/stream"
)

const settlementTimeout = 30 * time.Second

// SettlementWorker hands gated trades to the exchange partner. Settlement is
// entirely the partner's job; this worker only relays and reports the outcome
// on the trade.settled / trade.failed topics.
func (wk *Worker) SettlementWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: tradeExecuteGroupID,
		Topic:   stream.TradeExecuteTopic,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}
	for {
		event := consumer.Poll(100) // Poll every 100ms
		switch e := event.(type) {
		case *kafka.Message:
			log.Printf("Trade message received on %s: %s\n", e.TopicPartition, string(e.Value))

			var trade handler.InitiatedTrade
			if err := json.Unmarshal(e.Value, &trade); err != nil {
				log.Printf("Error decoding trade message: %v", err)
				continue
			}

			if wk.settleTrade(&trade) {
				wk.KafkaStream.ProduceMessage(stream.TradeSettledTopic, string(e.Value))
			} else {
				wk.KafkaStream.ProduceMessage(stream.TradeFailedTopic, string(e.Value))
			}
		case kafka.Error:
			log.Printf("Error: %v\n", e)
		default:
			// Handle other events if needed
		}
	}
}

func (wk *Worker) settleTrade(trade *handler.InitiatedTrade) bool {
	ctx, cancel := context.WithTimeout(context.Background(), settlementTimeout)
	defer cancel()

	amount := trade.Amount
	if trade.Type == rates.TradeTypeSell {
		// settlement fee schedule, deducted from the payout
		amount -= rates.SettlementFee(trade.Amount)
	}

	order := &exchange.OrderRequest{
		UserID:    trade.UserID,
		Currency:  trade.Currency,
		Type:      trade.Type,
		Amount:    amount,
		Rate:      trade.Rate,
		Reference: trade.ReferenceNumber,
	}

	result, err := wk.Exchange.CreateInstantOrder(ctx, order)
	if err != nil {
		log.Printf("Error settling trade %s: %v", trade.ReferenceNumber, err)
		return false
	}

	log.Printf("Trade %s settled, exchange order %s", trade.ReferenceNumber, result.OrderID)
	return true
}
