package stream

import (
	"encoding/json"
	"log"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Topics shared between the trade pipeline, which produces, and the
// settlement workers, which consume. Defined here so both sides name the
// same literal.
const (
	// TradeExecuteTopic carries trades that passed the policy gate and are
	// waiting for settlement.
	TradeExecuteTopic = "trade.execute"

	// TradeSettledTopic carries trades the exchange confirmed.
	TradeSettledTopic = "trade.settled"

	// TradeFailedTopic carries trades the exchange rejected or that errored,
	// so the ledger row can be marked failed and headroom released.
	TradeFailedTopic = "trade.failed"
)

type KafkaStream struct {
	kafkaServers string
}

func New(kafkaServers string) *KafkaStream {
	return &KafkaStream{
		kafkaServers: kafkaServers,
	}
}

func (st *KafkaStream) ProduceMessage(topic, message string) error {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{"bootstrap.servers": st.kafkaServers})
	if err != nil {
		return err
	}
	defer producer.Close()

	err = producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          []byte(message),
	}, nil)

	if err != nil {
		log.Printf("Failed to produce message: %v", err)
		return err
	}

	log.Printf("Message sent to topic %s", topic)
	return nil
}

// ProduceJSON marshals the value and produces it on the topic.
func (st *KafkaStream) ProduceJSON(topic string, value any) error {
	message, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return st.ProduceMessage(topic, string(message))
}

type StreamConsumer struct {
	GroupId string
	Topic   string
}

func (st *KafkaStream) CreateConsumer(consumerStruct *StreamConsumer) (*kafka.Consumer, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": st.kafkaServers,
		"group.id":          consumerStruct.GroupId,
		"auto.offset.reset": "earliest",
	})
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(consumerStruct.Topic, nil); err != nil {
		return nil, err
	}

	return consumer, nil
}
