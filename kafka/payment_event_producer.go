package kafka

import (
	"context"
	"encoding/json"
	"log"

	"payment-sync-service/models"

	"github.com/segmentio/kafka-go"
)

type PaymentEventProducer struct {
	writer *kafka.Writer
	topic  string
}

func NewPaymentEventProducer(brokers []string, topic string) *PaymentEventProducer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Printf("[PaymentSync][KafkaProducer] initialized topic=%s brokers=%v", topic, brokers)
	return &PaymentEventProducer{writer: w, topic: topic}
}

// SendStatusEvent publishes one applied status transition, keyed by bill
// so all events for a bill land on the same partition.
func (p *PaymentEventProducer) SendStatusEvent(event models.PaymentStatusEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.BillID),
		Value: data,
	}

	return p.writer.WriteMessages(context.Background(), msg)
}

func (p *PaymentEventProducer) Close() {
	_ = p.writer.Close()
	log.Println("[PaymentSync] Kafka producer closed")
}
