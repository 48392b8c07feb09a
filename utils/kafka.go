package utils

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

var kafkaWriter *kafka.Writer

// BookingEvent is the message published on the booking-events topic after a
// transaction commits. Notification dispatch consumes it asynchronously so
// email latency or failure never touches the booking/payment transaction.
type BookingEvent struct {
	Type          string    `json:"type"` // booking.created / booking.confirmed / payment.confirmed / booking.cancelled
	BookingID     uint      `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	UserID        uint      `json:"user_id"`
	CenterID      uint      `json:"center_id"`
	Amount        float64   `json:"amount"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func KafkaBrokers() []string {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		brokers = "localhost:9092"
	}
	return strings.Split(brokers, ",")
}

func KafkaTopic() string {
	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "booking-events"
	}
	return topic
}

// InitializeKafka sets up the shared event writer.
func InitializeKafka() {
	kafkaWriter = &kafka.Writer{
		Addr:         kafka.TCP(KafkaBrokers()...),
		Topic:        KafkaTopic(),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // fire-and-forget, errors go to the completion callback
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Printf("⚠️ Kafka publish failed (%d messages): %v", len(messages), err)
			}
		},
	}
	log.Println("✅ Kafka writer initialized for topic:", KafkaTopic())
}

// PublishBookingEvent enqueues an event. Errors are logged, never returned to
// the caller's transaction path.
func PublishBookingEvent(event BookingEvent) {
	if kafkaWriter == nil {
		log.Println("⚠️ Kafka not initialized, dropping event:", event.Type)
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("⚠️ Failed to marshal booking event: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := kafkaWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.BookingNumber),
		Value: payload,
	}); err != nil {
		log.Printf("⚠️ Failed to publish %s event for booking %s: %v", event.Type, event.BookingNumber, err)
	}
}

// CloseKafka flushes pending messages during shutdown.
func CloseKafka() {
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			log.Printf("⚠️ Kafka writer close error: %v", err)
		}
	}
}
