package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/ocheikhi/vehinspect-backend/utils"
)

// StartKafkaConsumer reads booking events and hands them to the dispatch
// service. It returns immediately; reading happens on a goroutine that
// stops when ctx is cancelled.
func StartKafkaConsumer(ctx context.Context, svc Service) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  utils.KafkaBrokers(),
		Topic:    utils.KafkaTopic(),
		GroupID:  "notification-dispatcher",
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	go func() {
		defer reader.Close()
		log.Printf("✅ Notification consumer started on topic %s", utils.KafkaTopic())

		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
					log.Println("⚠️ Notification consumer stopped")
					return
				}
				log.Printf("❌ Kafka read error: %v", err)
				continue
			}

			var event utils.BookingEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("❌ Bad booking event payload: %v", err)
				continue
			}

			svc.Dispatch(ctx, event)
		}
	}()
}
