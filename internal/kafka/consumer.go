package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-admissions/internal/logger"
	"ms-admissions/internal/models"
)

// Consumer reads booking-completed events from the booking ledger. Each
// message is one booking whose payment just transitioned to completed; the
// handler folds it into the daily rollups. Delivery is at-least-once: a
// redelivered message is recounted (the ledger owns deduplication).
type Consumer struct {
	reader *kafka.Reader
	logger *logger.Logger
}

func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, logger: log}
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, handler func(booking models.Booking)) {
	c.logger.Info("KAFKA", "booking-completed consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("KAFKA", "consumer stopping")
				return
			}
			c.logger.Error("KAFKA", fmt.Sprintf("error reading message: %v", err))
			continue
		}

		var booking models.Booking
		if err := json.Unmarshal(msg.Value, &booking); err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("failed to unmarshal booking event: %v", err))
			continue
		}

		c.logger.Info("KAFKA", fmt.Sprintf("received booking completion: %s", booking.TicketNumber))
		handler(booking)
	}
}

// Close gracefully shuts down the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
