package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-admissions/internal/models"
)

// Admission event types consumed by the external notifier.
const (
	EventVisitorEntered = "visitor_entered"
	EventVisitorExited  = "visitor_exited"
)

// AdmissionEvent is the wire shape published on the admission-events topic.
type AdmissionEvent struct {
	Type       string                  `json:"type"`
	OccurredAt time.Time               `json:"occurred_at"`
	Record     models.AttendanceRecord `json:"record"`
}

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer}
}

// PublishVisitorEntered streams a successful admission to the notifier.
func (p *Producer) PublishVisitorEntered(record models.AttendanceRecord) error {
	return p.publish(AdmissionEvent{
		Type:       EventVisitorEntered,
		OccurredAt: record.EntryTime,
		Record:     record,
	})
}

// PublishVisitorExited streams a recorded exit to the notifier.
func (p *Producer) PublishVisitorExited(record models.AttendanceRecord) error {
	occurred := record.EntryTime
	if record.ExitTime != nil {
		occurred = *record.ExitTime
	}
	return p.publish(AdmissionEvent{
		Type:       EventVisitorExited,
		OccurredAt: occurred,
		Record:     record,
	})
}

func (p *Producer) publish(event AdmissionEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(event.Record.TicketNumber),
			Value: msgBytes,
		},
	)
}

// Close shuts down the underlying writer.
func (p *Producer) Close() error {
	return p.Writer.Close()
}
