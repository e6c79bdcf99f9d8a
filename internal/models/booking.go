package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Payment status values owned by the booking ledger.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Booking is the ledger's record of a purchased admission. This service
// only ever reads it; the booking ledger is the sole writer.
type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID            string    `bun:"id,pk" json:"id"`
	TicketNumber  string    `bun:"ticket_number,unique" json:"ticket_number"`
	VisitorName   string    `bun:"visitor_name" json:"visitor_name"`
	TicketType    string    `bun:"ticket_type" json:"ticket_type"`
	VisitDate     time.Time `bun:"visit_date" json:"visit_date"`
	VisitorCount  int       `bun:"visitor_count" json:"visitor_count"`
	TotalAmount   float64   `bun:"total_amount" json:"total_amount"`
	PaymentStatus string    `bun:"payment_status" json:"payment_status"`
	CreatedAt     time.Time `bun:"created_at" json:"created_at"`
}
