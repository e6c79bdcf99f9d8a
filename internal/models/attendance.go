package models

import (
	"time"

	"github.com/uptrace/bun"
)

// AttendanceRecord is one physical admission: an entry and, once the
// visitor leaves, an exit. A ticket may accumulate several exited records
// over a day (re-entry is allowed) but at most one open one; the partial
// unique index on (ticket_number) WHERE NOT exited enforces that.
type AttendanceRecord struct {
	bun.BaseModel `bun:"table:attendance_records"`

	ID           string     `bun:"id,pk" json:"id"`
	TicketNumber string     `bun:"ticket_number" json:"ticket_number"`
	VisitorName  string     `bun:"visitor_name" json:"visitor_name"`
	EntryTime    time.Time  `bun:"entry_time" json:"entry_time"`
	ExitTime     *time.Time `bun:"exit_time,nullzero" json:"exit_time,omitempty"`
	Exited       bool       `bun:"exited" json:"exited"`
	VerifiedBy   string     `bun:"verified_by" json:"verified_by"`
}
