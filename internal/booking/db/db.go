package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-admissions/internal/models"
)

// DB is a read-only view over the booking ledger's table. The ledger owns
// every write, including the pending→completed|failed payment transition.
type DB struct {
	Bun *bun.DB
}

// FindByTicketNumber returns the booking a ticket number belongs to, or
// nil when the ledger has never issued it.
func (d *DB) FindByTicketNumber(ctx context.Context, ticketNumber string) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.NewSelect().
		Model(&booking).
		Where("ticket_number = ?", ticketNumber).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindCompleted returns the completed bookings whose visit date falls in
// [start, end], visit-date ascending.
func (d *DB) FindCompleted(ctx context.Context, start, end time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Where("payment_status = ?", models.PaymentCompleted).
		Where("visit_date >= ?", start).
		Where("visit_date <= ?", end).
		Order("visit_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// SumVisitorsForDay totals the visitor counts of completed bookings for
// one calendar day, given the day's bounds.
func (d *DB) SumVisitorsForDay(ctx context.Context, dayStart, dayEnd time.Time) (int, error) {
	var total sql.NullInt64
	err := d.Bun.NewSelect().
		Model((*models.Booking)(nil)).
		ColumnExpr("SUM(visitor_count)").
		Where("payment_status = ?", models.PaymentCompleted).
		Where("visit_date >= ?", dayStart).
		Where("visit_date <= ?", dayEnd).
		Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}
