package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"ms-admissions/internal/models"
)

var (
	// ErrOpenEntryExists means the ticket already has an admission that
	// has not been exited.
	ErrOpenEntryExists = errors.New("an open entry already exists for this ticket")
	// ErrNotFound means no record carries the given id.
	ErrNotFound = errors.New("attendance record not found")
	// ErrAlreadyClosed means the record's exit was already recorded.
	ErrAlreadyClosed = errors.New("attendance record already closed")
)

// DB stores one row per physical admission. The single-open-admission
// invariant lives in the partial unique index uq_attendance_open_ticket
// (ticket_number WHERE NOT exited); OpenEntry relies on it rather than on
// a read-then-write check, so concurrent opens for one ticket cannot both
// commit.
type DB struct {
	Bun *bun.DB
}

// EnsureOpenEntryIndex creates the partial unique index backing OpenEntry.
// Migrations create it in production; tests and dev setups call this after
// creating the table.
func EnsureOpenEntryIndex(ctx context.Context, bunDB *bun.DB) error {
	_, err := bunDB.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS uq_attendance_open_ticket
		ON attendance_records (ticket_number) WHERE NOT exited`)
	return err
}

// OpenEntry inserts a new open admission for the ticket. It fails with
// ErrOpenEntryExists when an open record is present, including when a
// concurrent caller wins the insert race.
func (d *DB) OpenEntry(ctx context.Context, record models.AttendanceRecord) (*models.AttendanceRecord, error) {
	_, err := d.Bun.NewInsert().
		Model(&record).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrOpenEntryExists
		}
		return nil, err
	}
	return &record, nil
}

// CloseEntry stamps the exit on an open record. The update is conditional
// on the record still being open, so a racing second close loses cleanly.
func (d *DB) CloseEntry(ctx context.Context, id string, exitTime time.Time) (*models.AttendanceRecord, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.AttendanceRecord)(nil)).
		Set("exit_time = ?", exitTime).
		Set("exited = ?", true).
		Where("id = ?", id).
		Where("NOT exited").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Either the id is unknown or the record was already closed.
		var existing models.AttendanceRecord
		err := d.Bun.NewSelect().
			Model(&existing).
			Where("id = ?", id).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, ErrAlreadyClosed
	}

	var record models.AttendanceRecord
	if err := d.Bun.NewSelect().Model(&record).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListForDay returns every record whose entry falls within the given day
// bounds, entry-time ascending.
func (d *DB) ListForDay(ctx context.Context, dayStart, dayEnd time.Time) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	err := d.Bun.NewSelect().
		Model(&records).
		Where("entry_time >= ?", dayStart).
		Where("entry_time <= ?", dayEnd).
		Order("entry_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// FindOpenByTicket returns the ticket's open record, or nil if the
// visitor is not currently inside.
func (d *DB) FindOpenByTicket(ctx context.Context, ticketNumber string) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	err := d.Bun.NewSelect().
		Model(&record).
		Where("ticket_number = ?", ticketNumber).
		Where("NOT exited").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByID returns a record regardless of open state.
func (d *DB) FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	err := d.Bun.NewSelect().
		Model(&record).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindLatestByTicket returns the most recent record for a ticket, open or
// exited, or nil when the ticket has never been admitted.
func (d *DB) FindLatestByTicket(ctx context.Context, ticketNumber string) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	err := d.Bun.NewSelect().
		Model(&record).
		Where("ticket_number = ?", ticketNumber).
		Order("entry_time DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// CountOpenForDay counts visitors currently inside: open records whose
// entry falls within the day bounds.
func (d *DB) CountOpenForDay(ctx context.Context, dayStart, dayEnd time.Time) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.AttendanceRecord)(nil)).
		Where("entry_time >= ?", dayStart).
		Where("entry_time <= ?", dayEnd).
		Where("NOT exited").
		Count(ctx)
}

// isUniqueViolation recognizes the open-entry index firing under both the
// production postgres driver and the sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
