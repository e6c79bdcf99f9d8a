package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-admissions/internal/booking/db"
	"ms-admissions/internal/models"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = bunDB.NewCreateTable().Model((*models.Booking)(nil)).Exec(context.Background())
	if err != nil {
		t.Fatalf("Failed to create bookings table: %v", err)
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func seedBooking(t *testing.T, bunDB *bun.DB, ticketNumber, status string, visitDate time.Time, visitors int, amount float64) {
	booking := models.Booking{
		ID:            "bkg-" + ticketNumber,
		TicketNumber:  ticketNumber,
		VisitorName:   "Asha Rao",
		TicketType:    "Family Pack",
		VisitDate:     visitDate,
		VisitorCount:  visitors,
		TotalAmount:   amount,
		PaymentStatus: status,
		CreatedAt:     visitDate.AddDate(0, 0, -3),
	}
	_, err := bunDB.NewInsert().Model(&booking).Exec(context.Background())
	require.NoError(t, err)
}

func TestFindByTicketNumber(t *testing.T) {
	bookings, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	visitDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedBooking(t, bunDB, "TKT-20240101-0001", models.PaymentCompleted, visitDate, 4, 2000)

	booking, err := bookings.FindByTicketNumber(ctx, "TKT-20240101-0001")
	require.NoError(t, err)
	require.NotNil(t, booking)
	assert.Equal(t, "Asha Rao", booking.VisitorName)
	assert.Equal(t, 4, booking.VisitorCount)

	missing, err := bookings.FindByTicketNumber(ctx, "TKT-20240101-9999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFindCompletedFiltersStatusAndRange(t *testing.T) {
	bookings, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedBooking(t, bunDB, "TKT-20240101-0001", models.PaymentCompleted, jan1, 4, 2000)
	seedBooking(t, bunDB, "TKT-20240102-0001", models.PaymentCompleted, jan1.AddDate(0, 0, 1), 1, 500)
	seedBooking(t, bunDB, "TKT-20240103-0001", models.PaymentPending, jan1.AddDate(0, 0, 2), 2, 900)
	seedBooking(t, bunDB, "TKT-20240201-0001", models.PaymentCompleted, jan1.AddDate(0, 1, 0), 1, 500)

	found, err := bookings.FindCompleted(ctx, jan1, jan1.AddDate(0, 0, 6))
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "TKT-20240101-0001", found[0].TicketNumber)
	assert.Equal(t, "TKT-20240102-0001", found[1].TicketNumber)
}

func TestSumVisitorsForDay(t *testing.T) {
	bookings, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	jan1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	dayStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond)

	seedBooking(t, bunDB, "TKT-20240101-0001", models.PaymentCompleted, jan1, 4, 2000)
	seedBooking(t, bunDB, "TKT-20240101-0002", models.PaymentCompleted, jan1, 2, 1000)
	seedBooking(t, bunDB, "TKT-20240101-0003", models.PaymentFailed, jan1, 9, 0)

	total, err := bookings.SumVisitorsForDay(ctx, dayStart, dayEnd)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
}

func TestSumVisitorsForDayEmpty(t *testing.T) {
	bookings, bunDB := setupTestDB(t)
	defer bunDB.Close()

	dayStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	total, err := bookings.SumVisitorsForDay(context.Background(), dayStart, dayStart.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}
