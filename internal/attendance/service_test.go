package attendance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-admissions/internal/attendance"
	attdb "ms-admissions/internal/attendance/db"
	"ms-admissions/internal/models"
)

// Mock implementations

type MockBookingDB struct {
	mock.Mock
}

func (m *MockBookingDB) FindByTicketNumber(ctx context.Context, ticketNumber string) (*models.Booking, error) {
	args := m.Called(ticketNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

type MockLedgerDB struct {
	mock.Mock
}

func (m *MockLedgerDB) OpenEntry(ctx context.Context, record models.AttendanceRecord) (*models.AttendanceRecord, error) {
	args := m.Called(record.TicketNumber)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	created := record
	return &created, nil
}

func (m *MockLedgerDB) CloseEntry(ctx context.Context, id string, exitTime time.Time) (*models.AttendanceRecord, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttendanceRecord), args.Error(1)
}

func (m *MockLedgerDB) ListForDay(ctx context.Context, dayStart, dayEnd time.Time) ([]models.AttendanceRecord, error) {
	args := m.Called(dayStart, dayEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AttendanceRecord), args.Error(1)
}

func (m *MockLedgerDB) FindOpenByTicket(ctx context.Context, ticketNumber string) (*models.AttendanceRecord, error) {
	args := m.Called(ticketNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttendanceRecord), args.Error(1)
}

func (m *MockLedgerDB) FindLatestByTicket(ctx context.Context, ticketNumber string) (*models.AttendanceRecord, error) {
	args := m.Called(ticketNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttendanceRecord), args.Error(1)
}

func (m *MockLedgerDB) FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttendanceRecord), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishVisitorEntered(record models.AttendanceRecord) error {
	args := m.Called(record.TicketNumber)
	return args.Error(0)
}

func (m *MockPublisher) PublishVisitorExited(record models.AttendanceRecord) error {
	args := m.Called(record.TicketNumber)
	return args.Error(0)
}

func completedBooking(ticketNumber string, visitDate time.Time) *models.Booking {
	return &models.Booking{
		ID:            "bkg-1",
		TicketNumber:  ticketNumber,
		VisitorName:   "Asha Rao",
		TicketType:    "Family Pack",
		VisitDate:     visitDate,
		VisitorCount:  4,
		TotalAmount:   2000,
		PaymentStatus: models.PaymentCompleted,
	}
}

func newService(bookings *MockBookingDB, ledger *MockLedgerDB, events attendance.EventPublisher) *attendance.Service {
	return attendance.NewService(bookings, ledger, events, nil, time.UTC, time.Second)
}

func TestVerifyRejectsEmptyInput(t *testing.T) {
	svc := newService(new(MockBookingDB), new(MockLedgerDB), nil)

	_, err := svc.Verify(context.Background(), "", "staff1")
	assert.ErrorIs(t, err, attendance.ErrInvalidInput)

	_, err = svc.Verify(context.Background(), "TKT-20240101-0001", "")
	assert.ErrorIs(t, err, attendance.ErrInvalidInput)
}

func TestVerifyUnknownTicket(t *testing.T) {
	bookings := new(MockBookingDB)
	bookings.On("FindByTicketNumber", "TKT-20240101-0001").Return(nil, nil)

	svc := newService(bookings, new(MockLedgerDB), nil)

	_, err := svc.Verify(context.Background(), "TKT-20240101-0001", "staff1")
	assert.ErrorIs(t, err, attendance.ErrUnknownTicket)
}

func TestVerifyPaymentIncomplete(t *testing.T) {
	booking := completedBooking("TKT-20240101-0001", time.Now())
	booking.PaymentStatus = models.PaymentPending

	bookings := new(MockBookingDB)
	bookings.On("FindByTicketNumber", booking.TicketNumber).Return(booking, nil)

	svc := newService(bookings, new(MockLedgerDB), nil)

	_, err := svc.Verify(context.Background(), booking.TicketNumber, "staff1")
	assert.ErrorIs(t, err, attendance.ErrPaymentIncomplete)
}

func TestVerifyWrongDateMentionsBookedDate(t *testing.T) {
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	booking := completedBooking("TKT-20240101-0001", yesterday)

	bookings := new(MockBookingDB)
	bookings.On("FindByTicketNumber", booking.TicketNumber).Return(booking, nil)

	svc := newService(bookings, new(MockLedgerDB), nil)

	_, err := svc.Verify(context.Background(), booking.TicketNumber, "staff1")
	require.ErrorIs(t, err, attendance.ErrWrongDate)
	assert.Contains(t, err.Error(), yesterday.Format("2006-01-02"))
}

func TestVerifyAlreadyInsidePreCheck(t *testing.T) {
	booking := completedBooking("TKT-20240101-0001", time.Now())

	bookings := new(MockBookingDB)
	bookings.On("FindByTicketNumber", booking.TicketNumber).Return(booking, nil)

	ledger := new(MockLedgerDB)
	ledger.On("FindOpenByTicket", booking.TicketNumber).
		Return(&models.AttendanceRecord{ID: "existing", TicketNumber: booking.TicketNumber}, nil)

	svc := newService(bookings, ledger, nil)

	_, err := svc.Verify(context.Background(), booking.TicketNumber, "staff1")
	assert.ErrorIs(t, err, attendance.ErrAlreadyInside)
}

func TestVerifyLostInsertRaceMapsToAlreadyInside(t *testing.T) {
	booking := completedBooking("TKT-20240101-0001", time.Now())

	bookings := new(MockBookingDB)
	bookings.On("FindByTicketNumber", booking.TicketNumber).Return(booking, nil)

	// The pre-check misses but a concurrent caller wins the insert.
	ledger := new(MockLedgerDB)
	ledger.On("FindOpenByTicket", booking.TicketNumber).Return(nil, nil)
	ledger.On("OpenEntry", booking.TicketNumber).Return(attdb.ErrOpenEntryExists)

	svc := newService(bookings, ledger, nil)

	_, err := svc.Verify(context.Background(), booking.TicketNumber, "staff1")
	assert.ErrorIs(t, err, attendance.ErrAlreadyInside)
}

func TestVerifySuccessReturnsBookingDetails(t *testing.T) {
	booking := completedBooking("TKT-20240101-0001", time.Now())

	bookings := new(MockBookingDB)
	bookings.On("FindByTicketNumber", booking.TicketNumber).Return(booking, nil)

	ledger := new(MockLedgerDB)
	ledger.On("FindOpenByTicket", booking.TicketNumber).Return(nil, nil)
	ledger.On("OpenEntry", booking.TicketNumber).Return(nil)

	events := new(MockPublisher)
	events.On("PublishVisitorEntered", booking.TicketNumber).Return(nil)

	svc := newService(bookings, ledger, events)

	result, err := svc.Verify(context.Background(), booking.TicketNumber, "staff1")
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", result.VisitorName)
	assert.Equal(t, "Family Pack", result.TicketType)
	assert.Equal(t, 4, result.VisitorCount)
	assert.NotEmpty(t, result.EntryID)
	assert.False(t, result.EntryTime.IsZero())
	events.AssertExpectations(t)
}

func TestVerifyPublishFailureDoesNotFailAdmission(t *testing.T) {
	booking := completedBooking("TKT-20240101-0001", time.Now())

	bookings := new(MockBookingDB)
	bookings.On("FindByTicketNumber", booking.TicketNumber).Return(booking, nil)

	ledger := new(MockLedgerDB)
	ledger.On("FindOpenByTicket", booking.TicketNumber).Return(nil, nil)
	ledger.On("OpenEntry", booking.TicketNumber).Return(nil)

	events := new(MockPublisher)
	events.On("PublishVisitorEntered", booking.TicketNumber).Return(errors.New("broker down"))

	svc := newService(bookings, ledger, events)

	_, err := svc.Verify(context.Background(), booking.TicketNumber, "staff1")
	assert.NoError(t, err)
}

func TestVerifyStorageFailure(t *testing.T) {
	bookings := new(MockBookingDB)
	bookings.On("FindByTicketNumber", "TKT-20240101-0001").Return(nil, errors.New("connection refused"))

	svc := newService(bookings, new(MockLedgerDB), nil)

	_, err := svc.Verify(context.Background(), "TKT-20240101-0001", "staff1")
	assert.ErrorIs(t, err, attendance.ErrStorageUnavailable)
}

func TestRecordExitMapsLedgerErrors(t *testing.T) {
	ledger := new(MockLedgerDB)
	ledger.On("CloseEntry", "missing").Return(nil, attdb.ErrNotFound)
	ledger.On("CloseEntry", "closed").Return(nil, attdb.ErrAlreadyClosed)

	svc := newService(new(MockBookingDB), ledger, nil)

	_, err := svc.RecordExit(context.Background(), "missing")
	assert.ErrorIs(t, err, attendance.ErrEntryNotFound)

	_, err = svc.RecordExit(context.Background(), "closed")
	assert.ErrorIs(t, err, attendance.ErrAlreadyExited)
}

func TestRecordExitSuccess(t *testing.T) {
	exitTime := time.Now()
	closed := &models.AttendanceRecord{
		ID:           "entry-1",
		TicketNumber: "TKT-20240101-0001",
		Exited:       true,
		ExitTime:     &exitTime,
	}

	ledger := new(MockLedgerDB)
	ledger.On("CloseEntry", "entry-1").Return(closed, nil)

	events := new(MockPublisher)
	events.On("PublishVisitorExited", closed.TicketNumber).Return(nil)

	svc := newService(new(MockBookingDB), ledger, events)

	record, err := svc.RecordExit(context.Background(), "entry-1")
	require.NoError(t, err)
	assert.True(t, record.Exited)
	events.AssertExpectations(t)
}

func TestFindByTicketNotFound(t *testing.T) {
	ledger := new(MockLedgerDB)
	ledger.On("FindLatestByTicket", "TKT-20240101-0001").Return(nil, nil)

	svc := newService(new(MockBookingDB), ledger, nil)

	_, err := svc.FindByTicket(context.Background(), "TKT-20240101-0001")
	assert.ErrorIs(t, err, attendance.ErrEntryNotFound)
}
