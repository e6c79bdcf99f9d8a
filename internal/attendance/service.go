package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	attdb "ms-admissions/internal/attendance/db"
	"ms-admissions/internal/logger"
	"ms-admissions/internal/models"
	"ms-admissions/internal/utils"
)

// Failure kinds surfaced by Verify and RecordExit. Handlers match with
// errors.Is; wrapped messages carry the human-readable detail.
var (
	ErrInvalidInput       = errors.New("ticket number and verifier are required")
	ErrUnknownTicket      = errors.New("invalid ticket number")
	ErrPaymentIncomplete  = errors.New("ticket payment is not completed")
	ErrWrongDate          = errors.New("ticket is not valid for today")
	ErrAlreadyInside      = errors.New("visitor has already entered and not exited")
	ErrEntryNotFound      = errors.New("entry record not found")
	ErrAlreadyExited      = errors.New("visitor has already exited")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

type BookingDBLayer interface {
	FindByTicketNumber(ctx context.Context, ticketNumber string) (*models.Booking, error)
}

type LedgerDBLayer interface {
	OpenEntry(ctx context.Context, record models.AttendanceRecord) (*models.AttendanceRecord, error)
	CloseEntry(ctx context.Context, id string, exitTime time.Time) (*models.AttendanceRecord, error)
	ListForDay(ctx context.Context, dayStart, dayEnd time.Time) ([]models.AttendanceRecord, error)
	FindOpenByTicket(ctx context.Context, ticketNumber string) (*models.AttendanceRecord, error)
	FindLatestByTicket(ctx context.Context, ticketNumber string) (*models.AttendanceRecord, error)
	FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error)
}

// EventPublisher streams admission events to the external notifier.
// Publishing is fire-and-forget; a broker outage never fails an admission.
type EventPublisher interface {
	PublishVisitorEntered(record models.AttendanceRecord) error
	PublishVisitorExited(record models.AttendanceRecord) error
}

// EntryResult is what the gate UI shows the scanning staff member after a
// successful admission.
type EntryResult struct {
	EntryID      string    `json:"entry_id"`
	VisitorName  string    `json:"visitor_name"`
	TicketType   string    `json:"ticket_type"`
	VisitorCount int       `json:"visitor_count"`
	EntryTime    time.Time `json:"entry_time"`
}

// Service validates presented tickets against the booking ledger and the
// attendance ledger and drives the entry/exit transitions.
type Service struct {
	Bookings BookingDBLayer
	Ledger   LedgerDBLayer
	Events   EventPublisher
	Logger   *logger.Logger

	loc            *time.Location
	storageTimeout time.Duration
	now            func() time.Time
}

func NewService(bookings BookingDBLayer, ledger LedgerDBLayer, events EventPublisher, log *logger.Logger, loc *time.Location, storageTimeout time.Duration) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if storageTimeout <= 0 {
		storageTimeout = 5 * time.Second
	}
	return &Service{
		Bookings:       bookings,
		Ledger:         ledger,
		Events:         events,
		Logger:         log,
		loc:            loc,
		storageTimeout: storageTimeout,
		now:            time.Now,
	}
}

// Verify admits the ticket's visitor. Each storage round trip carries the
// configured timeout; timeouts and driver failures come back as
// ErrStorageUnavailable so the caller knows a retry is safe (nothing is
// written before the atomic OpenEntry).
func (s *Service) Verify(ctx context.Context, ticketNumber, verifier string) (*EntryResult, error) {
	if ticketNumber == "" || verifier == "" {
		return nil, ErrInvalidInput
	}

	booking, err := s.findBooking(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTicket, ticketNumber)
	}

	if booking.PaymentStatus != models.PaymentCompleted {
		return nil, ErrPaymentIncomplete
	}

	now := s.now()
	if !utils.SameDay(booking.VisitDate, now, s.loc) {
		return nil, fmt.Errorf("%w: ticket is valid for %s, not today", ErrWrongDate, utils.DateOnly(booking.VisitDate, s.loc))
	}

	open, err := s.findOpen(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, ErrAlreadyInside
	}

	record, err := s.openEntry(ctx, models.AttendanceRecord{
		ID:           uuid.New().String(),
		TicketNumber: ticketNumber,
		VisitorName:  booking.VisitorName,
		EntryTime:    now,
		VerifiedBy:   verifier,
	})
	if err != nil {
		return nil, err
	}

	s.info("ADMISSION", fmt.Sprintf("entry recorded for %s by %s", ticketNumber, verifier))
	if s.Events != nil {
		if err := s.Events.PublishVisitorEntered(*record); err != nil {
			s.warn("ADMISSION", fmt.Sprintf("failed to publish entry event for %s: %v", ticketNumber, err))
		}
	}

	return &EntryResult{
		EntryID:      record.ID,
		VisitorName:  booking.VisitorName,
		TicketType:   booking.TicketType,
		VisitorCount: booking.VisitorCount,
		EntryTime:    record.EntryTime,
	}, nil
}

// RecordExit closes an open admission. Re-entry with the same ticket is
// permitted once the record is closed.
func (s *Service) RecordExit(ctx context.Context, entryID string) (*models.AttendanceRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	record, err := s.Ledger.CloseEntry(ctx, entryID, s.now())
	switch {
	case err == nil:
	case errors.Is(err, attdb.ErrNotFound):
		return nil, ErrEntryNotFound
	case errors.Is(err, attdb.ErrAlreadyClosed):
		return nil, ErrAlreadyExited
	default:
		return nil, s.storageError(err)
	}

	s.info("ADMISSION", fmt.Sprintf("exit recorded for %s", record.TicketNumber))
	if s.Events != nil {
		if err := s.Events.PublishVisitorExited(*record); err != nil {
			s.warn("ADMISSION", fmt.Sprintf("failed to publish exit event for %s: %v", record.TicketNumber, err))
		}
	}
	return record, nil
}

// ListToday returns today's attendance, entry-time ascending.
func (s *Service) ListToday(ctx context.Context) ([]models.AttendanceRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	now := s.now()
	records, err := s.Ledger.ListForDay(ctx, utils.DayStart(now, s.loc), utils.DayEnd(now, s.loc))
	if err != nil {
		return nil, s.storageError(err)
	}
	return records, nil
}

// FindByTicket returns the latest entry record for a ticket, open or
// exited, for the gate UI's lookup view.
func (s *Service) FindByTicket(ctx context.Context, ticketNumber string) (*models.AttendanceRecord, error) {
	if ticketNumber == "" {
		return nil, ErrInvalidInput
	}

	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	record, err := s.Ledger.FindLatestByTicket(ctx, ticketNumber)
	if err != nil {
		return nil, s.storageError(err)
	}
	if record == nil {
		return nil, ErrEntryNotFound
	}
	return record, nil
}

// FindEntry returns one attendance record by id.
func (s *Service) FindEntry(ctx context.Context, entryID string) (*models.AttendanceRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	record, err := s.Ledger.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, attdb.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, s.storageError(err)
	}
	return record, nil
}

func (s *Service) findBooking(ctx context.Context, ticketNumber string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	booking, err := s.Bookings.FindByTicketNumber(ctx, ticketNumber)
	if err != nil {
		return nil, s.storageError(err)
	}
	return booking, nil
}

func (s *Service) findOpen(ctx context.Context, ticketNumber string) (*models.AttendanceRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	record, err := s.Ledger.FindOpenByTicket(ctx, ticketNumber)
	if err != nil {
		return nil, s.storageError(err)
	}
	return record, nil
}

func (s *Service) openEntry(ctx context.Context, record models.AttendanceRecord) (*models.AttendanceRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	created, err := s.Ledger.OpenEntry(ctx, record)
	if err != nil {
		// A concurrent caller winning the insert race must look exactly
		// like the pre-check catching an open record.
		if errors.Is(err, attdb.ErrOpenEntryExists) {
			return nil, ErrAlreadyInside
		}
		return nil, s.storageError(err)
	}
	return created, nil
}

func (s *Service) storageError(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

func (s *Service) info(category, message string) {
	if s.Logger != nil {
		s.Logger.Info(category, message)
	}
}

func (s *Service) warn(category, message string) {
	if s.Logger != nil {
		s.Logger.Warn(category, message)
	}
}
