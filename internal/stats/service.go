package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-admissions/internal/category"
	"ms-admissions/internal/logger"
	"ms-admissions/internal/models"
	"ms-admissions/internal/utils"
)

var (
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrInvalidYear      = errors.New("invalid year")
)

type StatsDBLayer interface {
	EnsureDay(ctx context.Context, day time.Time) error
	ApplyBookingIncrement(ctx context.Context, day time.Time, visitors int, revenue float64, cat category.Category, mapped bool) error
	Range(ctx context.Context, start, end time.Time) ([]models.DailyStat, error)
	FindDay(ctx context.Context, day time.Time) (*models.DailyStat, error)
}

type BookingReader interface {
	FindCompleted(ctx context.Context, start, end time.Time) ([]models.Booking, error)
	SumVisitorsForDay(ctx context.Context, dayStart, dayEnd time.Time) (int, error)
}

type AttendanceReader interface {
	CountOpenForDay(ctx context.Context, dayStart, dayEnd time.Time) (int, error)
}

// TodayCacheLayer lets the dashboard summary be served from a short-lived
// cache. A nil cache just recomputes every time.
type TodayCacheLayer interface {
	Get(ctx context.Context) (*TodaySummary, error)
	Set(ctx context.Context, summary *TodaySummary) error
}

// WeekBucket is one row of the weekly rollup.
type WeekBucket struct {
	Week         int       `json:"week"`
	VisitorCount int       `json:"visitor_count"`
	TicketsSold  int       `json:"tickets_sold"`
	Revenue      float64   `json:"revenue"`
	StartDate    time.Time `json:"start_date"`
}

// MonthBucket is one row of the monthly rollup.
type MonthBucket struct {
	Month           int                `json:"month"`
	MonthName       string             `json:"month_name"`
	VisitorCount    int                `json:"visitor_count"`
	TicketsSold     int                `json:"tickets_sold"`
	Revenue         float64            `json:"revenue"`
	CategoryRevenue map[string]float64 `json:"category_revenue"`
}

// Distribution is the per-category breakdown for a date range.
type Distribution struct {
	TicketCounts        map[string]int     `json:"ticket_counts"`
	RevenueDistribution map[string]float64 `json:"revenue_distribution"`
	TotalRevenue        float64            `json:"total_revenue"`
}

// TodaySummary is the live dashboard header.
type TodaySummary struct {
	Date             time.Time `json:"date"`
	CurrentlyInside  int       `json:"currently_inside"`
	ExpectedVisitors int       `json:"expected_visitors"`
	TicketsSold      int       `json:"tickets_sold"`
	Revenue          float64   `json:"revenue"`
	VisitorCount     int       `json:"visitor_count"`
}

// Service maintains the per-day rollups and answers the reporting reads.
// The daily_stats rows are a cache of a booking-derived projection: writes
// go through atomic increments, and the category distribution prefers
// recomputing from the booking source of truth when the range is small
// enough to scan.
type Service struct {
	Stats      StatsDBLayer
	Bookings   BookingReader
	Attendance AttendanceReader
	Cache      TodayCacheLayer
	Logger     *logger.Logger

	loc         *time.Location
	maxScanDays int
	now         func() time.Time
}

func NewService(stats StatsDBLayer, bookings BookingReader, attendance AttendanceReader, cache TodayCacheLayer, log *logger.Logger, loc *time.Location, maxScanDays int) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if maxScanDays <= 0 {
		maxScanDays = 92
	}
	return &Service{
		Stats:       stats,
		Bookings:    bookings,
		Attendance:  attendance,
		Cache:       cache,
		Logger:      log,
		loc:         loc,
		maxScanDays: maxScanDays,
		now:         time.Now,
	}
}

// RecordCompletedBooking folds one completed booking into its visit date's
// counters. The caller (the ledger's payment confirmation) owns the
// exactly-once guarantee; a redelivered completion double-counts.
func (s *Service) RecordCompletedBooking(ctx context.Context, booking models.Booking) error {
	day := utils.DayStart(booking.VisitDate, s.loc)

	if err := s.Stats.EnsureDay(ctx, day); err != nil {
		return fmt.Errorf("ensure daily stat row: %w", err)
	}

	cat, mapped := category.Normalize(booking.TicketType)
	if !mapped {
		s.warn("STATS", fmt.Sprintf("unmapped ticket type %q on booking %s; totals updated, category breakdown skipped", booking.TicketType, booking.TicketNumber))
	}

	if err := s.Stats.ApplyBookingIncrement(ctx, day, booking.VisitorCount, booking.TotalAmount, cat, mapped); err != nil {
		return fmt.Errorf("apply booking increment: %w", err)
	}
	return nil
}

// DailyRange returns the stored rollups between start and end inclusive,
// end normalized to end-of-day.
func (s *Service) DailyRange(ctx context.Context, start, end time.Time) ([]models.DailyStat, error) {
	start = utils.DayStart(start, s.loc)
	end = utils.DayEnd(end, s.loc)
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}
	return s.Stats.Range(ctx, start, end)
}

// WeeklyRollup groups a year's daily rollups into ISO week buckets.
func (s *Service) WeeklyRollup(ctx context.Context, year int) ([]WeekBucket, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}

	days, err := s.yearRange(ctx, year)
	if err != nil {
		return nil, err
	}

	buckets := make(map[int]*WeekBucket)
	for _, day := range days {
		_, week := day.Date.ISOWeek()
		b, ok := buckets[week]
		if !ok {
			b = &WeekBucket{Week: week, StartDate: day.Date}
			buckets[week] = b
		}
		if day.Date.Before(b.StartDate) {
			b.StartDate = day.Date
		}
		b.VisitorCount += day.VisitorCount
		b.TicketsSold += day.TicketsSold
		b.Revenue += day.Revenue
	}

	out := make([]WeekBucket, 0, len(buckets))
	for week := 1; week <= 53; week++ {
		if b, ok := buckets[week]; ok {
			out = append(out, *b)
		}
	}
	return out, nil
}

// MonthlyRollup groups a year's daily rollups by calendar month.
func (s *Service) MonthlyRollup(ctx context.Context, year int) ([]MonthBucket, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}

	days, err := s.yearRange(ctx, year)
	if err != nil {
		return nil, err
	}

	buckets := make(map[int]*MonthBucket)
	for _, day := range days {
		month := int(day.Date.Month())
		b, ok := buckets[month]
		if !ok {
			b = &MonthBucket{
				Month:           month,
				MonthName:       day.Date.Month().String(),
				CategoryRevenue: map[string]float64{},
			}
			buckets[month] = b
		}
		b.VisitorCount += day.VisitorCount
		b.TicketsSold += day.TicketsSold
		b.Revenue += day.Revenue
		b.CategoryRevenue[string(category.Individual)] += day.IndividualRevenue
		b.CategoryRevenue[string(category.Meal)] += day.MealRevenue
		b.CategoryRevenue[string(category.Family)] += day.FamilyRevenue
		b.CategoryRevenue[string(category.Group)] += day.GroupRevenue
	}

	out := make([]MonthBucket, 0, len(buckets))
	for month := 1; month <= 12; month++ {
		if b, ok := buckets[month]; ok {
			out = append(out, *b)
		}
	}
	return out, nil
}

// CategoryDistribution reports the per-category ticket counts and revenue
// for a range, defaulting to the current month. Bookings are the source of
// truth: when the range fits within the scan policy and any completed
// bookings exist, the distribution is recomputed from them; otherwise the
// persisted rollups stand in. The persisted counters can drift after a
// partial aggregation failure, which is why recomputation wins whenever it
// is affordable.
func (s *Service) CategoryDistribution(ctx context.Context, start, end time.Time) (*Distribution, error) {
	if start.IsZero() || end.IsZero() {
		now := s.now().In(s.loc)
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
		end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	} else {
		start = utils.DayStart(start, s.loc)
		end = utils.DayEnd(end, s.loc)
	}
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}

	withinPolicy := end.Sub(start) <= time.Duration(s.maxScanDays)*24*time.Hour
	if withinPolicy {
		bookings, err := s.Bookings.FindCompleted(ctx, start, end)
		if err != nil {
			return nil, err
		}
		if len(bookings) > 0 {
			return distributionFromBookings(bookings), nil
		}
	}

	days, err := s.Stats.Range(ctx, start, end)
	if err != nil {
		return nil, err
	}
	dist := distributionFromStats(days)
	if dist.TotalRevenue == 0 {
		// Nothing recorded either way; hand back explicit zeros so the
		// chart renders empty instead of erroring.
		return emptyDistribution(), nil
	}
	return dist, nil
}

// Today builds the live dashboard summary. The day's rollup row is lazily
// created so later increments have a stable target, and currently-inside
// is always counted from the attendance ledger rather than kept as a
// persisted counter.
func (s *Service) Today(ctx context.Context) (*TodaySummary, error) {
	if s.Cache != nil {
		if cached, err := s.Cache.Get(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	now := s.now()
	dayStart := utils.DayStart(now, s.loc)
	dayEnd := utils.DayEnd(now, s.loc)

	if err := s.Stats.EnsureDay(ctx, dayStart); err != nil {
		return nil, err
	}

	stat, err := s.Stats.FindDay(ctx, dayStart)
	if err != nil {
		return nil, err
	}
	if stat == nil {
		stat = &models.DailyStat{Date: dayStart}
	}

	inside, err := s.Attendance.CountOpenForDay(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	expected, err := s.Bookings.SumVisitorsForDay(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	summary := &TodaySummary{
		Date:             dayStart,
		CurrentlyInside:  inside,
		ExpectedVisitors: expected,
		TicketsSold:      stat.TicketsSold,
		Revenue:          stat.Revenue,
		VisitorCount:     stat.VisitorCount,
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, summary); err != nil {
			s.warn("STATS", fmt.Sprintf("failed to cache today summary: %v", err))
		}
	}
	return summary, nil
}

func (s *Service) yearRange(ctx context.Context, year int) ([]models.DailyStat, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc)
	end := utils.DayEnd(time.Date(year, time.December, 31, 0, 0, 0, 0, s.loc), s.loc)
	return s.Stats.Range(ctx, start, end)
}

func validateYear(year int) error {
	if year < 2000 || year > 2100 {
		return fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	return nil
}

func distributionFromBookings(bookings []models.Booking) *Distribution {
	dist := emptyDistribution()
	for _, booking := range bookings {
		cat, mapped := category.Normalize(booking.TicketType)
		if !mapped {
			continue
		}
		dist.TicketCounts[string(cat)]++
		dist.RevenueDistribution[string(cat)] += booking.TotalAmount
		dist.TotalRevenue += booking.TotalAmount
	}
	return dist
}

func distributionFromStats(days []models.DailyStat) *Distribution {
	dist := emptyDistribution()
	for _, day := range days {
		dist.TicketCounts[string(category.Individual)] += day.IndividualCount
		dist.TicketCounts[string(category.Meal)] += day.MealCount
		dist.TicketCounts[string(category.Family)] += day.FamilyCount
		dist.TicketCounts[string(category.Group)] += day.GroupCount
		dist.RevenueDistribution[string(category.Individual)] += day.IndividualRevenue
		dist.RevenueDistribution[string(category.Meal)] += day.MealRevenue
		dist.RevenueDistribution[string(category.Family)] += day.FamilyRevenue
		dist.RevenueDistribution[string(category.Group)] += day.GroupRevenue
		dist.TotalRevenue += day.Revenue
	}
	return dist
}

func emptyDistribution() *Distribution {
	counts := make(map[string]int, len(category.All))
	revenue := make(map[string]float64, len(category.All))
	for _, cat := range category.All {
		counts[string(cat)] = 0
		revenue[string(cat)] = 0
	}
	return &Distribution{TicketCounts: counts, RevenueDistribution: revenue}
}

func (s *Service) warn(cat, message string) {
	if s.Logger != nil {
		s.Logger.Warn(cat, message)
	}
}
