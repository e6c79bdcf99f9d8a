package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-admissions/internal/category"
	"ms-admissions/internal/models"
)

// DB stores the per-day sales rollups. Counters only ever move through
// ApplyBookingIncrement's single UPDATE with additive SETs; reading a row,
// mutating it in Go and saving it back would lose updates under concurrent
// booking completions.
type DB struct {
	Bun *bun.DB
}

// EnsureDay lazily creates the zeroed row for a day. Safe to call
// concurrently; the insert is a no-op once the row exists.
func (d *DB) EnsureDay(ctx context.Context, day time.Time) error {
	stat := models.DailyStat{Date: day}
	_, err := d.Bun.NewInsert().
		Model(&stat).
		On("CONFLICT (date) DO NOTHING").
		Exec(ctx)
	return err
}

// ApplyBookingIncrement adds one completed booking to a day's counters.
// The category columns are only touched when the label resolved; an
// unmapped booking still moves the totals.
func (d *DB) ApplyBookingIncrement(ctx context.Context, day time.Time, visitors int, revenue float64, cat category.Category, mapped bool) error {
	q := d.Bun.NewUpdate().
		Model((*models.DailyStat)(nil)).
		Set("tickets_sold = tickets_sold + 1").
		Set("visitor_count = visitor_count + ?", visitors).
		Set("revenue = revenue + ?", revenue)

	if mapped {
		switch cat {
		case category.Individual:
			q = q.Set("individual_count = individual_count + 1").
				Set("individual_revenue = individual_revenue + ?", revenue)
		case category.Meal:
			q = q.Set("meal_count = meal_count + 1").
				Set("meal_revenue = meal_revenue + ?", revenue)
		case category.Family:
			q = q.Set("family_count = family_count + 1").
				Set("family_revenue = family_revenue + ?", revenue)
		case category.Group:
			q = q.Set("group_count = group_count + 1").
				Set("group_revenue = group_revenue + ?", revenue)
		}
	}

	_, err := q.Where("date = ?", day).Exec(ctx)
	return err
}

// Range returns the rows whose date falls in [start, end], ascending.
func (d *DB) Range(ctx context.Context, start, end time.Time) ([]models.DailyStat, error) {
	var stats []models.DailyStat
	err := d.Bun.NewSelect().
		Model(&stats).
		Where("date >= ?", start).
		Where("date <= ?", end).
		Order("date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// FindDay returns one day's row, or nil when it has not been created yet.
func (d *DB) FindDay(ctx context.Context, day time.Time) (*models.DailyStat, error) {
	var stat models.DailyStat
	err := d.Bun.NewSelect().
		Model(&stat).
		Where("date = ?", day).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stat, nil
}
