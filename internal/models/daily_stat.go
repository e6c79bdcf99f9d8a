package models

import (
	"time"

	"github.com/uptrace/bun"
)

// CategoryStat is one slice of a day's per-category breakdown.
type CategoryStat struct {
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

// DailyStat is the mutable per-day rollup of sales. One row per calendar
// day. Counters are only ever moved by atomic increments; the row itself is
// created lazily and never deleted.
type DailyStat struct {
	bun.BaseModel `bun:"table:daily_stats"`

	Date         time.Time `bun:"date,pk" json:"date"`
	VisitorCount int       `bun:"visitor_count" json:"visitor_count"`
	TicketsSold  int       `bun:"tickets_sold" json:"tickets_sold"`
	Revenue      float64   `bun:"revenue" json:"revenue"`

	IndividualCount   int     `bun:"individual_count" json:"-"`
	IndividualRevenue float64 `bun:"individual_revenue" json:"-"`
	MealCount         int     `bun:"meal_count" json:"-"`
	MealRevenue       float64 `bun:"meal_revenue" json:"-"`
	FamilyCount       int     `bun:"family_count" json:"-"`
	FamilyRevenue     float64 `bun:"family_revenue" json:"-"`
	GroupCount        int     `bun:"group_count" json:"-"`
	GroupRevenue      float64 `bun:"group_revenue" json:"-"`
}

// TicketTypes reshapes the flattened category columns into the breakdown
// map the reporting clients expect.
func (s *DailyStat) TicketTypes() map[string]CategoryStat {
	return map[string]CategoryStat{
		"individual": {Count: s.IndividualCount, Revenue: s.IndividualRevenue},
		"meal":       {Count: s.MealCount, Revenue: s.MealRevenue},
		"family":     {Count: s.FamilyCount, Revenue: s.FamilyRevenue},
		"group":      {Count: s.GroupCount, Revenue: s.GroupRevenue},
	}
}

// DailyStatView is the API representation of a day's rollup, with the
// category columns reshaped into the breakdown map the dashboard renders.
type DailyStatView struct {
	Date         time.Time               `json:"date"`
	VisitorCount int                     `json:"visitor_count"`
	TicketsSold  int                     `json:"tickets_sold"`
	Revenue      float64                 `json:"revenue"`
	TicketTypes  map[string]CategoryStat `json:"ticket_types"`
}

// View converts a stored row into its API representation.
func (s *DailyStat) View() DailyStatView {
	return DailyStatView{
		Date:         s.Date,
		VisitorCount: s.VisitorCount,
		TicketsSold:  s.TicketsSold,
		Revenue:      s.Revenue,
		TicketTypes:  s.TicketTypes(),
	}
}
