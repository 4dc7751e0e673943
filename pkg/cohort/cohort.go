// Package cohort groups customers by the calendar month of their first order
// and tracks their activity and revenue in the months that follow.
//
// Tables are indexed by cohort month (rows) and cohort index (columns). The
// observation horizon is the month of the latest order: a cell is defined only
// when cohort month + index does not pass the horizon, so a cohort too young
// to reach an index has no value there, while an old enough cohort with no
// activity has zero.
package cohort

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"ecommerce-analytics/pkg/models"
	"ecommerce-analytics/pkg/tabular"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoCohorts is returned by the derived views before CreateCohorts has run.
	ErrNoCohorts = errors.New("cohort: cohorts not created, call CreateCohorts first")
	// ErrNoOrders is returned by CreateCohorts for an empty order table.
	ErrNoOrders = errors.New("cohort: no orders")
	// ErrEmptyWindow is returned by Window when no cohort falls in the range.
	ErrEmptyWindow = errors.New("cohort: no cohort in window")
)

// Analysis holds the cohort-augmented order table.
type Analysis struct {
	orders  []models.CohortOrder
	months  []time.Time // distinct cohort months, ascending
	horizon time.Time
}

// NewAnalysis returns an empty analysis.
func NewAnalysis() *Analysis {
	return &Analysis{}
}

type cell struct {
	customers map[int64]struct{}
	orders    int
	revenue   decimal.Decimal
}

type cellKey struct {
	cohort time.Time
	index  int
}

// CreateCohorts assigns every order to its customer's first-order month and
// returns the augmented orders in input order. It replaces any previous state,
// also when it fails.
func (a *Analysis) CreateCohorts(orders []models.Order) ([]models.CohortOrder, error) {
	a.orders, a.months, a.horizon = nil, nil, time.Time{}
	if len(orders) == 0 {
		return nil, ErrNoOrders
	}

	first := map[int64]time.Time{}
	var latest time.Time
	for _, o := range orders {
		if f, ok := first[o.CustomerID]; !ok || o.OrderDate.Before(f) {
			first[o.CustomerID] = o.OrderDate
		}
		if o.OrderDate.After(latest) {
			latest = o.OrderDate
		}
	}

	out := make([]models.CohortOrder, len(orders))
	seen := map[time.Time]struct{}{}
	for i, o := range orders {
		cm := MonthStart(first[o.CustomerID])
		om := MonthStart(o.OrderDate)
		out[i] = models.CohortOrder{
			Order:       o,
			CohortMonth: cm,
			OrderMonth:  om,
			CohortIndex: MonthsBetween(cm, om),
		}
		seen[cm] = struct{}{}
	}
	months := make([]time.Time, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	a.orders = out
	a.months = months
	a.horizon = MonthStart(latest)
	return a.Orders()
}

// Orders returns a copy of the cohort-augmented order table.
func (a *Analysis) Orders() ([]models.CohortOrder, error) {
	if a.orders == nil {
		return nil, ErrNoCohorts
	}
	return append([]models.CohortOrder(nil), a.orders...), nil
}

// Horizon is the month of the latest order.
func (a *Analysis) Horizon() time.Time { return a.horizon }

// Window returns a copy restricted to the cohorts whose month lies between
// start and end inclusive. A zero bound is open. The horizon is unchanged, so
// restricted views match the corresponding rows of the full views.
func (a *Analysis) Window(start, end time.Time) (*Analysis, error) {
	if a.orders == nil {
		return nil, ErrNoCohorts
	}
	in := func(m time.Time) bool {
		return (start.IsZero() || !m.Before(MonthStart(start))) && (end.IsZero() || !m.After(MonthStart(end)))
	}
	w := &Analysis{horizon: a.horizon, orders: []models.CohortOrder{}}
	for _, m := range a.months {
		if in(m) {
			w.months = append(w.months, m)
		}
	}
	if len(w.months) == 0 {
		return nil, ErrEmptyWindow
	}
	for _, o := range a.orders {
		if in(o.CohortMonth) {
			w.orders = append(w.orders, o)
		}
	}
	return w, nil
}

// reached reports the highest index cohort month m has been observed for.
func (a *Analysis) reached(m time.Time) int {
	return MonthsBetween(m, a.horizon)
}

func (a *Analysis) width() int {
	return a.reached(a.months[0]) + 1
}

func (a *Analysis) cells() map[cellKey]*cell {
	cells := map[cellKey]*cell{}
	for _, o := range a.orders {
		k := cellKey{o.CohortMonth, o.CohortIndex}
		c, ok := cells[k]
		if !ok {
			c = &cell{customers: map[int64]struct{}{}, revenue: decimal.Zero}
			cells[k] = c
		}
		c.customers[o.CustomerID] = struct{}{}
		c.orders++
		c.revenue = c.revenue.Add(o.TotalAmount)
	}
	return cells
}

// Retention returns the distinct active customers per cell and the same table
// as a percentage of each cohort's index-0 size.
func (a *Analysis) Retention() (models.CohortTable, models.RetentionTable, error) {
	if a.orders == nil {
		return models.CohortTable{}, models.RetentionTable{}, ErrNoCohorts
	}
	cells := a.cells()
	width := a.width()

	counts := models.CohortTable{Months: a.months, Counts: make([][]sql.NullInt64, len(a.months))}
	rates := models.RetentionTable{Months: a.months, Rates: make([][]sql.NullFloat64, len(a.months))}
	for row, m := range a.months {
		counts.Counts[row] = make([]sql.NullInt64, width)
		rates.Rates[row] = make([]sql.NullFloat64, width)
		size := len(cells[cellKey{m, 0}].customers)
		for idx := 0; idx <= a.reached(m); idx++ {
			active := 0
			if c, ok := cells[cellKey{m, idx}]; ok {
				active = len(c.customers)
			}
			counts.Counts[row][idx] = sql.NullInt64{Int64: int64(active), Valid: true}
			rates.Rates[row][idx] = sql.NullFloat64{Float64: float64(active) / float64(size) * 100, Valid: true}
		}
	}
	return counts, rates, nil
}

// Metrics aggregates each populated cell, ordered by cohort month then index.
func (a *Analysis) Metrics() ([]models.CohortMetric, error) {
	if a.orders == nil {
		return nil, ErrNoCohorts
	}
	cells := a.cells()
	keys := make([]cellKey, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].cohort.Equal(keys[j].cohort) {
			return keys[i].cohort.Before(keys[j].cohort)
		}
		return keys[i].index < keys[j].index
	})

	out := make([]models.CohortMetric, len(keys))
	for i, k := range keys {
		c := cells[k]
		n := len(c.customers)
		out[i] = models.CohortMetric{
			CohortMonth:           k.cohort,
			CohortIndex:           k.index,
			Customers:             n,
			Orders:                c.orders,
			Revenue:               c.revenue,
			AvgRevenuePerCustomer: models.RoundCents(c.revenue.Div(decimal.NewFromInt(int64(n)))),
		}
	}
	return out, nil
}

// LifetimeValue returns each cohort's cumulative revenue up to the horizon,
// with inactive months contributing zero, and the average per customer of
// the cohort's final cumulative value.
func (a *Analysis) LifetimeValue() ([]models.CohortLTV, error) {
	if a.orders == nil {
		return nil, ErrNoCohorts
	}
	cells := a.cells()
	out := make([]models.CohortLTV, len(a.months))
	for row, m := range a.months {
		size := len(cells[cellKey{m, 0}].customers)
		cum := make([]decimal.Decimal, a.reached(m)+1)
		running := decimal.Zero
		for idx := range cum {
			if c, ok := cells[cellKey{m, idx}]; ok {
				running = running.Add(c.revenue)
			}
			cum[idx] = running
		}
		out[row] = models.CohortLTV{
			CohortMonth:       m,
			CohortSize:        size,
			CumulativeRevenue: cum,
			LTVAvg:            models.RoundCents(running.Div(decimal.NewFromInt(int64(size)))),
		}
	}
	return out, nil
}

// SummaryHorizons are the cohort indexes averaged by RetentionSummary.
var SummaryHorizons = [...]int{1, 3, 6, 12}

// RetentionSummary averages retention at month 1, 3, 6 and 12 over the
// cohorts old enough to have reached each horizon. A horizon no cohort has
// reached is null.
func (a *Analysis) RetentionSummary() (models.RetentionSummary, error) {
	counts, rates, err := a.Retention()
	if err != nil {
		return models.RetentionSummary{}, err
	}
	var means [len(SummaryHorizons)]sql.NullFloat64
	for h, idx := range SummaryHorizons {
		if idx >= rates.Width() {
			continue
		}
		sum, n := 0.0, 0
		for _, row := range rates.Rates {
			if row[idx].Valid {
				sum += row[idx].Float64
				n++
			}
		}
		if n > 0 {
			means[h] = sql.NullFloat64{Float64: sum / float64(n), Valid: true}
		}
	}

	size := 0.0
	for _, row := range counts.Counts {
		size += float64(row[0].Int64)
	}
	return models.RetentionSummary{
		Month1:        means[0],
		Month3:        means[1],
		Month6:        means[2],
		Month12:       means[3],
		AvgCohortSize: size / float64(len(counts.Counts)),
	}, nil
}

// Export writes the cohort-augmented order table to a CSV file at path.
func (a *Analysis) Export(path string) error {
	if a.orders == nil {
		return ErrNoCohorts
	}
	if err := tabular.WriteCohortOrders(path, a.orders); err != nil {
		return fmt.Errorf("export cohort data: %w", err)
	}
	return nil
}
