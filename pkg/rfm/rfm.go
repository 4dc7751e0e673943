// Package rfm scores customers on recency, frequency and monetary value and
// maps the scores to behavioral segments.
package rfm

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"ecommerce-analytics/pkg/models"
	"ecommerce-analytics/pkg/tabular"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotCalculated is returned by the read accessors before Calculate has run.
	ErrNotCalculated = errors.New("rfm: scores not calculated, call Calculate first")
	// ErrNoOrders is returned by Calculate when there is nothing to score.
	ErrNoOrders = errors.New("rfm: no orders to score")
	// ErrReferenceDate is returned when the reference date precedes an order.
	ErrReferenceDate = errors.New("rfm: reference date before latest order")
)

// Analysis holds a snapshot of the orders and customers it was built from
// and, once calculated, one record per ordering customer.
type Analysis struct {
	orders    []models.Order
	customers []models.Customer
	records   []models.RFMRecord
	done      bool
}

// NewAnalysis copies the inputs; later changes to the caller's slices do not
// affect the analysis.
func NewAnalysis(orders []models.Order, customers []models.Customer) *Analysis {
	return &Analysis{
		orders:    append([]models.Order(nil), orders...),
		customers: append([]models.Customer(nil), customers...),
	}
}

type aggregate struct {
	last     time.Time
	count    int
	monetary decimal.Decimal
}

// Calculate scores every customer with at least one order. A zero
// referenceDate means the latest order date in the snapshot. Records are
// ordered by customer id and stored for the accessors; a failed call clears
// the previous results.
func (a *Analysis) Calculate(referenceDate time.Time) ([]models.RFMRecord, error) {
	a.records, a.done = nil, false
	if len(a.orders) == 0 {
		return nil, ErrNoOrders
	}

	byCustomer := map[int64]*aggregate{}
	var latest time.Time
	for _, o := range a.orders {
		agg, ok := byCustomer[o.CustomerID]
		if !ok {
			agg = &aggregate{last: o.OrderDate, monetary: decimal.Zero}
			byCustomer[o.CustomerID] = agg
		}
		if o.OrderDate.After(agg.last) {
			agg.last = o.OrderDate
		}
		agg.count++
		agg.monetary = agg.monetary.Add(o.TotalAmount)
		if o.OrderDate.After(latest) {
			latest = o.OrderDate
		}
	}
	if referenceDate.IsZero() {
		referenceDate = latest
	}
	if referenceDate.Before(latest) {
		return nil, fmt.Errorf("%w: %s < %s", ErrReferenceDate,
			referenceDate.Format(models.DateLayout), latest.Format(models.DateLayout))
	}

	ids := make([]int64, 0, len(byCustomer))
	for id := range byCustomer {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	names := make(map[int64]models.Customer, len(a.customers))
	for _, c := range a.customers {
		names[c.CustomerID] = c
	}

	records := make([]models.RFMRecord, len(ids))
	recency := make([]float64, len(ids))
	for i, id := range ids {
		agg := byCustomer[id]
		days := int(math.Floor(referenceDate.Sub(agg.last).Hours() / 24))
		records[i] = models.RFMRecord{
			CustomerID: id,
			Recency:    days,
			Frequency:  agg.count,
			Monetary:   agg.monetary,
		}
		recency[i] = float64(days)
		if c, ok := names[id]; ok {
			records[i].Name = sql.NullString{String: c.Name, Valid: true}
			records[i].Country = sql.NullString{String: c.Country, Valid: true}
		}
	}

	// frequency and monetary have heavy ties; ranking first keeps the buckets balanced
	freqRanks := RankFirst(len(records), func(i, j int) bool {
		return records[i].Frequency < records[j].Frequency
	})
	monRanks := RankFirst(len(records), func(i, j int) bool {
		return records[i].Monetary.LessThan(records[j].Monetary)
	})

	r := Score(recency, Buckets, true)
	f := Score(freqRanks, Buckets, false)
	m := Score(monRanks, Buckets, false)
	for i := range records {
		records[i].RScore, records[i].FScore, records[i].MScore = r[i], f[i], m[i]
		records[i].Segment = AssignSegment(r[i], f[i], m[i])
	}

	a.records = records
	a.done = true
	return a.Records()
}

// Records returns a copy of the calculated records.
func (a *Analysis) Records() ([]models.RFMRecord, error) {
	if !a.done {
		return nil, ErrNotCalculated
	}
	return append([]models.RFMRecord(nil), a.records...), nil
}

// SegmentSummary aggregates the records per segment, sorted by segment label.
// Averages and totals are rounded to two decimals; RevenuePercentage is each
// segment's share of the summed rounded totals.
func (a *Analysis) SegmentSummary() ([]models.SegmentSummary, error) {
	if !a.done {
		return nil, ErrNotCalculated
	}

	type acc struct {
		count     int
		recency   int
		frequency int
		monetary  decimal.Decimal
	}
	groups := map[string]*acc{}
	for _, rec := range a.records {
		g, ok := groups[rec.Segment]
		if !ok {
			g = &acc{monetary: decimal.Zero}
			groups[rec.Segment] = g
		}
		g.count++
		g.recency += rec.Recency
		g.frequency += rec.Frequency
		g.monetary = g.monetary.Add(rec.Monetary)
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	out := make([]models.SegmentSummary, len(labels))
	grand := decimal.Zero
	for i, label := range labels {
		g := groups[label]
		n := float64(g.count)
		out[i] = models.SegmentSummary{
			Segment:       label,
			CustomerCount: g.count,
			AvgRecency:    round2(float64(g.recency) / n),
			AvgFrequency:  round2(float64(g.frequency) / n),
			AvgMonetary:   models.RoundCents(g.monetary.Div(decimal.NewFromInt(int64(g.count)))),
			TotalRevenue:  models.RoundCents(g.monetary),
		}
		grand = grand.Add(out[i].TotalRevenue)
	}
	hundred := decimal.NewFromInt(100)
	for i := range out {
		out[i].RevenuePercentage = decimal.Zero
		if grand.IsPositive() {
			out[i].RevenuePercentage = models.RoundCents(out[i].TotalRevenue.Mul(hundred).Div(grand))
		}
	}
	return out, nil
}

// Export writes the scored records to a CSV file at path.
func (a *Analysis) Export(path string) error {
	if !a.done {
		return ErrNotCalculated
	}
	if err := tabular.WriteRFMScores(path, a.records); err != nil {
		return fmt.Errorf("export rfm scores: %w", err)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
