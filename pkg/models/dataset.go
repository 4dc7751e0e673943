package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// KPIs are the headline figures of a dataset.
type KPIs struct {
	TotalRevenue    decimal.Decimal
	TotalOrders     int
	UniqueCustomers int
	AvgOrderValue   decimal.Decimal
}

// DatasetSummary describes a generated dataset.
type DatasetSummary struct {
	Customers    int
	Products     int
	Orders       int
	OrderItems   int
	TotalRevenue decimal.Decimal
	FirstOrder   time.Time
	LastOrder    time.Time
}

// RoundCents rounds half away from zero to two decimals.
func RoundCents(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// LineTotal returns unitPrice × quantity × (1 − discount), rounded to cents.
func LineTotal(unitPrice decimal.Decimal, quantity int, discount decimal.Decimal) decimal.Decimal {
	gross := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	return RoundCents(gross.Mul(decimal.NewFromInt(1).Sub(discount)))
}

// TotalRevenue sums the order totals.
func TotalRevenue(orders []Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.TotalAmount)
	}
	return total
}

// Summary returns row counts, revenue and the order date range.
func (d *Dataset) Summary() DatasetSummary {
	s := DatasetSummary{
		Customers:    len(d.Customers),
		Products:     len(d.Products),
		OrderItems:   len(d.OrderItems),
		TotalRevenue: decimal.Zero,
	}
	s.AddOrders(d.Orders)
	return s
}

// AddOrders folds orders into the order count, revenue and date range, so a
// summary can be built while tables are streamed.
func (s *DatasetSummary) AddOrders(orders []Order) {
	for _, o := range orders {
		if s.Orders == 0 || o.OrderDate.Before(s.FirstOrder) {
			s.FirstOrder = o.OrderDate
		}
		if s.Orders == 0 || o.OrderDate.After(s.LastOrder) {
			s.LastOrder = o.OrderDate
		}
		s.Orders++
		s.TotalRevenue = s.TotalRevenue.Add(o.TotalAmount)
	}
}

// KPIs computes the dashboard headline figures. UniqueCustomers counts the
// customer table, including customers who never ordered.
func (d *Dataset) KPIs() KPIs {
	k := KPIs{
		TotalRevenue:    TotalRevenue(d.Orders),
		TotalOrders:     len(d.Orders),
		UniqueCustomers: countDistinctCustomers(d.Customers),
		AvgOrderValue:   decimal.Zero,
	}
	if k.TotalOrders > 0 {
		k.AvgOrderValue = RoundCents(k.TotalRevenue.Div(decimal.NewFromInt(int64(k.TotalOrders))))
	}
	return k
}

func countDistinctCustomers(customers []Customer) int {
	seen := make(map[int64]struct{}, len(customers))
	for _, c := range customers {
		seen[c.CustomerID] = struct{}{}
	}
	return len(seen)
}

// Width is the number of cohort index columns.
func (t CohortTable) Width() int {
	if len(t.Counts) == 0 {
		return 0
	}
	return len(t.Counts[0])
}

// Width is the number of cohort index columns.
func (t RetentionTable) Width() int {
	if len(t.Rates) == 0 {
		return 0
	}
	return len(t.Rates[0])
}
