package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLineTotal_RoundsHalfAwayFromZero(t *testing.T) {
	// 10.05 * 1 * 0.95 = 9.5475 -> 9.55
	got := LineTotal(decimal.RequireFromString("10.05"), 1, decimal.RequireFromString("0.05"))
	if want := decimal.RequireFromString("9.55"); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
	// 0.125 * 1 * 1 -> 0.13
	got = LineTotal(decimal.RequireFromString("0.125"), 1, decimal.Zero)
	if want := decimal.RequireFromString("0.13"); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestLineTotal_Quantity(t *testing.T) {
	got := LineTotal(decimal.RequireFromString("19.99"), 3, decimal.RequireFromString("0.10"))
	// 59.97 * 0.9 = 53.973
	if want := decimal.RequireFromString("53.97"); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestDatasetSummaryAndKPIs(t *testing.T) {
	d1 := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	ds := Dataset{
		Customers: []Customer{{CustomerID: 1}, {CustomerID: 2}, {CustomerID: 3}},
		Orders: []Order{
			{OrderID: 1, CustomerID: 1, OrderDate: d1, TotalAmount: decimal.RequireFromString("10.00")},
			{OrderID: 2, CustomerID: 2, OrderDate: d2, TotalAmount: decimal.RequireFromString("5.01")},
		},
	}
	s := ds.Summary()
	if s.Customers != 3 || s.Orders != 2 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if !s.TotalRevenue.Equal(decimal.RequireFromString("15.01")) {
		t.Fatalf("revenue = %s", s.TotalRevenue)
	}
	if !s.FirstOrder.Equal(d2) || !s.LastOrder.Equal(d1) {
		t.Fatalf("range = %v..%v", s.FirstOrder, s.LastOrder)
	}

	k := ds.KPIs()
	if k.UniqueCustomers != 3 || k.TotalOrders != 2 {
		t.Fatalf("unexpected kpis: %+v", k)
	}
	// 15.01 / 2 = 7.505 -> 7.51
	if !k.AvgOrderValue.Equal(decimal.RequireFromString("7.51")) {
		t.Fatalf("avg order value = %s", k.AvgOrderValue)
	}
}

func TestDatasetSummary_AddOrdersIncrementally(t *testing.T) {
	d := decimal.RequireFromString
	orders := []Order{
		{OrderID: 1, OrderDate: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), TotalAmount: d("1.10")},
		{OrderID: 2, OrderDate: time.Date(2023, 1, 9, 0, 0, 0, 0, time.UTC), TotalAmount: d("2.20")},
		{OrderID: 3, OrderDate: time.Date(2023, 5, 2, 0, 0, 0, 0, time.UTC), TotalAmount: d("3.30")},
	}
	whole := (&Dataset{Orders: orders}).Summary()

	var s DatasetSummary
	s.AddOrders(orders[:1])
	s.AddOrders(nil)
	s.AddOrders(orders[1:])
	if s.Orders != whole.Orders || !s.TotalRevenue.Equal(whole.TotalRevenue) ||
		!s.FirstOrder.Equal(whole.FirstOrder) || !s.LastOrder.Equal(whole.LastOrder) {
		t.Fatalf("incremental %+v != whole %+v", s, whole)
	}
	if !s.TotalRevenue.Equal(d("6.60")) || s.FirstOrder.Month() != time.January || s.LastOrder.Month() != time.May {
		t.Fatalf("summary = %+v", s)
	}
}

func TestKPIs_EmptyDataset(t *testing.T) {
	var ds Dataset
	k := ds.KPIs()
	if !k.AvgOrderValue.IsZero() || k.TotalOrders != 0 {
		t.Fatalf("unexpected kpis: %+v", k)
	}
}
