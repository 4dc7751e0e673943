package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func insightsFixture() *Dataset {
	d := decimal.RequireFromString
	return &Dataset{
		Customers: []Customer{
			{CustomerID: 1, Name: "Customer_1", Country: "France", RegistrationDate: date("2023-01-10")},
			{CustomerID: 2, Name: "Customer_2", Country: "USA", RegistrationDate: date("2023-01-20")},
			{CustomerID: 3, Name: "Customer_3", Country: "France", RegistrationDate: date("2023-02-05")},
		},
		Products: []Product{
			{ProductID: 1, Name: "Laptop Model 1", Category: "Electronics"},
			{ProductID: 2, Name: "Book Model 1", Category: "Books"},
			{ProductID: 3, Name: "Book Model 2", Category: "Books"},
		},
		Orders: []Order{
			{OrderID: 1, CustomerID: 1, OrderDate: date("2023-01-16"), TotalAmount: d("100.00")}, // Monday
			{OrderID: 2, CustomerID: 2, OrderDate: date("2023-01-21"), TotalAmount: d("50.00")},  // Saturday
			{OrderID: 3, CustomerID: 1, OrderDate: date("2023-02-07"), TotalAmount: d("30.00")},  // Tuesday
			{OrderID: 4, CustomerID: 9, OrderDate: date("2023-02-08"), TotalAmount: d("20.00")},  // Wednesday, unknown customer
			{OrderID: 5, CustomerID: 3, OrderDate: date("2023-02-12"), TotalAmount: d("50.00")},  // Sunday
		},
		OrderItems: []OrderItem{
			{OrderItemID: 1, OrderID: 1, ProductID: 1, Quantity: 1, LineTotal: d("100.00")},
			{OrderItemID: 2, OrderID: 2, ProductID: 2, Quantity: 2, LineTotal: d("20.00")},
			{OrderItemID: 3, OrderID: 2, ProductID: 3, Quantity: 3, LineTotal: d("30.00")},
			{OrderItemID: 4, OrderID: 3, ProductID: 2, Quantity: 1, LineTotal: d("10.00")},
			{OrderItemID: 5, OrderID: 3, ProductID: 3, Quantity: 1, LineTotal: d("20.00")},
			{OrderItemID: 6, OrderID: 4, ProductID: 99, Quantity: 1, LineTotal: d("20.00")},
			{OrderItemID: 7, OrderID: 5, ProductID: 3, Quantity: 5, LineTotal: d("50.00")},
		},
	}
}

func money(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestMonthlyRevenue(t *testing.T) {
	got := insightsFixture().MonthlyRevenue()
	if len(got) != 2 {
		t.Fatalf("got %d months, want 2", len(got))
	}
	if !got[0].Month.Equal(date("2023-01-01")) || got[0].Orders != 2 {
		t.Fatalf("january = %+v", got[0])
	}
	money(t, got[0].Revenue, "150")
	if !got[1].Month.Equal(date("2023-02-01")) || got[1].Orders != 3 {
		t.Fatalf("february = %+v", got[1])
	}
	money(t, got[1].Revenue, "100")
}

func TestRevenueByCountry_SkipsUnknownCustomers(t *testing.T) {
	got := insightsFixture().RevenueByCountry()
	if len(got) != 2 || got[0].Country != "France" || got[0].Orders != 3 || got[1].Country != "USA" {
		t.Fatalf("got %+v", got)
	}
	money(t, got[0].Revenue, "180")
	money(t, got[1].Revenue, "50")
}

func TestRevenueByWeekday(t *testing.T) {
	got := insightsFixture().RevenueByWeekday()
	want := []struct {
		day     time.Weekday
		revenue string
	}{
		{time.Monday, "100"}, {time.Tuesday, "30"}, {time.Wednesday, "20"}, {time.Thursday, "0"},
		{time.Friday, "0"}, {time.Saturday, "50"}, {time.Sunday, "50"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d days", len(got))
	}
	for i, w := range want {
		if got[i].Day != w.day {
			t.Fatalf("row %d = %v, want %v", i, got[i].Day, w.day)
		}
		money(t, got[i].Revenue, w.revenue)
	}
}

func TestCustomersByCountryAndAcquisition(t *testing.T) {
	ds := insightsFixture()
	byCountry := ds.CustomersByCountry()
	if len(byCountry) != 2 || byCountry[0] != (CountryCustomers{"France", 2}) || byCountry[1] != (CountryCustomers{"USA", 1}) {
		t.Fatalf("customers by country = %+v", byCountry)
	}
	acq := ds.Acquisition()
	if len(acq) != 2 || !acq[0].Month.Equal(date("2023-01-01")) || acq[0].NewCustomers != 2 || acq[1].NewCustomers != 1 {
		t.Fatalf("acquisition = %+v", acq)
	}
}

func TestTopCustomers(t *testing.T) {
	ds := insightsFixture()
	top := ds.TopCustomers(2)
	// customers 2 and 3 tie at 50; the lower id wins
	if len(top) != 2 || top[0].CustomerID != 1 || top[0].Orders != 2 || top[1].CustomerID != 2 {
		t.Fatalf("top 2 = %+v", top)
	}
	money(t, top[0].TotalSpent, "130")
	if !top[0].Name.Valid || top[0].Name.String != "Customer_1" || top[0].Country.String != "France" {
		t.Fatalf("demographics = %+v", top[0])
	}

	all := ds.TopCustomers(TopN)
	if len(all) != 4 {
		t.Fatalf("got %d customers, want 4", len(all))
	}
	if last := all[3]; last.CustomerID != 9 || last.Name.Valid || last.Country.Valid {
		t.Fatalf("unknown customer = %+v", last)
	}
}

func TestCategoryPerformance(t *testing.T) {
	got := insightsFixture().CategoryPerformance()
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got[0].Category != "Books" || got[0].Products != 2 || got[0].Units != 12 {
		t.Fatalf("books = %+v", got[0])
	}
	money(t, got[0].Revenue, "130")
	if got[1].Category != "Electronics" || got[1].Products != 1 || got[1].Units != 1 {
		t.Fatalf("electronics = %+v", got[1])
	}
	money(t, got[1].Revenue, "100")
}

func TestTopProducts(t *testing.T) {
	got := insightsFixture().TopProducts(2)
	// both at 100; ties by name
	if len(got) != 2 || got[0].Name != "Book Model 2" || got[0].Units != 9 || got[1].Name != "Laptop Model 1" {
		t.Fatalf("top products = %+v", got)
	}
	money(t, got[0].Revenue, "100")
}

func TestInsights_EmptyDataset(t *testing.T) {
	var ds Dataset
	in := ds.Insights()
	if len(in.MonthlyRevenue) != 0 || len(in.TopCustomers) != 0 || len(in.Categories) != 0 {
		t.Fatalf("unexpected insights: %+v", in)
	}
	if len(in.RevenueByWeekday) != 7 || !in.RevenueByWeekday[0].Revenue.IsZero() {
		t.Fatalf("weekday rows = %+v", in.RevenueByWeekday)
	}
}
