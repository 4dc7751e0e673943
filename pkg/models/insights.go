package models

import (
	"database/sql"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TopN is the length of the top customer and top product lists.
const TopN = 10

// MonthlyRevenue is the order revenue of one calendar month.
type MonthlyRevenue struct {
	Month   time.Time // first day of the month
	Orders  int
	Revenue decimal.Decimal
}

// CountryRevenue is the revenue of the orders placed by one country's customers.
type CountryRevenue struct {
	Country string
	Orders  int
	Revenue decimal.Decimal
}

// WeekdayRevenue is the order revenue of one day of the week.
type WeekdayRevenue struct {
	Day     time.Weekday
	Revenue decimal.Decimal
}

// CountryCustomers counts registered customers per country.
type CountryCustomers struct {
	Country   string
	Customers int
}

// MonthlyAcquisition counts registrations per calendar month.
type MonthlyAcquisition struct {
	Month        time.Time
	NewCustomers int
}

// CustomerTotal is one customer's order count and spend. Name and Country are
// null when the customer is absent from the customer table.
type CustomerTotal struct {
	CustomerID int64
	Name       sql.NullString
	Country    sql.NullString
	Orders     int
	TotalSpent decimal.Decimal
}

// CategorySales aggregates the order lines of one product category.
type CategorySales struct {
	Category string
	Products int // distinct products sold
	Units    int
	Revenue  decimal.Decimal
}

// ProductSales aggregates the order lines of one product name.
type ProductSales struct {
	Name     string
	Category string
	Units    int
	Revenue  decimal.Decimal
}

// Insights are the dashboard breakdowns of a dataset.
type Insights struct {
	MonthlyRevenue     []MonthlyRevenue
	RevenueByCountry   []CountryRevenue
	RevenueByWeekday   []WeekdayRevenue
	CustomersByCountry []CountryCustomers
	Acquisition        []MonthlyAcquisition
	TopCustomers       []CustomerTotal
	Categories         []CategorySales
	TopProducts        []ProductSales
}

// Insights computes every breakdown with TopN-long top lists.
func (d *Dataset) Insights() Insights {
	return Insights{
		MonthlyRevenue:     d.MonthlyRevenue(),
		RevenueByCountry:   d.RevenueByCountry(),
		RevenueByWeekday:   d.RevenueByWeekday(),
		CustomersByCountry: d.CustomersByCountry(),
		Acquisition:        d.Acquisition(),
		TopCustomers:       d.TopCustomers(TopN),
		Categories:         d.CategoryPerformance(),
		TopProducts:        d.TopProducts(TopN),
	}
}

func monthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthlyRevenue sums orders per order month, oldest first. Months without
// orders are omitted.
func (d *Dataset) MonthlyRevenue() []MonthlyRevenue {
	byMonth := map[time.Time]*MonthlyRevenue{}
	for _, o := range d.Orders {
		m := monthOf(o.OrderDate)
		r, ok := byMonth[m]
		if !ok {
			r = &MonthlyRevenue{Month: m, Revenue: decimal.Zero}
			byMonth[m] = r
		}
		r.Orders++
		r.Revenue = r.Revenue.Add(o.TotalAmount)
	}
	out := make([]MonthlyRevenue, 0, len(byMonth))
	for _, r := range byMonth {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// RevenueByCountry sums orders per customer country, highest revenue first,
// ties by country name. Orders of unknown customers are left out.
func (d *Dataset) RevenueByCountry() []CountryRevenue {
	country := make(map[int64]string, len(d.Customers))
	for _, c := range d.Customers {
		country[c.CustomerID] = c.Country
	}
	byCountry := map[string]*CountryRevenue{}
	for _, o := range d.Orders {
		name, ok := country[o.CustomerID]
		if !ok {
			continue
		}
		r, ok := byCountry[name]
		if !ok {
			r = &CountryRevenue{Country: name, Revenue: decimal.Zero}
			byCountry[name] = r
		}
		r.Orders++
		r.Revenue = r.Revenue.Add(o.TotalAmount)
	}
	out := make([]CountryRevenue, 0, len(byCountry))
	for _, r := range byCountry {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].Country < out[j].Country
	})
	return out
}

// RevenueByWeekday returns seven rows, Monday to Sunday. Days without orders
// have zero revenue.
func (d *Dataset) RevenueByWeekday() []WeekdayRevenue {
	var sums [7]decimal.Decimal
	for i := range sums {
		sums[i] = decimal.Zero
	}
	for _, o := range d.Orders {
		wd := o.OrderDate.Weekday()
		sums[wd] = sums[wd].Add(o.TotalAmount)
	}
	out := make([]WeekdayRevenue, 7)
	for i := range out {
		day := time.Weekday((i + 1) % 7)
		out[i] = WeekdayRevenue{Day: day, Revenue: sums[day]}
	}
	return out
}

// CustomersByCountry counts the customer table per country, largest first,
// ties by country name.
func (d *Dataset) CustomersByCountry() []CountryCustomers {
	counts := map[string]int{}
	for _, c := range d.Customers {
		counts[c.Country]++
	}
	out := make([]CountryCustomers, 0, len(counts))
	for name, n := range counts {
		out = append(out, CountryCustomers{Country: name, Customers: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Customers != out[j].Customers {
			return out[i].Customers > out[j].Customers
		}
		return out[i].Country < out[j].Country
	})
	return out
}

// Acquisition counts registrations per month, oldest first.
func (d *Dataset) Acquisition() []MonthlyAcquisition {
	counts := map[time.Time]int{}
	for _, c := range d.Customers {
		counts[monthOf(c.RegistrationDate)]++
	}
	out := make([]MonthlyAcquisition, 0, len(counts))
	for m, n := range counts {
		out = append(out, MonthlyAcquisition{Month: m, NewCustomers: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// TopCustomers returns the n customers with the highest spend, ties by
// customer id.
func (d *Dataset) TopCustomers(n int) []CustomerTotal {
	byCustomer := map[int64]*CustomerTotal{}
	for _, o := range d.Orders {
		t, ok := byCustomer[o.CustomerID]
		if !ok {
			t = &CustomerTotal{CustomerID: o.CustomerID, TotalSpent: decimal.Zero}
			byCustomer[o.CustomerID] = t
		}
		t.Orders++
		t.TotalSpent = t.TotalSpent.Add(o.TotalAmount)
	}
	for _, c := range d.Customers {
		if t, ok := byCustomer[c.CustomerID]; ok {
			t.Name = sql.NullString{String: c.Name, Valid: true}
			t.Country = sql.NullString{String: c.Country, Valid: true}
		}
	}
	out := make([]CustomerTotal, 0, len(byCustomer))
	for _, t := range byCustomer {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalSpent.Cmp(out[j].TotalSpent); c != 0 {
			return c > 0
		}
		return out[i].CustomerID < out[j].CustomerID
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// productLines joins order items to the catalog. Items of unknown products
// are left out.
func (d *Dataset) productLines(fn func(p Product, it OrderItem)) {
	catalog := make(map[int64]Product, len(d.Products))
	for _, p := range d.Products {
		catalog[p.ProductID] = p
	}
	for _, it := range d.OrderItems {
		if p, ok := catalog[it.ProductID]; ok {
			fn(p, it)
		}
	}
}

// CategoryPerformance aggregates order lines per category, highest revenue
// first, ties by category name.
func (d *Dataset) CategoryPerformance() []CategorySales {
	byCategory := map[string]*CategorySales{}
	products := map[string]map[int64]struct{}{}
	d.productLines(func(p Product, it OrderItem) {
		s, ok := byCategory[p.Category]
		if !ok {
			s = &CategorySales{Category: p.Category, Revenue: decimal.Zero}
			byCategory[p.Category] = s
			products[p.Category] = map[int64]struct{}{}
		}
		s.Units += it.Quantity
		s.Revenue = s.Revenue.Add(it.LineTotal)
		products[p.Category][p.ProductID] = struct{}{}
	})
	out := make([]CategorySales, 0, len(byCategory))
	for name, s := range byCategory {
		s.Products = len(products[name])
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// TopProducts returns the n product names with the highest line revenue,
// ties by name. Products sharing a name are summed together.
func (d *Dataset) TopProducts(n int) []ProductSales {
	byName := map[string]*ProductSales{}
	d.productLines(func(p Product, it OrderItem) {
		s, ok := byName[p.Name]
		if !ok {
			s = &ProductSales{Name: p.Name, Category: p.Category, Revenue: decimal.Zero}
			byName[p.Name] = s
		}
		s.Units += it.Quantity
		s.Revenue = s.Revenue.Add(it.LineTotal)
	})
	out := make([]ProductSales, 0, len(byName))
	for _, s := range byName {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
