package tabular

import (
	"strconv"

	"ecommerce-analytics/pkg/models"
)

// Dashboard breakdown file names.
const (
	MonthlyRevenueFile      = "monthly_revenue.csv"
	RevenueByCountryFile    = "revenue_by_country.csv"
	RevenueByWeekdayFile    = "revenue_by_weekday.csv"
	CustomersByCountryFile  = "customers_by_country.csv"
	AcquisitionFile         = "customer_acquisition.csv"
	TopCustomersFile        = "top_customers.csv"
	CategoryPerformanceFile = "category_performance.csv"
	TopProductsFile         = "top_products.csv"
)

// WriteInsights writes every breakdown of in into dir.
func WriteInsights(dir string, in models.Insights) error {
	return writeAll(dir, []namedWrite{
		{MonthlyRevenueFile, func(p string) error {
			return writeCSV(p, []string{"month", "orders", "revenue"}, len(in.MonthlyRevenue), func(i int) []string {
				r := in.MonthlyRevenue[i]
				return []string{r.Month.Format(models.MonthLayout), strconv.Itoa(r.Orders), r.Revenue.StringFixed(2)}
			})
		}},
		{RevenueByCountryFile, func(p string) error {
			return writeCSV(p, []string{"country", "orders", "revenue"}, len(in.RevenueByCountry), func(i int) []string {
				r := in.RevenueByCountry[i]
				return []string{r.Country, strconv.Itoa(r.Orders), r.Revenue.StringFixed(2)}
			})
		}},
		{RevenueByWeekdayFile, func(p string) error {
			return writeCSV(p, []string{"day_of_week", "revenue"}, len(in.RevenueByWeekday), func(i int) []string {
				r := in.RevenueByWeekday[i]
				return []string{r.Day.String(), r.Revenue.StringFixed(2)}
			})
		}},
		{CustomersByCountryFile, func(p string) error {
			return writeCSV(p, []string{"country", "count"}, len(in.CustomersByCountry), func(i int) []string {
				r := in.CustomersByCountry[i]
				return []string{r.Country, strconv.Itoa(r.Customers)}
			})
		}},
		{AcquisitionFile, func(p string) error {
			return writeCSV(p, []string{"month", "new_customers"}, len(in.Acquisition), func(i int) []string {
				r := in.Acquisition[i]
				return []string{r.Month.Format(models.MonthLayout), strconv.Itoa(r.NewCustomers)}
			})
		}},
		{TopCustomersFile, func(p string) error {
			header := []string{"customer_id", "customer_name", "country", "order_count", "total_spent"}
			return writeCSV(p, header, len(in.TopCustomers), func(i int) []string {
				c := in.TopCustomers[i]
				return []string{itoa(c.CustomerID), nullString(c.Name), nullString(c.Country), strconv.Itoa(c.Orders), c.TotalSpent.StringFixed(2)}
			})
		}},
		{CategoryPerformanceFile, func(p string) error {
			header := []string{"category", "unique_products", "units_sold", "revenue"}
			return writeCSV(p, header, len(in.Categories), func(i int) []string {
				c := in.Categories[i]
				return []string{c.Category, strconv.Itoa(c.Products), strconv.Itoa(c.Units), c.Revenue.StringFixed(2)}
			})
		}},
		{TopProductsFile, func(p string) error {
			header := []string{"product_name", "category", "units_sold", "line_total"}
			return writeCSV(p, header, len(in.TopProducts), func(i int) []string {
				s := in.TopProducts[i]
				return []string{s.Name, s.Category, strconv.Itoa(s.Units), s.Revenue.StringFixed(2)}
			})
		}},
	})
}
