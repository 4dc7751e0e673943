package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the exchange format of every date column (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// MonthLayout formats cohort and order months (YYYY-MM).
const MonthLayout = "2006-01"

// OrderStatusCompleted is the only status the generator emits.
const OrderStatusCompleted = "Completed"

/*
SOURCE → tables produced once by the generator (or read from a database) and
treated as immutable afterwards.
*/

// Customer is a registered shopper.
type Customer struct {
	CustomerID       int64
	Name             string
	Email            string
	Country          string
	City             string
	RegistrationDate time.Time
}

// Product is one catalog entry. UnitPrice is always > 0.
type Product struct {
	ProductID   int64
	Name        string
	Category    string
	SubCategory string
	UnitPrice   decimal.Decimal
}

// Order is a purchase header. TotalAmount equals the sum of its items' line totals.
type Order struct {
	OrderID     int64
	CustomerID  int64
	OrderDate   time.Time
	ShipDate    time.Time
	TotalAmount decimal.Decimal
	Status      string
}

// OrderItem is one order line. UnitPrice is copied from the product at order time.
type OrderItem struct {
	OrderItemID int64
	OrderID     int64
	ProductID   int64
	Quantity    int
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal // fraction in [0, 1)
	LineTotal   decimal.Decimal
}

// Dataset bundles the four source tables.
type Dataset struct {
	Customers  []Customer
	Products   []Product
	Orders     []Order
	OrderItems []OrderItem
}

/*
DERIVED → views recomputed on demand from the source tables.
*/

// RFMRecord holds the recency/frequency/monetary view of one customer.
// Name and Country are null when the customer is absent from the customer table.
type RFMRecord struct {
	CustomerID int64
	Recency    int // days
	Frequency  int
	Monetary   decimal.Decimal
	RScore     int
	FScore     int
	MScore     int
	Segment    string
	Name       sql.NullString
	Country    sql.NullString
}

// SegmentSummary aggregates RFM records sharing a segment label.
type SegmentSummary struct {
	Segment           string
	CustomerCount     int
	AvgRecency        float64
	AvgFrequency      float64
	AvgMonetary       decimal.Decimal
	TotalRevenue      decimal.Decimal
	RevenuePercentage decimal.Decimal
}

// CohortOrder is an order augmented with its cohort coordinates.
type CohortOrder struct {
	Order
	CohortMonth time.Time // first day of the customer's first order month
	OrderMonth  time.Time // first day of this order's month
	CohortIndex int       // whole months between CohortMonth and OrderMonth
}

// CohortTable counts distinct active customers per cohort (rows) and cohort
// index (columns). Cells past the observation horizon are not Valid.
type CohortTable struct {
	Months []time.Time
	Counts [][]sql.NullInt64
}

// RetentionTable is CohortTable normalised by each row's index-0 value, in percent.
type RetentionTable struct {
	Months []time.Time
	Rates  [][]sql.NullFloat64
}

// CohortMetric aggregates the orders of one (cohort month, cohort index) cell.
type CohortMetric struct {
	CohortMonth           time.Time
	CohortIndex           int
	Customers             int
	Orders                int
	Revenue               decimal.Decimal
	AvgRevenuePerCustomer decimal.Decimal
}

// CohortLTV holds the cumulative revenue curve of one cohort.
type CohortLTV struct {
	CohortMonth       time.Time
	CohortSize        int
	CumulativeRevenue []decimal.Decimal // indexed by cohort index
	LTVAvg            decimal.Decimal   // last cumulative value / CohortSize
}

// RetentionSummary averages retention at fixed horizons across the cohorts
// that reached them.
type RetentionSummary struct {
	Month1        sql.NullFloat64
	Month3        sql.NullFloat64
	Month6        sql.NullFloat64
	Month12       sql.NullFloat64
	AvgCohortSize float64
}

/*
COMPUTE → output of a full calculator run.
*/

// Report is everything a presentation layer needs from one run.
type Report struct {
	KPIs           KPIs
	Insights       Insights
	RFM            []RFMRecord
	Segments       []SegmentSummary
	Cohorts        []CohortOrder
	CohortCounts   CohortTable
	Retention      RetentionTable
	CohortMetrics  []CohortMetric
	LifetimeValues []CohortLTV
	Summary        RetentionSummary
}

/*
CONFIG → calculator parameters
*/

// Config holds the parameters passed to calculator.Run.
type Config struct {
	StartMonthInclusive string    // "MMYYYY", empty = first cohort
	EndMonthInclusive   string    // "MMYYYY", empty = last cohort
	ReferenceDate       time.Time // RFM reference; zero = latest order date
	Verbose             bool
}
