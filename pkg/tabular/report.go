package tabular

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"ecommerce-analytics/pkg/models"

	"github.com/shopspring/decimal"
)

// ReportFile holds the headline figures of a run as JSON.
const ReportFile = "report.json"

type reportJSON struct {
	KPIs struct {
		TotalRevenue    decimal.Decimal `json:"total_revenue"`
		TotalOrders     int             `json:"total_orders"`
		UniqueCustomers int             `json:"unique_customers"`
		AvgOrderValue   decimal.Decimal `json:"avg_order_value"`
	} `json:"kpis"`
	Segments  []segmentJSON `json:"segments"`
	Retention struct {
		Month1        *float64 `json:"month_1"`
		Month3        *float64 `json:"month_3"`
		Month6        *float64 `json:"month_6"`
		Month12       *float64 `json:"month_12"`
		AvgCohortSize float64  `json:"avg_cohort_size"`
	} `json:"retention"`
	Cohorts []cohortJSON `json:"cohorts"`
}

type segmentJSON struct {
	Segment           string          `json:"segment"`
	Customers         int             `json:"customers"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	RevenuePercentage decimal.Decimal `json:"revenue_percentage"`
}

type cohortJSON struct {
	Month  string          `json:"month"`
	Size   int             `json:"size"`
	Months int             `json:"months_observed"`
	LTV    decimal.Decimal `json:"ltv"`
}

// WriteReport writes the six CSV views of r, the dashboard breakdowns and
// ReportFile into dir.
func WriteReport(dir string, r *models.Report) error {
	err := writeAll(dir, []namedWrite{
		{RFMScoresFile, func(p string) error { return WriteRFMScores(p, r.RFM) }},
		{RFMSegmentsFile, func(p string) error { return WriteSegments(p, r.Segments) }},
		{CohortDataFile, func(p string) error { return WriteCohortOrders(p, r.Cohorts) }},
		{CohortCountsFile, func(p string) error { return WriteCohortCounts(p, r.CohortCounts) }},
		{CohortRetentionFile, func(p string) error { return WriteRetention(p, r.Retention) }},
		{CohortMetricsFile, func(p string) error { return WriteCohortMetrics(p, r.CohortMetrics) }},
		{ReportFile, func(p string) error { return WriteReportJSON(p, r) }},
	})
	if err != nil {
		return err
	}
	return WriteInsights(dir, r.Insights)
}

type namedWrite struct {
	name  string
	write func(path string) error
}

func writeAll(dir string, writes []namedWrite) error {
	for _, w := range writes {
		if err := w.write(filepath.Join(dir, w.name)); err != nil {
			return fmt.Errorf("write %s: %w", w.name, err)
		}
	}
	return nil
}

// WriteReportJSON writes KPIs, segment shares, the retention summary and the
// per-cohort LTV as indented JSON. Money is encoded as decimal strings and
// unreached retention horizons as null.
func WriteReportJSON(path string, r *models.Report) error {
	var doc reportJSON
	doc.KPIs.TotalRevenue = r.KPIs.TotalRevenue
	doc.KPIs.TotalOrders = r.KPIs.TotalOrders
	doc.KPIs.UniqueCustomers = r.KPIs.UniqueCustomers
	doc.KPIs.AvgOrderValue = r.KPIs.AvgOrderValue

	doc.Segments = make([]segmentJSON, len(r.Segments))
	for i, s := range r.Segments {
		doc.Segments[i] = segmentJSON{s.Segment, s.CustomerCount, s.TotalRevenue, s.RevenuePercentage}
	}

	doc.Retention.Month1 = nullFloat(r.Summary.Month1)
	doc.Retention.Month3 = nullFloat(r.Summary.Month3)
	doc.Retention.Month6 = nullFloat(r.Summary.Month6)
	doc.Retention.Month12 = nullFloat(r.Summary.Month12)
	doc.Retention.AvgCohortSize = r.Summary.AvgCohortSize

	doc.Cohorts = make([]cohortJSON, len(r.LifetimeValues))
	for i, l := range r.LifetimeValues {
		doc.Cohorts[i] = cohortJSON{l.CohortMonth.Format(models.MonthLayout), l.CohortSize, len(l.CumulativeRevenue), l.LTVAvg}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	x := math.Round(v.Float64*100) / 100
	return &x
}
