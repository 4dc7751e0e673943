package tabular

import (
	"database/sql"
	"strconv"
	"time"

	"ecommerce-analytics/pkg/models"
)

// Snapshot file names written by an analysis run.
const (
	RFMScoresFile       = "rfm_scores.csv"
	RFMSegmentsFile     = "rfm_segments.csv"
	CohortDataFile      = "cohort_data.csv"
	CohortCountsFile    = "cohort_counts.csv"
	CohortRetentionFile = "cohort_retention.csv"
	CohortMetricsFile   = "cohort_metrics.csv"
)

// WriteRFMScores writes one row per scored customer. Unknown customers have
// empty name and country columns.
func WriteRFMScores(path string, records []models.RFMRecord) error {
	header := []string{
		"customer_id", "recency", "frequency", "monetary",
		"r_score", "f_score", "m_score", "rfm_segment", "customer_name", "country",
	}
	return writeCSV(path, header, len(records), func(i int) []string {
		r := records[i]
		return []string{
			itoa(r.CustomerID), strconv.Itoa(r.Recency), strconv.Itoa(r.Frequency), r.Monetary.StringFixed(2),
			strconv.Itoa(r.RScore), strconv.Itoa(r.FScore), strconv.Itoa(r.MScore), r.Segment,
			nullString(r.Name), nullString(r.Country),
		}
	})
}

// WriteSegments writes the per-segment summary.
func WriteSegments(path string, segments []models.SegmentSummary) error {
	header := []string{
		"rfm_segment", "customer_count", "avg_recency", "avg_frequency",
		"avg_monetary", "total_revenue", "revenue_percentage",
	}
	return writeCSV(path, header, len(segments), func(i int) []string {
		s := segments[i]
		return []string{
			s.Segment, strconv.Itoa(s.CustomerCount), ftoa(s.AvgRecency), ftoa(s.AvgFrequency),
			s.AvgMonetary.StringFixed(2), s.TotalRevenue.StringFixed(2), s.RevenuePercentage.StringFixed(2),
		}
	})
}

// WriteCohortOrders writes the cohort-augmented order table.
func WriteCohortOrders(path string, orders []models.CohortOrder) error {
	header := append(append([]string(nil), orderHeader...), "cohort_month", "order_month", "cohort_index")
	return writeCSV(path, header, len(orders), func(i int) []string {
		o := orders[i]
		return append(orderRow(o.Order),
			o.CohortMonth.Format(models.MonthLayout), o.OrderMonth.Format(models.MonthLayout), strconv.Itoa(o.CohortIndex))
	})
}

// WriteCohortCounts writes the cohort × index customer counts. Cells past the
// observation horizon are left empty.
func WriteCohortCounts(path string, table models.CohortTable) error {
	return writeCohortGrid(path, table.Months, table.Width(), func(row, col int) string {
		c := table.Counts[row][col]
		if !c.Valid {
			return ""
		}
		return itoa(c.Int64)
	})
}

// WriteRetention writes the retention percentages with two decimals.
func WriteRetention(path string, table models.RetentionTable) error {
	return writeCohortGrid(path, table.Months, table.Width(), func(row, col int) string {
		r := table.Rates[row][col]
		if !r.Valid {
			return ""
		}
		return ftoa(r.Float64)
	})
}

// WriteCohortMetrics writes one row per populated (cohort, index) cell.
func WriteCohortMetrics(path string, metrics []models.CohortMetric) error {
	header := []string{"cohort_month", "cohort_index", "customers", "orders", "revenue", "avg_revenue_per_customer"}
	return writeCSV(path, header, len(metrics), func(i int) []string {
		m := metrics[i]
		return []string{
			m.CohortMonth.Format(models.MonthLayout), strconv.Itoa(m.CohortIndex),
			strconv.Itoa(m.Customers), strconv.Itoa(m.Orders),
			m.Revenue.StringFixed(2), m.AvgRevenuePerCustomer.StringFixed(2),
		}
	})
}

// writeCohortGrid writes one row per cohort month and one column per cohort index.
func writeCohortGrid(path string, months []time.Time, cols int, cell func(row, col int) string) error {
	header := make([]string, 0, cols+1)
	header = append(header, "cohort_month")
	for i := 0; i < cols; i++ {
		header = append(header, strconv.Itoa(i))
	}
	return writeCSV(path, header, len(months), func(row int) []string {
		rec := make([]string, 0, cols+1)
		rec = append(rec, months[row].Format(models.MonthLayout))
		for col := 0; col < cols; col++ {
			rec = append(rec, cell(row, col))
		}
		return rec
	})
}

func nullString(s sql.NullString) string {
	if !s.Valid {
		return ""
	}
	return s.String
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
