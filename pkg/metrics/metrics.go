// Package metrics exposes generator and analysis figures to Prometheus.
// Every observation helper is a no-op on a nil *Registry.
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"ecommerce-analytics/pkg/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg          *prometheus.Registry
	Rows         *prometheus.CounterVec // by table
	Revenue      prometheus.Gauge
	Orders       prometheus.Gauge
	Customers    prometheus.Gauge
	AvgOrder     prometheus.Gauge
	SegmentSize  *prometheus.GaugeVec // by segment
	SegmentShare *prometheus.GaugeVec // by segment, percent of revenue
	Cohorts      prometheus.Gauge
	Retention    *prometheus.GaugeVec // by month horizon
	StageSec     *prometheus.HistogramVec
	RunsFailed   prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ecom_generated_rows_total"}, []string{"table"})
	revenue := prometheus.NewGauge(prometheus.GaugeOpts{Name: "ecom_revenue_total"})
	orders := prometheus.NewGauge(prometheus.GaugeOpts{Name: "ecom_orders"})
	customers := prometheus.NewGauge(prometheus.GaugeOpts{Name: "ecom_customers"})
	avgOrder := prometheus.NewGauge(prometheus.GaugeOpts{Name: "ecom_avg_order_value"})
	segSize := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "ecom_rfm_segment_customers"}, []string{"segment"})
	segShare := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "ecom_rfm_segment_revenue_percent"}, []string{"segment"})
	cohorts := prometheus.NewGauge(prometheus.GaugeOpts{Name: "ecom_cohorts"})
	retention := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "ecom_cohort_retention_percent"}, []string{"month"})
	stage := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ecom_stage_duration_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
	failed := prometheus.NewCounter(prometheus.CounterOpts{Name: "ecom_runs_failed_total"})

	r.MustRegister(rows, revenue, orders, customers, avgOrder, segSize, segShare, cohorts, retention, stage, failed)
	return &Registry{
		reg:          r,
		Rows:         rows,
		Revenue:      revenue,
		Orders:       orders,
		Customers:    customers,
		AvgOrder:     avgOrder,
		SegmentSize:  segSize,
		SegmentShare: segShare,
		Cohorts:      cohorts,
		Retention:    retention,
		StageSec:     stage,
		RunsFailed:   failed,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// ObserveGenerated counts the rows of a generated dataset.
func (r *Registry) ObserveGenerated(s models.DatasetSummary) {
	if r == nil {
		return
	}
	r.Rows.WithLabelValues("customers").Add(float64(s.Customers))
	r.Rows.WithLabelValues("products").Add(float64(s.Products))
	r.Rows.WithLabelValues("orders").Add(float64(s.Orders))
	r.Rows.WithLabelValues("order_items").Add(float64(s.OrderItems))
}

func (r *Registry) ObserveKPIs(k models.KPIs) {
	if r == nil {
		return
	}
	r.Revenue.Set(k.TotalRevenue.InexactFloat64())
	r.Orders.Set(float64(k.TotalOrders))
	r.Customers.Set(float64(k.UniqueCustomers))
	r.AvgOrder.Set(k.AvgOrderValue.InexactFloat64())
}

func (r *Registry) ObserveSegments(segments []models.SegmentSummary) {
	if r == nil {
		return
	}
	r.SegmentSize.Reset()
	r.SegmentShare.Reset()
	for _, s := range segments {
		r.SegmentSize.WithLabelValues(s.Segment).Set(float64(s.CustomerCount))
		r.SegmentShare.WithLabelValues(s.Segment).Set(s.RevenuePercentage.InexactFloat64())
	}
}

// ObserveRetention publishes the horizons that at least one cohort reached.
func (r *Registry) ObserveRetention(cohorts int, s models.RetentionSummary) {
	if r == nil {
		return
	}
	r.Cohorts.Set(float64(cohorts))
	r.Retention.Reset()
	horizons := []struct {
		month int
		value sql.NullFloat64
	}{{1, s.Month1}, {3, s.Month3}, {6, s.Month6}, {12, s.Month12}}
	for _, h := range horizons {
		if h.value.Valid {
			r.Retention.WithLabelValues(strconv.Itoa(h.month)).Set(h.value.Float64)
		}
	}
}

func (r *Registry) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.StageSec.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *Registry) ObserveFailure() {
	if r == nil {
		return
	}
	r.RunsFailed.Inc()
}
