// Package calculator enchaîne l'analyse complète d'un dataset : KPIs, RFM, cohortes.
package calculator

import (
	"context"
	"fmt"
	"log"
	"time"

	"ecommerce-analytics/pkg/cohort"
	"ecommerce-analytics/pkg/metrics"
	"ecommerce-analytics/pkg/models"
	"ecommerce-analytics/pkg/rfm"

	"github.com/schollz/progressbar/v3"
)

// Source fournit les quatre tables (tabular.Dir, *database.Store).
type Source interface {
	Load(ctx context.Context) (*models.Dataset, error)
}

// Étapes, dans l'ordre d'exécution
const (
	StageLoad      = "load"
	StageKPIs      = "kpis"
	StageInsights  = "insights"
	StageRFM       = "rfm"
	StageCohorts   = "cohorts"
	StageRetention = "retention"
	StageMetrics   = "metrics"
	StageLTV       = "ltv"
)

var stages = []string{StageLoad, StageKPIs, StageInsights, StageRFM, StageCohorts, StageRetention, StageMetrics, StageLTV}

// Run charge le dataset et calcule toutes les vues du rapport.
// Le RFM couvre toujours tous les clients ; la fenêtre MMYYYY ne filtre que
// les cohortes. reg peut être nil.
func Run(ctx context.Context, src Source, cfg models.Config, reg *metrics.Registry) (*models.Report, error) {
	report, err := run(ctx, src, cfg, reg)
	if err != nil {
		reg.ObserveFailure()
		return nil, err
	}
	return report, nil
}

func run(ctx context.Context, src Source, cfg models.Config, reg *metrics.Registry) (*models.Report, error) {
	start, end, err := window(cfg)
	if err != nil {
		return nil, err
	}

	bar := progressbar.DefaultSilent(int64(len(stages)), "analysis")
	if cfg.Verbose {
		bar = progressbar.Default(int64(len(stages)), "analysis")
	}
	step := func(stage string, fn func() error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		began := time.Now()
		if err := fn(); err != nil {
			return fmt.Errorf("%s: %w", stage, err)
		}
		reg.ObserveStage(stage, time.Since(began))
		_ = bar.Add(1)
		return nil
	}

	var (
		ds      *models.Dataset
		report  = &models.Report{}
		rfmA    *rfm.Analysis
		cohortA *cohort.Analysis
	)

	err = step(StageLoad, func() (err error) {
		ds, err = src.Load(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = step(StageKPIs, func() error {
		report.KPIs = ds.KPIs()
		reg.ObserveKPIs(report.KPIs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = step(StageInsights, func() error {
		report.Insights = ds.Insights()
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = step(StageRFM, func() (err error) {
		rfmA = rfm.NewAnalysis(ds.Orders, ds.Customers)
		if report.RFM, err = rfmA.Calculate(cfg.ReferenceDate); err != nil {
			return err
		}
		if report.Segments, err = rfmA.SegmentSummary(); err != nil {
			return err
		}
		reg.ObserveSegments(report.Segments)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = step(StageCohorts, func() error {
		full := cohort.NewAnalysis()
		if _, err := full.CreateCohorts(ds.Orders); err != nil {
			return err
		}
		cohortA = full
		if !start.IsZero() || !end.IsZero() {
			w, err := full.Window(start, end)
			if err != nil {
				return err
			}
			cohortA = w
		}
		var err error
		report.Cohorts, err = cohortA.Orders()
		return err
	})
	if err != nil {
		return nil, err
	}

	err = step(StageRetention, func() (err error) {
		if report.CohortCounts, report.Retention, err = cohortA.Retention(); err != nil {
			return err
		}
		if report.Summary, err = cohortA.RetentionSummary(); err != nil {
			return err
		}
		reg.ObserveRetention(len(report.CohortCounts.Months), report.Summary)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = step(StageMetrics, func() (err error) {
		report.CohortMetrics, err = cohortA.Metrics()
		return err
	})
	if err != nil {
		return nil, err
	}

	err = step(StageLTV, func() (err error) {
		report.LifetimeValues, err = cohortA.LifetimeValue()
		return err
	})
	if err != nil {
		return nil, err
	}

	if cfg.Verbose {
		k := report.KPIs
		log.Printf("[INFO] kpis revenue=%s orders=%d customers=%d aov=%s",
			k.TotalRevenue.StringFixed(2), k.TotalOrders, k.UniqueCustomers, k.AvgOrderValue.StringFixed(2))
		log.Printf("[INFO] rfm customers=%d segments=%d", len(report.RFM), len(report.Segments))
		for _, l := range report.LifetimeValues {
			log.Printf("[INFO] %s -> LTV=%s | clients=%d months=%d",
				cohort.FormatMonth(l.CohortMonth), l.LTVAvg.StringFixed(2), l.CohortSize, len(l.CumulativeRevenue))
		}
	}
	return report, nil
}

// window lit les bornes MMYYYY optionnelles (vide = ouverte)
func window(cfg models.Config) (start, end time.Time, err error) {
	if cfg.StartMonthInclusive != "" {
		if start, err = cohort.ParseMonth(cfg.StartMonthInclusive); err != nil {
			return start, end, fmt.Errorf("start_month: %w", err)
		}
	}
	if cfg.EndMonthInclusive != "" {
		if end, err = cohort.ParseMonth(cfg.EndMonthInclusive); err != nil {
			return start, end, fmt.Errorf("end_month: %w", err)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, fmt.Errorf("end_month < start_month")
	}
	if cfg.Verbose && !start.IsZero() && !end.IsZero() {
		log.Printf("[DEBUG] cohort window %s..%s (%d months)",
			cohort.FormatMonth(start), cohort.FormatMonth(end), len(cohort.MonthsBetweenInclusive(start, end)))
	}
	return start, end, nil
}
