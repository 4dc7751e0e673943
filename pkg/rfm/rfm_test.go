package rfm

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ecommerce-analytics/pkg/models"

	"github.com/shopspring/decimal"
)

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func order(id, customer int64, date, amount string) models.Order {
	return models.Order{
		OrderID:     id,
		CustomerID:  customer,
		OrderDate:   day(date),
		ShipDate:    day(date),
		TotalAmount: decimal.RequireFromString(amount),
		Status:      models.OrderStatusCompleted,
	}
}

// Customer 6 orders but is missing from the customer table.
func fixture() ([]models.Order, []models.Customer) {
	orders := []models.Order{
		order(1, 1, "2024-01-10", "100.00"),
		order(2, 1, "2024-03-01", "50.00"),
		order(3, 1, "2024-03-31", "25.50"),
		order(4, 2, "2023-06-01", "10.00"),
		order(5, 3, "2024-02-15", "300.00"),
		order(6, 3, "2024-03-20", "200.00"),
		order(7, 4, "2023-12-01", "40.00"),
		order(8, 5, "2024-01-01", "60.00"),
		order(9, 5, "2024-02-01", "60.00"),
		order(10, 6, "2024-03-10", "5.00"),
	}
	var customers []models.Customer
	for id := int64(1); id <= 5; id++ {
		customers = append(customers, models.Customer{CustomerID: id, Name: "Customer", Country: "Germany"})
	}
	return orders, customers
}

func TestAssignSegment(t *testing.T) {
	cases := []struct {
		r, f, m int
		want    string
	}{
		{5, 5, 5, SegmentChampions},
		{1, 1, 1, SegmentLost},
		{3, 1, 5, SegmentPotentialLoyalist},
		{4, 4, 3, SegmentLoyal},
		{2, 3, 1, SegmentAtRisk},
		{2, 2, 3, SegmentCantLose},
		{4, 4, 2, SegmentOthers},
		{3, 3, 2, SegmentOthers},
	}
	for _, c := range cases {
		if got := AssignSegment(c.r, c.f, c.m); got != c.want {
			t.Fatalf("AssignSegment(%d,%d,%d) = %q, want %q", c.r, c.f, c.m, got, c.want)
		}
	}
}

func TestQuantileEdges_LinearInterpolation(t *testing.T) {
	got := QuantileEdges([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 5)
	want := []float64{1, 2.8, 4.6, 6.4, 8.2, 10}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("edge %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScore_Quintiles(t *testing.T) {
	values := []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	asc := Score(values, Buckets, false)
	desc := Score(values, Buckets, true)
	wantAsc := []int{5, 5, 4, 4, 3, 3, 2, 2, 1, 1}
	for i := range values {
		if asc[i] != wantAsc[i] {
			t.Fatalf("ascending scores = %v, want %v", asc, wantAsc)
		}
		if desc[i] != 6-wantAsc[i] {
			t.Fatalf("descending scores = %v", desc)
		}
	}
}

func TestScore_CollapsesDuplicateEdges(t *testing.T) {
	same := Score([]float64{3, 3, 3, 3}, Buckets, true)
	for _, s := range same {
		if s != 1 {
			t.Fatalf("constant input scores = %v, want all 1", same)
		}
	}

	// edges 1,1,1,1,1.2,2 reduce to two buckets
	got := Score([]float64{1, 1, 2, 1, 1}, Buckets, false)
	want := []int{1, 1, 2, 1, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	got = Score([]float64{1, 1, 2, 1, 1}, Buckets, true)
	want = []int{2, 2, 1, 2, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("descending got %v, want %v", got, want)
		}
	}
}

func TestRankFirst_BreaksTiesByPosition(t *testing.T) {
	freq := []int{3, 1, 2, 1, 2, 1}
	got := RankFirst(len(freq), func(i, j int) bool { return freq[i] < freq[j] })
	want := []float64{6, 1, 4, 2, 5, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRankedScores_Balanced(t *testing.T) {
	for n := 5; n <= 200; n++ {
		// heavy ties, as real order counts have
		values := make([]int, n)
		for i := range values {
			values[i] = i % 3
		}
		ranks := RankFirst(n, func(i, j int) bool { return values[i] < values[j] })
		counts := make([]int, Buckets+1)
		for _, s := range Score(ranks, Buckets, false) {
			counts[s]++
		}
		lo, hi := n, 0
		for b := 1; b <= Buckets; b++ {
			lo, hi = min(lo, counts[b]), max(hi, counts[b])
		}
		if hi-lo > 1 {
			t.Fatalf("n=%d: bucket sizes %v not balanced within 1", n, counts[1:])
		}
	}
}

func TestCalculate(t *testing.T) {
	orders, customers := fixture()
	a := NewAnalysis(orders, customers)
	records, err := a.Calculate(time.Time{})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	want := []struct {
		id        int64
		recency   int
		frequency int
		monetary  string
		r, f, m   int
		segment   string
	}{
		{1, 0, 3, "175.50", 5, 5, 4, SegmentChampions},
		{2, 304, 1, "10.00", 1, 1, 1, SegmentLost},
		{3, 11, 2, "500.00", 5, 3, 5, SegmentLoyal},
		{4, 121, 1, "40.00", 2, 1, 2, SegmentLost},
		{5, 59, 2, "120.00", 3, 4, 3, SegmentLoyal},
		{6, 21, 1, "5.00", 4, 2, 1, SegmentPotentialLoyalist},
	}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i, w := range want {
		r := records[i]
		if r.CustomerID != w.id || r.Recency != w.recency || r.Frequency != w.frequency ||
			!r.Monetary.Equal(decimal.RequireFromString(w.monetary)) {
			t.Fatalf("record %d = %+v, want %+v", i, r, w)
		}
		if r.RScore != w.r || r.FScore != w.f || r.MScore != w.m || r.Segment != w.segment {
			t.Fatalf("customer %d scored (%d,%d,%d) %q, want (%d,%d,%d) %q",
				w.id, r.RScore, r.FScore, r.MScore, r.Segment, w.r, w.f, w.m, w.segment)
		}
	}
	if !records[0].Name.Valid || records[0].Country.String != "Germany" {
		t.Fatalf("customer 1 demographics not joined: %+v", records[0])
	}
	if records[5].Name.Valid || records[5].Country.Valid {
		t.Fatalf("unknown customer should have null demographics: %+v", records[5])
	}
}

func TestCalculate_ExplicitReferenceDate(t *testing.T) {
	orders, customers := fixture()
	records, err := NewAnalysis(orders, customers).Calculate(day("2024-04-10"))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if records[0].Recency != 10 || records[1].Recency != 314 {
		t.Fatalf("recency = %d, %d, want 10, 314", records[0].Recency, records[1].Recency)
	}

	_, err = NewAnalysis(orders, customers).Calculate(day("2024-03-01"))
	if !errors.Is(err, ErrReferenceDate) {
		t.Fatalf("got %v, want ErrReferenceDate", err)
	}
}

func TestCalculate_NoOrders(t *testing.T) {
	if _, err := NewAnalysis(nil, nil).Calculate(time.Time{}); !errors.Is(err, ErrNoOrders) {
		t.Fatalf("got %v, want ErrNoOrders", err)
	}
}

func TestAnalysis_CopiesInputs(t *testing.T) {
	orders, customers := fixture()
	a := NewAnalysis(orders, customers)
	orders[0].CustomerID = 99
	records, err := a.Calculate(time.Time{})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if records[0].CustomerID != 1 || records[0].Frequency != 3 {
		t.Fatalf("analysis observed a caller mutation: %+v", records[0])
	}
}

func TestAccessorsBeforeCalculate(t *testing.T) {
	a := NewAnalysis(fixture())
	if _, err := a.Records(); !errors.Is(err, ErrNotCalculated) {
		t.Fatalf("Records: got %v", err)
	}
	if _, err := a.SegmentSummary(); !errors.Is(err, ErrNotCalculated) {
		t.Fatalf("SegmentSummary: got %v", err)
	}
	if err := a.Export(filepath.Join(t.TempDir(), "rfm.csv")); !errors.Is(err, ErrNotCalculated) {
		t.Fatalf("Export: got %v", err)
	}
}

func TestCalculate_FailureClearsPreviousResults(t *testing.T) {
	a := NewAnalysis(fixture())
	if _, err := a.Calculate(time.Time{}); err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if _, err := a.Calculate(day("2000-01-01")); !errors.Is(err, ErrReferenceDate) {
		t.Fatalf("got %v, want ErrReferenceDate", err)
	}
	if _, err := a.Records(); !errors.Is(err, ErrNotCalculated) {
		t.Fatalf("Records after failed Calculate: got %v", err)
	}
	if _, err := a.SegmentSummary(); !errors.Is(err, ErrNotCalculated) {
		t.Fatalf("SegmentSummary after failed Calculate: got %v", err)
	}
	if err := a.Export(filepath.Join(t.TempDir(), "rfm.csv")); !errors.Is(err, ErrNotCalculated) {
		t.Fatalf("Export after failed Calculate: got %v", err)
	}
}

func TestSegmentSummary(t *testing.T) {
	a := NewAnalysis(fixture())
	if _, err := a.Calculate(time.Time{}); err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	got, err := a.SegmentSummary()
	if err != nil {
		t.Fatalf("SegmentSummary: %v", err)
	}

	want := []struct {
		segment      string
		count        int
		recency      float64
		frequency    float64
		avgMonetary  string
		total        string
		revenueShare string
	}{
		{SegmentChampions, 1, 0, 3, "175.50", "175.50", "20.63"},
		{SegmentLost, 2, 212.5, 1, "25.00", "50.00", "5.88"},
		{SegmentLoyal, 2, 35, 2, "310.00", "620.00", "72.90"},
		{SegmentPotentialLoyalist, 1, 21, 1, "5.00", "5.00", "0.59"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d segments, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		s := got[i]
		if s.Segment != w.segment || s.CustomerCount != w.count || s.AvgRecency != w.recency || s.AvgFrequency != w.frequency {
			t.Fatalf("segment %d = %+v, want %+v", i, s, w)
		}
		if !s.AvgMonetary.Equal(decimal.RequireFromString(w.avgMonetary)) ||
			!s.TotalRevenue.Equal(decimal.RequireFromString(w.total)) ||
			!s.RevenuePercentage.Equal(decimal.RequireFromString(w.revenueShare)) {
			t.Fatalf("segment %s money = %s/%s/%s, want %s/%s/%s", s.Segment,
				s.AvgMonetary, s.TotalRevenue, s.RevenuePercentage, w.avgMonetary, w.total, w.revenueShare)
		}
	}
}

func TestExport(t *testing.T) {
	a := NewAnalysis(fixture())
	if _, err := a.Calculate(time.Time{}); err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out", "rfm_scores.csv")
	if err := a.Export(path); err != nil {
		t.Fatalf("Export: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 7 {
		t.Fatalf("got %d lines, want header + 6 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "customer_id,recency,frequency,monetary") {
		t.Fatalf("header = %q", lines[0])
	}
}
