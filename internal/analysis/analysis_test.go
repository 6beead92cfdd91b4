package analysis

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/edaloom-cli/internal/table"
)

func load(t *testing.T, csv string) *table.Table {
	t.Helper()
	tbl, err := table.Load(strings.NewReader(csv), "fixture.csv", table.DefaultOptions())
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return tbl
}

func TestImputeScenario(t *testing.T) {
	tbl := load(t, "A,B\n1,x\n,x\n3,\n")
	missing := CaptureMissing(tbl)
	if missing.Count("A") != 1 || missing.Count("B") != 1 {
		t.Fatalf("missing = %#v", missing)
	}

	imp, err := Impute(tbl)
	if err != nil {
		t.Fatalf("Impute: %v", err)
	}
	a := imp.Column("A").Numbers()
	if len(a) != 3 || a[0] != 1 || a[1] != 2 || a[2] != 3 {
		t.Fatalf("A = %#v", a)
	}
	b := imp.Column("B").Strings()
	if strings.Join(b, ",") != "x,x,x" {
		t.Fatalf("B = %#v", b)
	}
	if tbl.Column("A").NullCount() != 1 || tbl.Column("B").NullCount() != 1 {
		t.Fatalf("Impute mutated its input")
	}
	for _, n := range imp.NullCounts() {
		if n != 0 {
			t.Fatalf("imputed table still has nulls: %v", imp.NullCounts())
		}
	}
}

func TestImputeKeepsMedian(t *testing.T) {
	tbl := load(t, "v\n7\nNA\n1\n4\nNA\n10\n2\n")
	before := Median(tbl.Column("v").Numbers())
	imp, err := Impute(tbl)
	if err != nil {
		t.Fatalf("Impute: %v", err)
	}
	col := imp.Column("v")
	if col.NullCount() != 0 {
		t.Fatalf("nulls remain")
	}
	if after := Median(col.Numbers()); after != before {
		t.Fatalf("median %v -> %v", before, after)
	}
}

func TestImputeModeFrequencyGrows(t *testing.T) {
	tbl := load(t, "c\nb\na\nb\nNA\na\nNA\nc\n")
	before, beforeN := Mode(tbl.Column("c").Strings())
	if before != "b" {
		t.Fatalf("tie should resolve to first seen, got %q", before)
	}
	imp, err := Impute(tbl)
	if err != nil {
		t.Fatalf("Impute: %v", err)
	}
	after, afterN := Mode(imp.Column("c").Strings())
	if after != before || afterN < beforeN || afterN != 4 {
		t.Fatalf("mode %q(%d) -> %q(%d)", before, beforeN, after, afterN)
	}
}

func TestImputeAllNullColumnFails(t *testing.T) {
	tbl := load(t, "a,b\n1,\n2,\n")
	_, err := Impute(tbl)
	var ie *ImputationError
	if !errors.As(err, &ie) {
		t.Fatalf("expected ImputationError, got %v", err)
	}
	if ie.Column != "b" {
		t.Fatalf("column = %q", ie.Column)
	}
}

func TestImputeZeroRows(t *testing.T) {
	tbl := load(t, "a,b\n")
	imp, err := Impute(tbl)
	if err != nil {
		t.Fatalf("Impute: %v", err)
	}
	if imp.Rows() != 0 {
		t.Fatalf("rows = %d", imp.Rows())
	}
}

func TestSummarize(t *testing.T) {
	tbl := load(t, "score,group,temp\n10,a,20\n11,b,21\n9.5,a,19\n,a,22\n50,b,40\n")
	missing := CaptureMissing(tbl)
	imp, err := Impute(tbl)
	if err != nil {
		t.Fatalf("Impute: %v", err)
	}
	s := Summarize(imp, missing)
	if s.Rows != 5 || len(s.Columns) != 3 {
		t.Fatalf("summary shape = %d rows, %d cols", s.Rows, len(s.Columns))
	}

	score := s.Columns[0]
	vals := []float64{10, 11, 9.5, 10.5, 50}
	if score.Count != 5 {
		t.Fatalf("score count = %d", score.Count)
	}
	if !almostEqual(score.Mean, mean(vals), 1e-9) || !almostEqual(score.Std, sampleStd(vals), 1e-9) {
		t.Fatalf("score mean/std = %v/%v", score.Mean, score.Std)
	}
	if score.Min != 9.5 || score.Max != 50 || score.P25 != 10 || score.P50 != 10.5 || score.P75 != 11 {
		t.Fatalf("score quantiles = %+v", score)
	}
	if score.OutliersCount != 1 {
		t.Fatalf("score outliers = %d", score.OutliersCount)
	}

	group := s.Columns[1]
	if group.Kind != table.KindCategorical || group.Unique != 2 || group.Top != "a" || group.Freq != 3 {
		t.Fatalf("group = %+v", group)
	}

	if s.Corr == nil || len(s.Corr.Columns) != 2 {
		t.Fatalf("corr = %#v", s.Corr)
	}
	if r := s.Corr.Values[0][1]; r < 0.9 {
		t.Fatalf("score~temp r = %v", r)
	}

	text := s.Text()
	for _, want := range []string{
		"[DATASET SUMMARY]", "File: fixture.csv", "Rows: 5",
		"- score (numeric)", "  50%: 10.5", "- group (categorical)", "  top: a", "  freq: 3",
		"[CORRELATIONS]", "- score ~ temp: r=",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("summary text missing %q:\n%s", want, text)
		}
	}
	if got := missing.Text(); got != "score: 1\ngroup: 0\ntemp: 0\n" {
		t.Fatalf("missing text = %q", got)
	}
}

func TestSummarizeSingleRowStdIsNaN(t *testing.T) {
	tbl := load(t, "v\n3\n")
	s := Summarize(tbl, CaptureMissing(tbl))
	if !math.IsNaN(s.Columns[0].Std) {
		t.Fatalf("std = %v, want NaN", s.Columns[0].Std)
	}
	if !strings.Contains(s.Text(), "  std: NaN") {
		t.Fatalf("text = %s", s.Text())
	}
}

func TestCorrelationsSingleAndConstant(t *testing.T) {
	one := Correlations(load(t, "a\n1\n2\n"))
	if one == nil || len(one.Values) != 1 || one.Values[0][0] != 1 {
		t.Fatalf("single column matrix = %#v", one)
	}
	flat := Correlations(load(t, "a,b\n1,5\n2,5\n3,5\n"))
	if flat.Values[0][1] != 0 || flat.Values[1][1] != 1 {
		t.Fatalf("constant column matrix = %#v", flat.Values)
	}
	if Correlations(load(t, "s\nx\n")) != nil {
		t.Fatalf("matrix for categorical-only table should be nil")
	}
}

func TestQuantileInterpolates(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	if q := quantile(sorted, 0.5); q != 2.5 {
		t.Fatalf("median = %v", q)
	}
	if q := quantile(sorted, 0.25); q != 1.75 {
		t.Fatalf("p25 = %v", q)
	}
	if !math.IsNaN(quantile(nil, 0.5)) {
		t.Fatalf("empty quantile should be NaN")
	}
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func sampleStd(vals []float64) float64 {
	m := mean(vals)
	var ss float64
	for _, v := range vals {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vals)-1))
}

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
