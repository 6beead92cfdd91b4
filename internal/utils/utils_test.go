package utils_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/edaloom-cli/internal/utils"
)

func TestEstimateTokens(t *testing.T) {
	cases := map[string]int{
		"":                       0,
		"A":                      1,
		"mean: 4.25":             2,
		strings.Repeat("é", 400): 100,
	}
	for in, want := range cases {
		if got := utils.EstimateTokens(in); got != want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestFitTokensCutsOnLineBreak(t *testing.T) {
	summary := strings.Repeat("  mean: 12.5000\n", 200)
	got, cut := utils.FitTokens(summary, 50)
	if !cut {
		t.Fatalf("expected the summary to be cut")
	}
	if utils.EstimateTokens(got) > 50 {
		t.Fatalf("fitted prompt costs %d tokens", utils.EstimateTokens(got))
	}
	if !strings.HasSuffix(got, "12.5000\n") {
		t.Fatalf("cut mid-line: %q", got[len(got)-20:])
	}

	same, cut := utils.FitTokens("rows: 3\n", 50)
	if cut || same != "rows: 3\n" {
		t.Fatalf("short prompt changed: %q cut=%v", same, cut)
	}
	if empty, cut := utils.FitTokens("x", 0); empty != "" || !cut {
		t.Fatalf("zero budget = %q cut=%v", empty, cut)
	}
}

func TestWriteReportFile(t *testing.T) {
	b, err := utils.ReportJSON(map[string]any{"ok": true})
	if err != nil {
		t.Fatalf("ReportJSON: %v", err)
	}
	dir := filepath.Join(t.TempDir(), "reports")
	path := filepath.Join(dir, "scores.report.json")
	if err := utils.WriteReportFile(path, []byte("stale")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := utils.WriteReportFile(path, b); err != nil {
		t.Fatalf("WriteReportFile: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "{\n  \"ok\": true\n}\n" {
		t.Fatalf("content = %q, %v", got, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}
