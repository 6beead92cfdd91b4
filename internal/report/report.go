// Package report assembles the single value returned by an analysis run.
package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/edaloom-cli/internal/table"
)

const (
	loadedBanner  = "✓ Data loaded successfully!"
	invalidFormat = "✗ Please upload a valid CSV file."
)

// Report is the outcome of one run. A failed run carries only Error.
type Report struct {
	OK       bool     `json:"ok" yaml:"ok"`
	RunID    string   `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Dataset  string   `json:"dataset,omitempty" yaml:"dataset,omitempty"`
	Summary  string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Missing  string   `json:"missing,omitempty" yaml:"missing,omitempty"`
	Insight  string   `json:"insight,omitempty" yaml:"insight,omitempty"`
	Images   []string `json:"images" yaml:"images"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error    string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Parts are the stage outputs merged by Assemble.
type Parts struct {
	RunID    string
	Dataset  string
	Summary  string
	Missing  string
	Insight  string
	Images   []string
	Warnings []string
}

// Assemble combines stage outputs into a successful Report. It never fails.
func Assemble(p Parts) Report {
	images := make([]string, len(p.Images))
	copy(images, p.Images)
	var warnings []string
	if len(p.Warnings) > 0 {
		warnings = append(warnings, p.Warnings...)
	}
	return Report{
		OK:       true,
		RunID:    p.RunID,
		Dataset:  p.Dataset,
		Summary:  p.Summary,
		Missing:  p.Missing,
		Insight:  p.Insight,
		Images:   images,
		Warnings: warnings,
	}
}

// Failure converts a run-aborting error into a Report with no images.
func Failure(runID string, err error) Report {
	msg := "✗ Error: unknown failure"
	if err != nil {
		msg = "✗ Error: " + err.Error()
		var fe *table.FormatError
		if errors.As(err, &fe) {
			msg = invalidFormat + "\n" + err.Error()
		}
	}
	return Report{RunID: runID, Images: []string{}, Error: msg}
}

// Text renders the human-readable block shown to users.
func (r Report) Text() string {
	if !r.OK {
		return r.Error
	}
	var b strings.Builder
	b.WriteString(loadedBanner)
	b.WriteString("\n\nSummary:\n")
	b.WriteString(ensureNewline(r.Summary))
	b.WriteString("\nMissing Values:\n")
	b.WriteString(ensureNewline(r.Missing))
	b.WriteString("\nAI-Generated Insights:\n")
	b.WriteString(ensureNewline(r.Insight))
	if len(r.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range r.Warnings {
			b.WriteString(fmt.Sprintf("⚠ %s\n", w))
		}
	}
	if len(r.Images) > 0 {
		b.WriteString("\nCharts:\n")
		for _, p := range r.Images {
			b.WriteString("- " + p + "\n")
		}
	}
	return b.String()
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
