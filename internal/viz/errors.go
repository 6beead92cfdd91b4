package viz

import "fmt"

// VisualizationError reports a chart that could not be rendered. It never
// aborts a run; the chart is skipped.
type VisualizationError struct {
	Kind  ChartKind
	Title string
	Err   error
}

func (e *VisualizationError) Error() string {
	return fmt.Sprintf("render %s %q: %v", e.Kind, e.Title, e.Err)
}

func (e *VisualizationError) Unwrap() error { return e.Err }
