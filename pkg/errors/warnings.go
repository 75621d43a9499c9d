// Warning machinery for conditions that are worth surfacing but must not
// fail the computation, such as an ill-defined metric falling back to its
// documented value.

package errors

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rs/zerolog"
)

var (
	warningMu sync.Mutex

	// warningHandler receives every warning. The default logs through
	// slog so warnings land in the same JSON stream as everything else.
	warningHandler = func(w error) {
		slog.Warn("pipeline warning", slog.String("warning", w.Error()))
	}
)

// SetWarningHandler replaces the global warning handler, e.g. to capture
// warnings in tests or to silence them. A nil handler drops warnings.
func SetWarningHandler(handler func(w error)) {
	warningMu.Lock()
	defer warningMu.Unlock()
	warningHandler = handler
}

// Warn raises a warning through the installed handler.
func Warn(w error) {
	warningMu.Lock()
	handler := warningHandler
	warningMu.Unlock()
	if handler != nil {
		handler(w)
	}
}

// UndefinedMetricWarning is raised when a metric is ill-defined on its
// input and a documented fallback value is returned instead, e.g. the
// area under a ROC curve when the truth labels hold a single class.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("%q is ill-defined and set to %g: %s", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject adds the structured fields to a zerolog event.
func (w *UndefinedMetricWarning) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning creates an UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}
