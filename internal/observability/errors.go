package observability

import (
	"errors"
	"fmt"
)

// AggregateErrors collapses the per-pool failures of a multi-pool operation
// into one error. Nil entries are skipped; when every pool succeeded the
// result is nil. Otherwise a single structured log entry names the operation
// and the failing pools, and the returned error joins the originals so
// errors.Is still matches each one.
func AggregateErrors(operation string, poolErrs []error, fields ...Field) error {
	failures := make([]error, 0, len(poolErrs))
	rendered := make([]string, 0, len(poolErrs))
	for _, err := range poolErrs {
		if err == nil {
			continue
		}
		failures = append(failures, err)
		rendered = append(rendered, err.Error())
	}
	if len(failures) == 0 {
		return nil
	}
	logFields := append(fields,
		Field{Key: "operation", Value: operation},
		Field{Key: "failed_pools", Value: len(failures)},
		Field{Key: "errors", Value: rendered},
	)
	Log().Error("pool operation reported errors", logFields...)
	return fmt.Errorf("%s: %w", operation, errors.Join(failures...))
}
