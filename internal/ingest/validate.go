package ingest

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
)

const maxBatchSize = 10000

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// Validate checks that ev carries what its Op needs.
func Validate(ev *Event) error {
	errs := make(map[string]string)
	switch ev.Op {
	case OpUpdate:
		if strings.TrimSpace(ev.Model) == "" {
			errs["model"] = "model is required"
		}
		if len(ev.Fields) == 0 {
			errs["fields"] = "update needs the model's field definitions"
		}
		if len(ev.Documents) > maxBatchSize {
			errs["documents"] = fmt.Sprintf("at most %d documents per event", maxBatchSize)
		}
		for i, d := range ev.Documents {
			if d.PK == "" {
				errs[fmt.Sprintf("documents[%d].pk", i)] = "pk is required"
			}
		}
	case OpRemove:
		if strings.TrimSpace(ev.Model) == "" {
			errs["model"] = "model is required"
		}
		if ev.PK == "" {
			errs["pk"] = "pk is required"
		}
	case OpClear:
	default:
		errs["op"] = fmt.Sprintf("unknown op %q", ev.Op)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
