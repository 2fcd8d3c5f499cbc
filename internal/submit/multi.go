package submit

import (
	"context"

	"routined/internal/routine"
)

// Multi submits every batch to each submitter in order. All submitters are
// tried; the first error is returned.
type Multi []routine.Submitter

func (m Multi) Submit(ctx context.Context, tasks []routine.Task) error {
	var first error
	for _, s := range m {
		if err := s.Submit(ctx, tasks); err != nil && first == nil {
			first = err
		}
	}
	return first
}
