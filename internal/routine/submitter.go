package routine

import "context"

//go:generate mockgen -source=submitter.go -destination=submitter_mock.go -package=routine

// Submitter hands a batch of ready tasks to the execution side.
//
// Errors are logged by the runner and never retried.
type Submitter interface {
	Submit(ctx context.Context, tasks []Task) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, tasks []Task) error

func (f SubmitterFunc) Submit(ctx context.Context, tasks []Task) error { return f(ctx, tasks) }
