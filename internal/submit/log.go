package submit

import (
	"context"

	"routined/internal/routine"
	logx "routined/pkg/logx"
)

// Log only logs what would be submitted.
type Log struct {
	log logx.Logger
}

func NewLog(log logx.Logger) *Log {
	return &Log{log: log.With(logx.String("submitter", "log"))}
}

func (l *Log) Submit(_ context.Context, tasks []routine.Task) error {
	for _, t := range tasks {
		l.log.Info("submit task",
			logx.String("task", t.Name),
			logx.String("id", t.ID),
			logx.String("action", t.Action),
			logx.Time("start_after", t.StartAfter),
			logx.Time("end_before", t.EndBefore),
			logx.Duration("max_duration", t.MaxDuration),
		)
	}
	return nil
}
