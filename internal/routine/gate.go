package routine

import (
	"context"
	"time"

	"routined/internal/storage"
	logx "routined/pkg/logx"
)

// submit is the last stop before the Submitter. Batches are discarded on a
// day off or when the admission predicate says no; they are not retried
// later that day.
func (r *Runner) submit(ctx context.Context, tasks []Task) {
	if len(tasks) == 0 {
		return
	}
	now := r.clock.Now().In(r.loc)
	day := now.Format(dateLayout)

	if r.IsDayOff(now) {
		r.suppressed.Add(uint64(len(tasks)))
		r.log.Info("day off, not submitting tasks", logx.String("day", day), logx.Strings("tasks", taskNames(tasks)))
		r.audit(ctx, now, day, tasks, storage.OutcomeDayOff, nil)
		r.publish(EventSuppressed, BatchEvent{Day: day, Tasks: taskNames(tasks), Reason: "day_off"})
		return
	}
	if !r.allowed() {
		r.suppressed.Add(uint64(len(tasks)))
		if r.warn.Allow("not_allowed") {
			r.log.Warn("tasks not allowed, discarding", logx.String("day", day), logx.Strings("tasks", taskNames(tasks)))
		}
		r.audit(ctx, now, day, tasks, storage.OutcomeNotAllowed, nil)
		r.publish(EventSuppressed, BatchEvent{Day: day, Tasks: taskNames(tasks), Reason: "not_allowed"})
		return
	}

	tasks = r.withoutDuplicates(ctx, now, day, tasks)
	if len(tasks) == 0 {
		return
	}

	if err := r.sub.Submit(ctx, tasks); err != nil {
		r.failed.Add(uint64(len(tasks)))
		if r.warn.Allow("submit") {
			r.log.Warn("submit failed", logx.Strings("tasks", taskNames(tasks)), logx.Err(err))
		}
		r.audit(ctx, now, day, tasks, storage.OutcomeFailed, err)
		r.publish(EventSubmitFailed, BatchEvent{Day: day, Tasks: taskNames(tasks), Err: err.Error()})
		return
	}

	r.submitted.Add(uint64(len(tasks)))
	r.log.Info("tasks submitted", logx.String("day", day), logx.Strings("tasks", taskNames(tasks)))
	r.remember(ctx, now, day, tasks)
	r.audit(ctx, now, day, tasks, storage.OutcomeSubmitted, nil)
	r.publish(EventSubmitted, BatchEvent{Day: day, Tasks: taskNames(tasks)})
}

func dedupKey(day, entryKey string) string { return day + "|" + entryKey }

// withoutDuplicates drops tasks already submitted today according to the
// store. Lookup errors keep the task.
func (r *Runner) withoutDuplicates(ctx context.Context, now time.Time, day string, tasks []Task) []Task {
	if r.store == nil {
		return tasks
	}
	out := tasks[:0:0]
	var dups []Task
	for _, t := range tasks {
		if t.EntryKey == "" {
			out = append(out, t)
			continue
		}
		_, ok, err := r.store.GetDedup(ctx, dedupKey(day, t.EntryKey))
		if err != nil {
			if r.warn.Allow("dedup") {
				r.log.Warn("dedup lookup failed", logx.String("task", t.Name), logx.Err(err))
			}
			out = append(out, t)
			continue
		}
		if ok {
			dups = append(dups, t)
			continue
		}
		out = append(out, t)
	}
	if len(dups) > 0 {
		r.duplicates.Add(uint64(len(dups)))
		r.log.Info("tasks already submitted today, skipping", logx.String("day", day), logx.Strings("tasks", taskNames(dups)))
		r.audit(ctx, now, day, dups, storage.OutcomeDuplicate, nil)
	}
	return out
}

// remember records submitted entries until the next day boundary.
func (r *Runner) remember(ctx context.Context, now time.Time, day string, tasks []Task) {
	if r.store == nil {
		return
	}
	until := nextMidnight(now)
	for _, t := range tasks {
		if t.EntryKey == "" {
			continue
		}
		if err := r.store.PutDedup(ctx, dedupKey(day, t.EntryKey), until); err != nil && r.warn.Allow("dedup") {
			r.log.Warn("dedup write failed", logx.String("task", t.Name), logx.Err(err))
		}
	}
}

func (r *Runner) audit(ctx context.Context, now time.Time, day string, tasks []Task, outcome storage.Outcome, err error) {
	if r.store == nil {
		return
	}
	var msg string
	if err != nil {
		msg = err.Error()
	}
	for _, t := range tasks {
		rec := storage.SubmissionRecord{
			At:         now,
			Day:        day,
			EntryKey:   t.EntryKey,
			TaskID:     t.ID,
			Name:       t.Name,
			Action:     t.Action,
			StartAfter: t.StartAfter,
			EndBefore:  t.EndBefore,
			Outcome:    outcome,
			Error:      msg,
		}
		if aerr := r.store.AppendSubmission(ctx, rec); aerr != nil && r.warn.Allow("audit") {
			r.log.Warn("submission audit failed", logx.String("task", t.Name), logx.Err(aerr))
		}
	}
}
