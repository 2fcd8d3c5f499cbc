package routine

import (
	"container/heap"
	"context"
	"sync"
	"time"

	logx "routined/pkg/logx"
)

type pendingBatch struct {
	target time.Time
	tasks  []Task
	index  int
}

// batchQueue is a min-heap of pending batches ordered by target.
type batchQueue []*pendingBatch

func (q batchQueue) Len() int           { return len(q) }
func (q batchQueue) Less(i, j int) bool { return q[i].target.Before(q[j].target) }
func (q batchQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *batchQueue) Push(x any) {
	b := x.(*pendingBatch)
	b.index = len(*q)
	*q = append(*q, b)
}

func (q *batchQueue) Pop() any {
	old := *q
	n := len(old)
	b := old[n-1]
	old[n-1] = nil
	b.index = -1
	*q = old[:n-1]
	return b
}

// dispatcher holds deferred batches until their target time and hands them
// back for reclassification. One loop serves all batches.
type dispatcher struct {
	clock Clock
	poll  time.Duration
	max   int
	log   logx.Logger
	fire  func(ctx context.Context, tasks []Task)

	mu     sync.Mutex
	q      batchQueue
	merged uint64

	wake chan struct{}
}

func newDispatcher(clock Clock, poll time.Duration, maxBatches int, log logx.Logger, fire func(ctx context.Context, tasks []Task)) *dispatcher {
	return &dispatcher{
		clock: clock,
		poll:  poll,
		max:   maxBatches,
		log:   log,
		fire:  fire,
		wake:  make(chan struct{}, 1),
	}
}

// push adds a batch. When the queue is full the batch is merged into the
// earliest pending one, whose target becomes the earlier of the two.
func (d *dispatcher) push(target time.Time, tasks []Task) {
	if len(tasks) == 0 {
		return
	}
	d.mu.Lock()
	if d.max > 0 && len(d.q) >= d.max {
		head := d.q[0]
		head.tasks = append(head.tasks, tasks...)
		if target.Before(head.target) {
			head.target = target
		}
		heap.Fix(&d.q, head.index)
		d.merged++
		d.mu.Unlock()
		d.log.Warn("dispatcher full, merged batch into earliest",
			logx.Int("tasks", len(tasks)),
			logx.Int("pending", d.max),
		)
		d.signal()
		return
	}
	heap.Push(&d.q, &pendingBatch{target: target, tasks: tasks})
	d.mu.Unlock()
	d.signal()
}

func (d *dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// due pops every batch whose target is strictly before now, the same
// comparison Classify uses for readiness. A batch due exactly at now waits
// for the next tick.
func (d *dispatcher) due(now time.Time) []*pendingBatch {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*pendingBatch
	for len(d.q) > 0 && d.q[0].target.Before(now) {
		out = append(out, heap.Pop(&d.q).(*pendingBatch))
	}
	return out
}

func (d *dispatcher) run(ctx context.Context) error {
	t := time.NewTicker(d.poll)
	defer t.Stop()
	for {
		for _, b := range d.due(d.clock.Now()) {
			d.log.Debug("deferred batch due", logx.Int("tasks", len(b.tasks)), logx.Time("target", b.target))
			d.fire(ctx, b.tasks)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		case <-d.wake:
		}
	}
}

type dispatcherStats struct {
	Batches  int
	Tasks    int
	Merged   uint64
	NextWake time.Time
}

func (d *dispatcher) stats() dispatcherStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := dispatcherStats{Batches: len(d.q), Merged: d.merged}
	for _, b := range d.q {
		st.Tasks += len(b.tasks)
	}
	if len(d.q) > 0 {
		st.NextWake = d.q[0].target
	}
	return st
}

// reset drops every pending batch and returns how many there were.
func (d *dispatcher) reset() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.q)
	d.q = nil
	return n
}
