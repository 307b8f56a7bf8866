package observation

import "sync"

// Flushable is a pending target write.
type Flushable interface {
	Flush(flags LifecycleFlags)
}

// Lifecycle batches target writes. Accessors write immediately when they
// have no Lifecycle or when the write carries FromBind.
type Lifecycle interface {
	EnqueueFlush(f Flushable)
}

// Queue is a Lifecycle that holds writes until ProcessFlushQueue. A
// Flushable queued twice before processing is flushed once.
type Queue struct {
	mu      sync.Mutex
	pending []Flushable
	queued  map[Flushable]struct{}
}

func NewQueue() *Queue {
	return &Queue{queued: make(map[Flushable]struct{})}
}

func (q *Queue) EnqueueFlush(f Flushable) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.queued[f]; ok {
		return
	}
	q.queued[f] = struct{}{}
	q.pending = append(q.pending, f)
}

// Pending returns the number of queued writes.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// ProcessFlushQueue flushes everything queued, including writes queued by
// the flushes themselves, with flags|FromFlush. It returns the number of
// flushes performed.
func (q *Queue) ProcessFlushQueue(flags LifecycleFlags) int {
	n := 0
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		q.queued = make(map[Flushable]struct{})
		q.mu.Unlock()

		if len(batch) == 0 {
			return n
		}
		for _, f := range batch {
			f.Flush(flags | FromFlush)
			n++
		}
	}
}
