package learning

import "github.com/nvandessel/silicon/internal/models"

// DefaultQueueCapacity bounds the deferred event queue.
const DefaultQueueCapacity = 65536

// DeferredQueue is a bounded FIFO of STDP events waiting for a reward.
// When full, pushing evicts the oldest event and counts it as dropped.
//
// DeferredQueue is not safe for concurrent use; the simulator serializes
// access.
type DeferredQueue struct {
	buf     []models.DeferredStdpEvent
	head    int
	size    int
	dropped uint64
}

// NewDeferredQueue creates a queue holding at most capacity events. A
// non-positive capacity uses DefaultQueueCapacity.
func NewDeferredQueue(capacity int) *DeferredQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &DeferredQueue{buf: make([]models.DeferredStdpEvent, capacity)}
}

// Push appends ev, evicting the oldest event when full.
func (q *DeferredQueue) Push(ev models.DeferredStdpEvent) {
	if q.size == len(q.buf) {
		q.buf[q.head] = ev
		q.head = (q.head + 1) % len(q.buf)
		q.dropped++
		return
	}
	q.buf[(q.head+q.size)%len(q.buf)] = ev
	q.size++
}

// Drain removes and returns every queued event, oldest first.
func (q *DeferredQueue) Drain() []models.DeferredStdpEvent {
	out := make([]models.DeferredStdpEvent, q.size)
	for i := range out {
		out[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.head, q.size = 0, 0
	return out
}

// Len returns the number of queued events.
func (q *DeferredQueue) Len() int { return q.size }

// Cap returns the queue capacity.
func (q *DeferredQueue) Cap() int { return len(q.buf) }

// Dropped returns how many events were evicted since creation.
func (q *DeferredQueue) Dropped() uint64 { return q.dropped }
