package rx

import (
	"math"
	"sync"
)

// queue buffers the signals bound for one subscriber and drains them from a
// dedicated goroutine as demand allows. Terminal signals are delivered after
// every buffered value, regardless of demand.
type queue struct {
	subscriber Subscriber

	mutex sync.Mutex
	cond  *sync.Cond

	items      []any
	demand     int64
	terminated bool
	err        error
	cancelled  bool

	onCancel func()
}

func newQueue(s Subscriber, onCancel func()) *queue {
	q := &queue{subscriber: s, onCancel: onCancel}
	q.cond = sync.NewCond(&q.mutex)
	return q
}

// push appends v unless the queue was terminated or cancelled.
func (q *queue) push(v any) {
	q.mutex.Lock()
	if !q.terminated && !q.cancelled {
		q.items = append(q.items, v)
		q.cond.Signal()
	}
	q.mutex.Unlock()
}

// terminate records the terminal signal. Only the first call counts.
func (q *queue) terminate(err error) {
	q.mutex.Lock()
	if !q.terminated {
		q.terminated = true
		q.err = err
		q.cond.Signal()
	}
	q.mutex.Unlock()
}

func (q *queue) isCancelled() bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.cancelled
}

// Request implements Subscription.
func (q *queue) Request(n int64) {
	if n <= 0 {
		return
	}
	q.mutex.Lock()
	if q.demand > math.MaxInt64-n {
		q.demand = math.MaxInt64
	} else {
		q.demand += n
	}
	q.cond.Signal()
	q.mutex.Unlock()
}

// Cancel implements Subscription.
func (q *queue) Cancel() {
	q.mutex.Lock()
	if q.cancelled {
		q.mutex.Unlock()
		return
	}
	q.cancelled = true
	q.items = nil
	q.cond.Signal()
	onCancel := q.onCancel
	q.mutex.Unlock()

	if onCancel != nil {
		onCancel()
	}
}

// run delivers signals until the queue terminates or is cancelled.
func (q *queue) run() {
	for {
		q.mutex.Lock()
		for !q.cancelled && !(len(q.items) > 0 && q.demand > 0) && !(len(q.items) == 0 && q.terminated) {
			q.cond.Wait()
		}
		if q.cancelled {
			q.mutex.Unlock()
			return
		}
		if len(q.items) == 0 {
			err := q.err
			q.mutex.Unlock()
			if err != nil {
				q.subscriber.OnError(err)
			} else {
				q.subscriber.OnComplete()
			}
			return
		}
		v := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		if q.demand != math.MaxInt64 {
			q.demand--
		}
		q.mutex.Unlock()

		q.subscriber.OnNext(v)
	}
}
