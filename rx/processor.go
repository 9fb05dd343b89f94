package rx

import (
	"math"
	"sync"
)

// PublishProcessor is a Subscriber that multicasts every value it receives
// to its current subscribers. Values pushed before a subscriber attaches are
// not replayed; a subscriber attaching after termination receives only the
// terminal signal.
type PublishProcessor struct {
	mu          sync.Mutex
	subscribers map[*queue]struct{}
	terminated  bool
	err         error
}

var (
	_ Publisher  = (*PublishProcessor)(nil)
	_ Subscriber = (*PublishProcessor)(nil)
)

func NewPublishProcessor() *PublishProcessor {
	return &PublishProcessor{subscribers: make(map[*queue]struct{})}
}

// OnSubscribe requests everything from an upstream the processor is
// subscribed to.
func (p *PublishProcessor) OnSubscribe(s Subscription) {
	p.mu.Lock()
	terminated := p.terminated
	p.mu.Unlock()
	if terminated {
		s.Cancel()
		return
	}
	s.Request(math.MaxInt64)
}

// OnNext hands v to every subscriber. It is dropped after termination.
func (p *PublishProcessor) OnNext(v any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminated {
		return
	}
	for q := range p.subscribers {
		q.push(v)
	}
}

func (p *PublishProcessor) OnError(err error) {
	p.terminate(err)
}

func (p *PublishProcessor) OnComplete() {
	p.terminate(nil)
}

func (p *PublishProcessor) terminate(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminated {
		return
	}
	p.terminated = true
	p.err = err
	for q := range p.subscribers {
		q.terminate(err)
	}
	clear(p.subscribers)
}

func (p *PublishProcessor) Subscribe(s Subscriber) {
	var q *queue
	q = newQueue(s, func() { p.remove(q) })

	p.mu.Lock()
	if p.terminated {
		q.terminate(p.err)
	} else {
		p.subscribers[q] = struct{}{}
	}
	p.mu.Unlock()

	s.OnSubscribe(q)
	go q.run()
}

func (p *PublishProcessor) remove(q *queue) {
	p.mu.Lock()
	delete(p.subscribers, q)
	p.mu.Unlock()
}

// HasSubscribers reports whether any subscriber is attached.
func (p *PublishProcessor) HasSubscribers() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subscribers) > 0
}

// Filter returns a publisher of the values satisfying pred.
func (p *PublishProcessor) Filter(pred func(v any) bool) Publisher {
	return Filter(p, pred)
}
