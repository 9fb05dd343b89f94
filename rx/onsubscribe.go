package rx

import "sync"

// Emitter pushes signals to the subscriber of an OnSubscribePublisher. Calls
// after a terminal signal or cancellation are ignored.
type Emitter interface {
	Next(v any)
	Error(err error)
	Complete()
	// Cancelled reports whether the subscriber has cancelled.
	Cancelled() bool
}

type OnSubscribeConfig struct {
	// OnSubscribe runs once a subscriber attaches.
	OnSubscribe func(e Emitter)
	// OnCancel runs when the subscriber cancels.
	OnCancel func()
}

// OnSubscribePublisher is a cold publisher that produces values only once a
// subscriber is attached. It accepts a single subscriber.
type OnSubscribePublisher struct {
	cfg OnSubscribeConfig

	mu         sync.Mutex
	subscribed bool
}

var _ Publisher = (*OnSubscribePublisher)(nil)

func NewOnSubscribePublisher(cfg OnSubscribeConfig) *OnSubscribePublisher {
	return &OnSubscribePublisher{cfg: cfg}
}

func (p *OnSubscribePublisher) Subscribe(s Subscriber) {
	p.mu.Lock()
	taken := p.subscribed
	p.subscribed = true
	p.mu.Unlock()
	if taken {
		s.OnSubscribe(emptySubscription{})
		s.OnError(ErrAlreadySubscribed)
		return
	}

	q := newQueue(s, p.cfg.OnCancel)
	s.OnSubscribe(q)
	go q.run()
	if p.cfg.OnSubscribe != nil {
		p.cfg.OnSubscribe(emitter{q})
	}
}

type emitter struct{ q *queue }

func (e emitter) Next(v any)      { e.q.push(v) }
func (e emitter) Error(err error) { e.q.terminate(err) }
func (e emitter) Complete()       { e.q.terminate(nil) }
func (e emitter) Cancelled() bool { return e.q.isCancelled() }
