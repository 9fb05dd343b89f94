package rx

import "sync"

// SubscriberConfig holds the callbacks of a CallbackSubscriber. Nil
// callbacks are skipped.
type SubscriberConfig struct {
	OnNext     func(v any)
	OnError    func(err error)
	OnComplete func()
}

// CallbackSubscriber requests one value at a time: one on subscribe and one
// more after each OnNext callback returns.
type CallbackSubscriber struct {
	cfg SubscriberConfig

	mu           sync.Mutex
	subscription Subscription
	cancelled    bool
	done         chan struct{}
	closeOnce    sync.Once
}

var _ Subscriber = (*CallbackSubscriber)(nil)

func NewSubscriber(cfg SubscriberConfig) *CallbackSubscriber {
	return &CallbackSubscriber{cfg: cfg, done: make(chan struct{})}
}

func (s *CallbackSubscriber) OnSubscribe(sub Subscription) {
	s.mu.Lock()
	if s.subscription != nil || s.cancelled {
		s.mu.Unlock()
		sub.Cancel()
		return
	}
	s.subscription = sub
	s.mu.Unlock()
	sub.Request(1)
}

func (s *CallbackSubscriber) OnNext(v any) {
	s.mu.Lock()
	sub, cancelled := s.subscription, s.cancelled
	s.mu.Unlock()
	if cancelled {
		return
	}
	if s.cfg.OnNext != nil {
		s.cfg.OnNext(v)
	}
	if sub != nil {
		sub.Request(1)
	}
}

func (s *CallbackSubscriber) OnError(err error) {
	if s.cfg.OnError != nil {
		s.cfg.OnError(err)
	}
	s.finish()
}

func (s *CallbackSubscriber) OnComplete() {
	if s.cfg.OnComplete != nil {
		s.cfg.OnComplete()
	}
	s.finish()
}

// Cancel detaches the subscriber from its publisher.
func (s *CallbackSubscriber) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	sub := s.subscription
	s.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
	s.finish()
}

// Done is closed once the subscriber terminates or is cancelled.
func (s *CallbackSubscriber) Done() <-chan struct{} {
	return s.done
}

func (s *CallbackSubscriber) finish() {
	s.closeOnce.Do(func() { close(s.done) })
}
