package rx

// Map returns a publisher emitting fn(v) for every value v of source.
func Map(source Publisher, fn func(v any) any) Publisher {
	return operator{source: source, wrap: func(down Subscriber) Subscriber {
		return &mapSubscriber{down: down, fn: fn}
	}}
}

// Filter returns a publisher emitting the values of source satisfying pred.
func Filter(source Publisher, pred func(v any) bool) Publisher {
	return operator{source: source, wrap: func(down Subscriber) Subscriber {
		return &filterSubscriber{down: down, pred: pred}
	}}
}

type operator struct {
	source Publisher
	wrap   func(Subscriber) Subscriber
}

func (o operator) Subscribe(s Subscriber) {
	o.source.Subscribe(o.wrap(s))
}

type mapSubscriber struct {
	down Subscriber
	fn   func(any) any
}

func (m *mapSubscriber) OnSubscribe(s Subscription) { m.down.OnSubscribe(s) }
func (m *mapSubscriber) OnNext(v any)               { m.down.OnNext(m.fn(v)) }
func (m *mapSubscriber) OnError(err error)          { m.down.OnError(err) }
func (m *mapSubscriber) OnComplete()                { m.down.OnComplete() }

type filterSubscriber struct {
	down     Subscriber
	pred     func(any) bool
	upstream Subscription
}

func (f *filterSubscriber) OnSubscribe(s Subscription) {
	f.upstream = s
	f.down.OnSubscribe(s)
}

// OnNext forwards v when it passes, otherwise asks upstream for a
// replacement so the downstream demand is still met.
func (f *filterSubscriber) OnNext(v any) {
	if f.pred(v) {
		f.down.OnNext(v)
		return
	}
	f.upstream.Request(1)
}

func (f *filterSubscriber) OnError(err error) { f.down.OnError(err) }
func (f *filterSubscriber) OnComplete()       { f.down.OnComplete() }
