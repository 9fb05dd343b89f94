package rx

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recorder collects signals and requests one value at a time.
type recorder struct {
	mu     sync.Mutex
	values []any
	err    error
	done   bool
	*CallbackSubscriber
}

func newRecorder() *recorder {
	r := &recorder{}
	r.CallbackSubscriber = NewSubscriber(SubscriberConfig{
		OnNext: func(v any) {
			r.mu.Lock()
			r.values = append(r.values, v)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.err = err
			r.done = true
			r.mu.Unlock()
		},
		OnComplete: func() {
			r.mu.Lock()
			r.done = true
			r.mu.Unlock()
		},
	})
	return r
}

func (r *recorder) snapshot() ([]any, error, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.values...), r.err, r.done
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not terminate")
	}
}

func TestPublishProcessorFanOut(t *testing.T) {
	p := NewPublishProcessor()
	a, b := newRecorder(), newRecorder()
	p.Subscribe(a)
	p.Subscribe(b)
	require.True(t, p.HasSubscribers())

	for i := 1; i <= 5; i++ {
		p.OnNext(i)
	}
	p.OnComplete()
	p.OnNext(6)

	a.wait(t)
	b.wait(t)
	for _, r := range []*recorder{a, b} {
		values, err, done := r.snapshot()
		require.Equal(t, []any{1, 2, 3, 4, 5}, values)
		require.NoError(t, err)
		require.True(t, done)
	}
	require.False(t, p.HasSubscribers())
}

func TestPublishProcessorError(t *testing.T) {
	p := NewPublishProcessor()
	r := newRecorder()
	p.Subscribe(r)

	boom := errors.New("boom")
	p.OnNext("a")
	p.OnError(boom)
	p.OnComplete()

	r.wait(t)
	values, err, _ := r.snapshot()
	require.Equal(t, []any{"a"}, values)
	require.ErrorIs(t, err, boom)
}

func TestPublishProcessorLateSubscriber(t *testing.T) {
	p := NewPublishProcessor()
	p.OnNext(1)
	p.OnComplete()

	r := newRecorder()
	p.Subscribe(r)
	r.wait(t)
	values, err, done := r.snapshot()
	require.Empty(t, values)
	require.NoError(t, err)
	require.True(t, done)
}

func TestPublishProcessorCancel(t *testing.T) {
	p := NewPublishProcessor()
	got := make(chan any, 10)
	var sub *CallbackSubscriber
	sub = NewSubscriber(SubscriberConfig{OnNext: func(v any) {
		got <- v
		sub.Cancel()
	}})
	p.Subscribe(sub)

	p.OnNext(1)
	require.Equal(t, 1, <-got)
	require.Eventually(t, func() bool { return !p.HasSubscribers() }, time.Second, time.Millisecond)

	p.OnNext(2)
	p.OnComplete()
	select {
	case v := <-got:
		t.Fatalf("unexpected value after cancel: %v", v)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestFilterAndMap(t *testing.T) {
	p := NewPublishProcessor()
	r := newRecorder()
	even := p.Filter(func(v any) bool { return v.(int)%2 == 0 })
	Map(even, func(v any) any { return v.(int) * 10 }).Subscribe(r)

	for i := 1; i <= 6; i++ {
		p.OnNext(i)
	}
	p.OnComplete()

	r.wait(t)
	values, _, _ := r.snapshot()
	require.Equal(t, []any{20, 40, 60}, values)
}

func TestOnSubscribePublisher(t *testing.T) {
	started := make(chan struct{})
	pub := NewOnSubscribePublisher(OnSubscribeConfig{
		OnSubscribe: func(e Emitter) {
			close(started)
			e.Next("x")
			e.Next("y")
			e.Complete()
			e.Next("z")
		},
	})

	select {
	case <-started:
		t.Fatal("publisher started before a subscriber attached")
	default:
	}

	r := newRecorder()
	pub.Subscribe(r)
	r.wait(t)
	values, err, _ := r.snapshot()
	require.Equal(t, []any{"x", "y"}, values)
	require.NoError(t, err)

	second := newRecorder()
	pub.Subscribe(second)
	second.wait(t)
	_, err, _ = second.snapshot()
	require.ErrorIs(t, err, ErrAlreadySubscribed)
}

func TestOnSubscribePublisherCancel(t *testing.T) {
	cancelled := make(chan struct{})
	var emit Emitter
	pub := NewOnSubscribePublisher(OnSubscribeConfig{
		OnSubscribe: func(e Emitter) { emit = e },
		OnCancel:    func() { close(cancelled) },
	})
	r := newRecorder()
	pub.Subscribe(r)
	require.False(t, emit.Cancelled())

	r.Cancel()
	<-cancelled
	require.True(t, emit.Cancelled())
	r.Cancel()
}

func TestSubscriberRequestsOneAtATime(t *testing.T) {
	var requests []int64
	var mu sync.Mutex
	sub := NewSubscriber(SubscriberConfig{OnNext: func(any) {}})
	sub.OnSubscribe(requestRecorder(func(n int64) {
		mu.Lock()
		requests = append(requests, n)
		mu.Unlock()
	}))
	sub.OnNext(1)
	sub.OnNext(2)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int64{1, 1, 1}, requests)
}

type requestRecorder func(n int64)

func (r requestRecorder) Request(n int64) { r(n) }
func (r requestRecorder) Cancel()         {}
