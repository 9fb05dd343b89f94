// Package rx provides the small set of reactive stream primitives used to
// deliver subscription results: a hot multicast processor, a demand-driven
// subscriber and a cold single-subscriber publisher.
//
// Signals reach each subscriber from one goroutine at a time and in push
// order. A subscriber receives OnSubscribe first, then at most as many OnNext
// calls as it has requested, then at most one of OnError or OnComplete.
package rx

import (
	"errors"
)

// Publisher is a source of values.
type Publisher interface {
	Subscribe(s Subscriber)
}

// Subscriber consumes the values of a Publisher.
type Subscriber interface {
	OnSubscribe(s Subscription)
	OnNext(v any)
	OnError(err error)
	OnComplete()
}

// Subscription links one Subscriber to one Publisher.
type Subscription interface {
	// Request adds n to the number of values the subscriber is ready for.
	Request(n int64)
	// Cancel stops delivery. It is safe to call more than once.
	Cancel()
}

// ErrAlreadySubscribed is delivered to the second subscriber of a publisher
// that supports a single subscriber.
var ErrAlreadySubscribed = errors.New("rx: publisher allows only one subscriber")

type emptySubscription struct{}

func (emptySubscription) Request(int64) {}
func (emptySubscription) Cancel()       {}
