package events

import "time"

// GraphQLStart is emitted before executing a GraphQL operation.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after executing a GraphQL operation.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Errors        []error
	Duration      time.Duration
}

// SchemaBuild is emitted after a schema build attempt. Err is nil when the
// build succeeded.
type SchemaBuild struct {
	Types    int
	Err      error
	Duration time.Duration
}

// SubscriptionEvent is emitted for every event a subscription delivers.
type SubscriptionEvent struct {
	OperationName string
	Errors        []error
	Duration      time.Duration
}
