package notification

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_notification.go -package=mocks . Dispatcher,Sink,FailureRepository

import (
	"context"
)

// Dispatcher accepts facts for asynchronous delivery. Emit must not block.
type Dispatcher interface {
	Emit(fact *Fact)
}

// Sink delivers a fact to one transport.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, fact *Fact) error
}

// FailureRepository records facts that could not be delivered.
type FailureRepository interface {
	RecordFailure(ctx context.Context, failure *DeliveryFailure) error
	ListFailures(ctx context.Context, limit, offset int) ([]*DeliveryFailure, error)
}
