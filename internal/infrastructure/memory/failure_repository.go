package memory

import (
	"context"
	"sync"

	"github.com/complaint-hub/complaint-hub/internal/domain/notification"
)

// FailureRepository is an in-memory delivery failure log.
type FailureRepository struct {
	mu       sync.Mutex
	seq      int64
	failures []*notification.DeliveryFailure
}

func NewFailureRepository() *FailureRepository {
	return &FailureRepository{}
}

func (r *FailureRepository) RecordFailure(ctx context.Context, failure *notification.DeliveryFailure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	failure.ID = r.seq
	cp := *failure
	r.failures = append(r.failures, &cp)
	return nil
}

// ListFailures returns newest first.
func (r *FailureRepository) ListFailures(ctx context.Context, limit, offset int) ([]*notification.DeliveryFailure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*notification.DeliveryFailure, 0, len(r.failures))
	for i := len(r.failures) - 1; i >= 0; i-- {
		cp := *r.failures[i]
		out = append(out, &cp)
	}
	if offset >= len(out) {
		return []*notification.DeliveryFailure{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
