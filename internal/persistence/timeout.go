package persistence

import (
	"context"
	"time"
)

// WithTimeout bounds every slot operation so a stuck backend cannot hang a request.
// A non-positive timeout returns slots unchanged.
func WithTimeout(slots SlotStore, timeout time.Duration) SlotStore {
	if timeout <= 0 {
		return slots
	}
	return timeoutSlots{inner: slots, timeout: timeout}
}

type timeoutSlots struct {
	inner   SlotStore
	timeout time.Duration
}

func (t timeoutSlots) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Get(ctx, key)
}

func (t timeoutSlots) Put(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Put(ctx, key, value)
}

func (t timeoutSlots) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Delete(ctx, key)
}
