package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// ErrStoreUnavailable is returned while the circuit is open.
var ErrStoreUnavailable = errors.New("object store unavailable")

// BreakerStore wraps an ObjectStore with a circuit breaker so a storage
// outage fails fast instead of stalling a long batch run on every object.
type BreakerStore struct {
	inner   ObjectStore
	breaker *circuit.Breaker
}

// NewBreakerStore creates a circuit breaker wrapper for an object store.
// The circuit trips after 5 consecutive failures and recovers with
// exponential backoff. Absence is not a failure.
func NewBreakerStore(inner ObjectStore) *BreakerStore {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	opts := &circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	}

	return &BreakerStore{
		inner:   inner,
		breaker: circuit.NewBreakerWithOptions(opts),
	}
}

// call runs op through the breaker. ErrNotFound passes through without
// counting against the trip threshold.
func (b *BreakerStore) call(op func() error) error {
	if !b.breaker.Ready() {
		return fmt.Errorf("circuit breaker open: %w", ErrStoreUnavailable)
	}

	var opErr error
	err := b.breaker.Call(func() error {
		opErr = op()
		if errors.Is(opErr, ErrNotFound) {
			return nil
		}
		return opErr
	}, 0)
	if err != nil {
		return err
	}
	return opErr
}

func (b *BreakerStore) List(ctx context.Context, prefix, delimiter string) (*Listing, error) {
	var listing *Listing
	err := b.call(func() error {
		var callErr error
		listing, callErr = b.inner.List(ctx, prefix, delimiter)
		return callErr
	})
	return listing, err
}

func (b *BreakerStore) Head(ctx context.Context, key string) (*Object, bool, error) {
	var (
		obj   *Object
		found bool
	)
	err := b.call(func() error {
		var callErr error
		obj, found, callErr = b.inner.Head(ctx, key)
		return callErr
	})
	return obj, found, err
}

func (b *BreakerStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := b.call(func() error {
		var callErr error
		body, callErr = b.inner.Get(ctx, key)
		return callErr
	})
	return body, err
}

func (b *BreakerStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	var etag string
	err := b.call(func() error {
		var callErr error
		etag, callErr = b.inner.Put(ctx, key, contentType, body)
		return callErr
	})
	return etag, err
}

// Tripped reports whether the circuit is currently open.
func (b *BreakerStore) Tripped() bool {
	return b.breaker.Tripped()
}
