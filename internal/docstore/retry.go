package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/s/campus/internal/logger"
)

type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxTries: 3, InitialInterval: 100 * time.Millisecond, MaxInterval: 2 * time.Second}
}

type retryStore struct {
	Store
	policy RetryPolicy
	log    *logger.Logger
}

// WithRetry retries transient failures of the idempotent operations with exponential
// backoff. ClaimField is passed through untouched: a claim that succeeded but whose
// reply was lost must not be replayed.
func WithRetry(s Store, policy RetryPolicy, log *logger.Logger) Store {
	if policy.MaxTries <= 1 {
		return s
	}
	return &retryStore{Store: s, policy: policy, log: log.With("component", "docstore.retry")}
}

func (r *retryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	return retry(ctx, r, "get", func() (Document, error) {
		return r.Store.Get(ctx, collection, id)
	})
}

func (r *retryStore) List(ctx context.Context, collection string) ([]Entry, error) {
	return retry(ctx, r, "list", func() ([]Entry, error) {
		return r.Store.List(ctx, collection)
	})
}

func (r *retryStore) Put(ctx context.Context, collection, id string, doc Document) error {
	_, err := retry(ctx, r, "put", func() (struct{}, error) {
		return struct{}{}, r.Store.Put(ctx, collection, id, doc)
	})
	return err
}

func (r *retryStore) SetFields(ctx context.Context, collection, id string, fields map[string]any) error {
	_, err := retry(ctx, r, "set", func() (struct{}, error) {
		return struct{}{}, r.Store.SetFields(ctx, collection, id, fields)
	})
	return err
}

func (r *retryStore) AddToSet(ctx context.Context, collection, id, path string, value any) error {
	_, err := retry(ctx, r, "addToSet", func() (struct{}, error) {
		return struct{}{}, r.Store.AddToSet(ctx, collection, id, path, value)
	})
	return err
}

func retry[T any](ctx context.Context, r *retryStore, op string, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialInterval
	b.MaxInterval = r.policy.MaxInterval

	return backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		if err != nil && !transient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.policy.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.log.Warn("store operation failed, retrying", "op", op, "error", err, "backoff", next)
		}),
	)
}

func transient(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidPath),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
