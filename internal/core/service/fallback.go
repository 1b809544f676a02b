package service

import (
	"context"
	"errors"
	"fmt"
)

// Attempt is one candidate operation in an ordered fallback list.
type Attempt[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

type FallbackResult[T any] struct {
	Value T
	// Used names the attempt that produced Value.
	Used string
	// Skipped joins the errors of the attempts tried before Used.
	Skipped error
}

// FirstSuccess runs attempts in order and stops at the first success. When
// every attempt fails the joined errors are returned.
func FirstSuccess[T any](ctx context.Context, attempts ...Attempt[T]) (FallbackResult[T], error) {
	var errs []error
	for _, a := range attempts {
		if err := ctx.Err(); err != nil {
			return FallbackResult[T]{}, err
		}
		v, err := a.Run(ctx)
		if err == nil {
			return FallbackResult[T]{Value: v, Used: a.Name, Skipped: errors.Join(errs...)}, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", a.Name, err))
	}
	if len(errs) == 0 {
		return FallbackResult[T]{}, errors.New("no attempts given")
	}
	return FallbackResult[T]{}, errors.Join(errs...)
}
