// Package sched contains the scheduler-side half of message delivery. The bus
// never blocks; a receiver that wants to wait polls its inbox and gives up the
// CPU between attempts.
package sched

import (
	"context"

	"github.com/codyd51/axle-sub001/kernel/amc"
)

// Yielder gives up the CPU until the caller is worth running again. Yield
// returns an error when the wait should be abandoned.
type Yielder interface {
	Yield(ctx context.Context) error
}

// YieldFunc adapts a plain function to the Yielder interface.
type YieldFunc func(ctx context.Context) error

// Yield calls fn(ctx).
func (fn YieldFunc) Yield(ctx context.Context) error { return fn(ctx) }

// Selector is the part of the message bus a waiting receiver needs.
type Selector interface {
	Select(service string, f amc.Filter) (*amc.Message, bool)
}

// AwaitMessage blocks until a message accepted by f is queued for service and
// returns it. Between unsuccessful polls it yields through y. The wait ends
// early if ctx is done or y returns an error.
func AwaitMessage(ctx context.Context, sel Selector, service string, f amc.Filter, y Yielder) (*amc.Message, error) {
	for {
		if m, ok := sel.Select(service, f); ok {
			return m, nil
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := y.Yield(ctx); err != nil {
			return nil, err
		}
	}
}

// AwaitEvent waits for a message from any of sources whose event tag equals
// event. An empty source list accepts every sender.
func AwaitEvent(ctx context.Context, sel Selector, service string, event uint32, y Yielder, sources ...string) (*amc.Message, error) {
	return AwaitMessage(ctx, sel, service, amc.FromSources(sources...).WithEvent(event), y)
}
