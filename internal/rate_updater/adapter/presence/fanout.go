// Package presence combines label publishers.
package presence

import (
	"context"
	"errors"
)

type Publisher interface {
	Publish(ctx context.Context, label string) error
}

// Fanout hands a label to every publisher, even after one of them fails.
type Fanout []Publisher

func NewFanout(publishers ...Publisher) Fanout {
	f := make(Fanout, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			f = append(f, p)
		}
	}
	return f
}

func (f Fanout) Publish(ctx context.Context, label string) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, label); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
