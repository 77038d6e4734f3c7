package entities

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("entity not found")
	ErrFetch        = errors.New("rate fetch failed")
	ErrStore        = errors.New("rate store failed")
	ErrPublish      = errors.New("presence publish failed")
	ErrNegativeRate = errors.New("rate must not be negative")
)

// Mark tags err with kind so that errors.Is(err, kind) holds and the cause is kept.
func Mark(kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
