package bridge

import (
	"context"
	"errors"
	"fmt"
)

// ImportClearer is the backend clear-imports endpoint.
type ImportClearer interface {
	ClearImports(ctx context.Context) error
}

type clearer interface {
	Clear(ctx context.Context) error
}

// Resetter returns the integration to first-run state.
type Resetter struct {
	backend ImportClearer
	cursor  clearer
	dedup   clearer
}

// NewResetter constructs a Resetter.
func NewResetter(backend ImportClearer, cursor, dedup clearer) *Resetter {
	return &Resetter{backend: backend, cursor: cursor, dedup: dedup}
}

// Reset clears backend imports and the local cursor and dedup cache. Local state is
// cleared even when the backend call fails; all failures are returned joined.
func (r *Resetter) Reset(ctx context.Context) error {
	var errs []error
	if err := r.backend.ClearImports(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear backend imports: %w", err))
	}
	if err := r.cursor.Clear(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear cursor: %w", err))
	}
	if err := r.dedup.Clear(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear export cache: %w", err))
	}
	return errors.Join(errs...)
}
