package prices

import (
	"context"
	"fmt"
)

// Source supplies the full price table. Implementations are read-only and safe for
// concurrent use.
type Source interface {
	Load(ctx context.Context) (*Table, error)
}

// SymbolLoader is implemented by sources that can fetch just the requested symbols
// instead of the whole table.
type SymbolLoader interface {
	LoadSymbols(ctx context.Context, symbols []string) (*Table, error)
}

// Resolve returns the part of src's table covering symbols. Symbols the source does
// not know are absent from the result.
func Resolve(ctx context.Context, src Source, symbols []string) (*Table, error) {
	if sl, ok := src.(SymbolLoader); ok {
		t, err := sl.LoadSymbols(ctx, symbols)
		if err != nil {
			return nil, fmt.Errorf("load prices for %d symbols: %w", len(symbols), err)
		}
		return t.Subset(symbols), nil
	}
	t, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	return t.Subset(symbols), nil
}
