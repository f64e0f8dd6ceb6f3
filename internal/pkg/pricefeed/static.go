package pricefeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paycrow/paycrow-backend-go/internal/domain/oracle"
)

// Static serves fixed rates from memory. Used in development mode and in
// tests that need deterministic conversions.
type Static struct {
	mu    sync.RWMutex
	rates map[oracle.Pair]oracle.Rate
}

// NewStatic creates a source preloaded with the given rates; UpdatedAt is
// refreshed to now on every read so the staleness check always passes.
func NewStatic(rates map[oracle.Pair]oracle.Rate) *Static {
	cp := make(map[oracle.Pair]oracle.Rate, len(rates))
	for k, v := range rates {
		cp[k] = v
	}
	return &Static{rates: cp}
}

// NewStaticDefaults returns a source with round development rates:
// 1600.00000000 USD per ETH and 1.10000000 USD per EUR.
func NewStaticDefaults() *Static {
	return NewStatic(map[oracle.Pair]oracle.Rate{
		oracle.PairETHUSD: {Value: 160000000000, Decimals: 8},
		oracle.PairEURUSD: {Value: 110000000, Decimals: 8},
	})
}

// Set replaces the rate for a pair.
func (s *Static) Set(pair oracle.Pair, rate oracle.Rate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[pair] = rate
}

// LatestRate implements oracle.RateSource.
func (s *Static) LatestRate(_ context.Context, pair oracle.Pair) (oracle.Rate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rates[pair]
	if !ok {
		return oracle.Rate{}, fmt.Errorf("%w: %s", oracle.ErrRateUnavailable, pair)
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	return r, nil
}
