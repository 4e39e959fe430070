package catalog

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultFetchTimeout = 20 * time.Second

// State is the lifecycle stage of a FetchUnit.
type State int

const (
	StatePending State = iota
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return "pending"
	}
}

// FetchUnit is the single shared product-list fetch. It settles exactly once
// and every holder observes the same outcome.
type FetchUnit struct {
	done     chan struct{}
	products []Product
	err      *FetchError
}

func newFetchUnit() *FetchUnit {
	return &FetchUnit{done: make(chan struct{})}
}

func (u *FetchUnit) settle(products []Product, err *FetchError) {
	u.products = products
	u.err = err
	close(u.done)
}

// Done is closed once the unit has resolved or failed.
func (u *FetchUnit) Done() <-chan struct{} { return u.done }

func (u *FetchUnit) State() State {
	select {
	case <-u.done:
		if u.err != nil {
			return StateFailed
		}
		return StateResolved
	default:
		return StatePending
	}
}

// Poll returns the outcome without blocking; settled is false while pending.
func (u *FetchUnit) Poll() (products []Product, err error, settled bool) {
	select {
	case <-u.done:
		p, e := u.result()
		return p, e, true
	default:
		return nil, nil, false
	}
}

// Wait blocks until the unit settles or ctx ends. Cancelling ctx only stops
// this caller from waiting; the fetch itself keeps running.
func (u *FetchUnit) Wait(ctx context.Context) ([]Product, error) {
	select {
	case <-u.done:
		return u.result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (u *FetchUnit) result() ([]Product, error) {
	if u.err != nil {
		return nil, u.err
	}
	return slices.Clone(u.products), nil
}

// Cache memoizes one FetchUnit. It is never invalidated; a failed fetch is
// not retried. Build a new Cache to fetch again.
type Cache struct {
	source  Source
	timeout time.Duration
	log     zerolog.Logger
	now     func() time.Time

	mu   sync.Mutex
	unit *FetchUnit
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithFetchTimeout bounds the shared fetch.
func WithFetchTimeout(d time.Duration) CacheOption {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCacheLogger routes fetch lifecycle events to log.
func WithCacheLogger(log zerolog.Logger) CacheOption {
	return func(c *Cache) { c.log = log }
}

func NewCache(source Source, opts ...CacheOption) *Cache {
	c := &Cache{source: source, timeout: defaultFetchTimeout, log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCreate returns the shared unit, starting the fetch on first use.
func (c *Cache) GetOrCreate() *FetchUnit {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unit != nil {
		return c.unit
	}
	c.unit = newFetchUnit()
	go c.run(c.unit)
	return c.unit
}

// Products waits on the shared unit.
func (c *Cache) Products(ctx context.Context) ([]Product, error) {
	return c.GetOrCreate().Wait(ctx)
}

// Started reports whether the fetch has been initiated.
func (c *Cache) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unit != nil
}

func (c *Cache) run(unit *FetchUnit) {
	started := c.now()
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	var (
		products []Product
		fetchErr *FetchError
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				fetchErr = &FetchError{Op: OpRequest, Err: panicError{value: r}}
			}
		}()
		var err error
		products, err = c.source.FetchProducts(ctx)
		fetchErr = asFetchError(err)
	}()

	elapsed := c.now().Sub(started)
	if fetchErr != nil {
		c.log.Error().Str("event", "products_fetch_failed").Str("op", fetchErr.Op).Dur("duration", elapsed).Err(fetchErr).Msg("product list fetch failed")
		unit.settle(nil, fetchErr)
		return
	}
	c.log.Info().Str("event", "products_fetched").Int("count", len(products)).Dur("duration", elapsed).Msg("product list cached")
	unit.settle(products, nil)
}

type panicError struct{ value any }

func (p panicError) Error() string { return "product source panicked" }
