// Package acquisition resolves a symbol to its daily history and a trained model,
// falling back from the upstream to stale entries and finally to synthetic data.
package acquisition

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/repository"
	"StockCast/internal/service/cache"
	"StockCast/internal/services/model"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/queue"
	"StockCast/pkg/util"
)

type Kind int

const (
	Unavailable Kind = iota
	Resolved
	Synthetic
)

func (k Kind) String() string {
	switch k {
	case Resolved:
		return "resolved"
	case Synthetic:
		return "synthetic"
	default:
		return "unavailable"
	}
}

// Entry is a published resolution. It is never modified after publication.
type Entry struct {
	Symbol      string
	History     []models.PriceBar // newest first
	Model       *model.Model
	RefreshedAt time.Time
	Synthetic   bool
}

func (e *Entry) kind() Kind {
	if e.Synthetic {
		return Synthetic
	}
	return Resolved
}

// Result is the outcome of a resolution. Entry is nil when Kind is Unavailable.
type Result struct {
	Kind   Kind
	Entry  *Entry
	Err    error
	Reused bool
}

type Config struct {
	Freshness          time.Duration
	SyntheticFreshness time.Duration
	RateLimitBackoff   time.Duration
	SyntheticSessions  int
	SyntheticSeed      int64
	BatchSize          int
	BatchDelay         time.Duration
	Deadline           time.Duration

	// Universe symbols are always kept. Other symbols are requested ad hoc and at
	// most MaxAdHoc of them are cached; the least recently refreshed goes first.
	Universe []string
	MaxAdHoc int
}

func DefaultConfig() Config {
	return Config{
		Freshness:          24 * time.Hour,
		SyntheticFreshness: time.Hour,
		RateLimitBackoff:   60 * time.Second,
		SyntheticSessions:  100,
		SyntheticSeed:      42,
		BatchSize:          5,
		BatchDelay:         15 * time.Second,
		Deadline:           15 * time.Minute,
		MaxAdHoc:           256,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Freshness <= 0 {
		c.Freshness = d.Freshness
	}
	if c.SyntheticFreshness <= 0 {
		c.SyntheticFreshness = d.SyntheticFreshness
	}
	if c.RateLimitBackoff < 0 {
		c.RateLimitBackoff = d.RateLimitBackoff
	}
	if c.SyntheticSessions <= 0 {
		c.SyntheticSessions = d.SyntheticSessions
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.BatchDelay < 0 {
		c.BatchDelay = d.BatchDelay
	}
	if c.Deadline <= 0 {
		c.Deadline = d.Deadline
	}
	if c.MaxAdHoc <= 0 {
		c.MaxAdHoc = d.MaxAdHoc
	}
	return c
}

// Deps are the collaborators of a Cache. Snapshots, Mirror and the pools are optional.
type Deps struct {
	Upstream  repository.UpstreamSource
	Snapshots cache.BytesCache
	Mirror    repository.MirrorWriter
	IOPool    *queue.Pool
	CPUPool   *queue.Pool
	Model     model.Config
	Session   *util.Session
	Metrics   repository.Metrics
	Logger    *applogger.Logger
}

// Cache is the process-wide symbol to entry store.
type Cache struct {
	cfg  Config
	deps Deps

	mu      sync.RWMutex
	entries map[string]*Entry
	pinned  map[string]struct{}

	flights *flightGroup
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewCache(cfg Config, deps Deps) *Cache {
	if deps.Session == nil {
		deps.Session = util.NewSession(nil, nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = repository.NopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = applogger.Nop()
	}
	deps.Logger = deps.Logger.With(applogger.String("component", "acquisition"))
	pinned := make(map[string]struct{}, len(cfg.Universe))
	for _, sym := range dedupe(cfg.Universe) {
		pinned[sym] = struct{}{}
	}
	return &Cache{
		cfg:     cfg.withDefaults(),
		deps:    deps,
		entries: make(map[string]*Entry),
		pinned:  pinned,
		flights: newFlightGroup(),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Resolve returns a fresh entry, or joins the symbol's flight and waits for its outcome.
// The flight runs on the cache's own context: when ctx ends only this caller stops
// waiting, and the work is cancelled once no caller is left.
func (c *Cache) Resolve(ctx context.Context, symbol string) Result {
	sym := normalize(symbol)
	if sym == "" {
		return Result{Kind: Unavailable, Err: repository.ErrUpstreamUnavailable}
	}
	if e, ok := c.fresh(sym); ok {
		c.deps.Metrics.RecordResolve("fresh")
		return Result{Kind: e.kind(), Entry: e}
	}
	if err := ctx.Err(); err != nil {
		return Result{Kind: Unavailable, Err: err}
	}
	f, leader := c.flights.join(ctx, sym, c.cfg.Deadline)
	if leader {
		go c.lead(f.ctx, sym, f)
	}
	return c.await(ctx, sym, f)
}

func (c *Cache) await(ctx context.Context, sym string, f *flight) Result {
	select {
	case <-f.done:
		return f.res
	case <-ctx.Done():
		c.flights.leave(sym, f)
		return Result{Kind: Unavailable, Err: ctx.Err()}
	}
}

// Lookup returns the current entry without triggering a refresh.
func (c *Cache) Lookup(symbol string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[normalize(symbol)]
	return e, ok
}

// Entries returns every published entry ordered by symbol.
func (c *Cache) Entries() []*Entry {
	c.mu.RLock()
	out := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Invalidate drops the symbol's entry and shared snapshot so the next Resolve refetches.
func (c *Cache) Invalidate(ctx context.Context, symbol string) {
	sym := normalize(symbol)
	c.mu.Lock()
	if e, ok := c.entries[sym]; ok {
		e.Model.MarkStale()
		delete(c.entries, sym)
	}
	c.mu.Unlock()
	if c.deps.Snapshots != nil {
		if err := c.deps.Snapshots.Delete(ctx, cache.SnapshotKey(sym)); err != nil {
			c.deps.Logger.Warn("Snapshot delete failed", applogger.String("symbol", sym), applogger.Error(err))
		}
	}
}

func (c *Cache) fresh(sym string) (*Entry, bool) {
	c.mu.RLock()
	e, ok := c.entries[sym]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	window := c.cfg.Freshness
	if e.Synthetic {
		window = c.cfg.SyntheticFreshness
	}
	if c.now().Sub(e.RefreshedAt) >= window {
		return e, false
	}
	return e, true
}

// stale returns the existing entry regardless of age.
func (c *Cache) stale(sym string) *Entry {
	e, _ := c.Lookup(sym)
	return e
}

// settle completes the flight and, when entry is set, publishes it in the same critical section.
// A flight that already completed is left untouched and entry is discarded.
func (c *Cache) settle(sym string, f *flight, res Result, entry *Entry) {
	var evicted []string
	c.mu.Lock()
	if f.completed() {
		c.mu.Unlock()
		return
	}
	if entry != nil {
		if old, ok := c.entries[sym]; ok && old != entry {
			old.Model.MarkStale()
		}
		c.entries[sym] = entry
		if _, ok := c.pinned[sym]; !ok {
			evicted = c.evictAdHocLocked(sym)
		}
	}
	f.complete(res)
	c.mu.Unlock()

	c.flights.forget(sym, f)
	outcome := res.Kind.String()
	if res.Reused {
		outcome = "reused"
	}
	c.deps.Metrics.RecordResolve(outcome)

	for _, old := range evicted {
		c.deps.Metrics.RecordResolve("evicted")
		c.deps.Logger.Debug("Ad hoc entry evicted", applogger.String("symbol", old))
		if c.deps.Mirror == nil {
			continue
		}
		if err := c.deps.Mirror.Remove(old); err != nil {
			c.deps.Logger.Warn("Mirror remove failed", applogger.String("symbol", old), applogger.Error(err))
			c.deps.Metrics.RecordError("mirror_remove")
		}
	}
}

// evictAdHocLocked drops the least recently refreshed ad hoc entries until at most
// MaxAdHoc remain, counting keep. c.mu must be held for writing.
func (c *Cache) evictAdHocLocked(keep string) []string {
	adHoc := make([]*Entry, 0, len(c.entries))
	for sym, e := range c.entries {
		if _, ok := c.pinned[sym]; ok || sym == keep {
			continue
		}
		adHoc = append(adHoc, e)
	}
	excess := len(adHoc) + 1 - c.cfg.MaxAdHoc
	if excess <= 0 {
		return nil
	}
	sort.Slice(adHoc, func(i, j int) bool {
		if adHoc[i].RefreshedAt.Equal(adHoc[j].RefreshedAt) {
			return adHoc[i].Symbol < adHoc[j].Symbol
		}
		return adHoc[i].RefreshedAt.Before(adHoc[j].RefreshedAt)
	})
	evicted := make([]string, 0, excess)
	for _, e := range adHoc[:excess] {
		e.Model.MarkStale()
		delete(c.entries, e.Symbol)
		evicted = append(evicted, e.Symbol)
	}
	return evicted
}
