package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout     = 12 * time.Second
	DefaultMaxWorkers  = 5
	DefaultSerialDelay = 500 * time.Millisecond
)

const (
	ReasonTimeout = "timeout"
	ReasonError   = "error"
	ReasonEmpty   = "empty"
)

const (
	ModeConcurrent = "concurrent"
	ModeSerial     = "serial"
)

type Options struct {
	Timeout     time.Duration
	MaxWorkers  int
	SerialDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = DefaultMaxWorkers
	}
	if o.SerialDelay <= 0 {
		o.SerialDelay = DefaultSerialDelay
	}
	return o
}

type Failure struct {
	SKU    string `json:"sku"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// Result holds only SKUs whose lookup succeeded with at least one entry.
type Result struct {
	Stores  map[string][]Entry `json:"stores"`
	Failed  []Failure          `json:"failed,omitempty"`
	Mode    string             `json:"mode"`
	Workers int                `json:"workers"`
	Elapsed time.Duration      `json:"elapsed"`
}

type pool interface {
	Go(func() error)
	Wait() error
}

type Fetcher struct {
	src       Source
	opts      Options
	logger    *zap.Logger
	startPool func(workers int) (pool, error)
}

func NewFetcher(src Source, opts Options, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		src:       src,
		opts:      opts.withDefaults(),
		logger:    logger,
		startPool: newGroup,
	}
}

func newGroup(workers int) (pool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("worker pool: need at least one worker, got %d", workers)
	}
	g := &errgroup.Group{}
	g.SetLimit(workers)
	return g, nil
}

// WorkersFor picks parallelism by batch size, capped at max and at n.
func WorkersFor(n, max int) int {
	var w int
	switch {
	case n <= 3:
		w = 2
	case n <= 10:
		w = 4
	default:
		w = 8
	}
	if max > 0 && w > max {
		w = max
	}
	if n > 0 && w > n {
		w = n
	}
	return w
}

// FetchStock queries one SKU. Failures yield nil, never an error.
func (f *Fetcher) FetchStock(ctx context.Context, sku string) []Entry {
	o := f.runOne(ctx, sku, f.opts.Timeout)
	if o.err != nil {
		f.logger.Warn("stock lookup failed", zap.String("sku", sku), zap.Error(o.err))
		return nil
	}
	return o.entries
}

// BatchFetch queries every SKU once. workers <= 0 selects WorkersFor; timeout
// <= 0 uses the configured per-request timeout.
func (f *Fetcher) BatchFetch(ctx context.Context, skus []string, workers int, timeout time.Duration) Result {
	skus = dedupe(skus)
	res := Result{Stores: map[string][]Entry{}, Mode: ModeConcurrent}
	if len(skus) == 0 {
		return res
	}
	if workers <= 0 {
		workers = WorkersFor(len(skus), f.opts.MaxWorkers)
	}
	if workers > f.opts.MaxWorkers {
		workers = f.opts.MaxWorkers
	}
	if timeout <= 0 {
		timeout = f.opts.Timeout
	}

	start := time.Now()
	p, err := f.startPool(workers)
	if err != nil {
		f.logger.Warn("worker pool unavailable, falling back to serial queries", zap.Error(err))
		res = f.serial(ctx, skus, timeout)
	} else {
		res.Workers = workers
		slots := make([]outcome, len(skus))
		for i, sku := range skus {
			p.Go(func() error {
				slots[i] = f.runOne(ctx, sku, timeout)
				return nil
			})
		}
		_ = p.Wait()
		f.collect(&res, skus, slots)
	}
	res.Elapsed = time.Since(start)

	f.logger.Info("stock batch finished",
		zap.String("mode", res.Mode),
		zap.Int("workers", res.Workers),
		zap.Int("requested", len(skus)),
		zap.Int("succeeded", len(res.Stores)),
		zap.Int("failed", len(res.Failed)),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res
}

func (f *Fetcher) serial(ctx context.Context, skus []string, timeout time.Duration) Result {
	res := Result{Stores: map[string][]Entry{}, Mode: ModeSerial, Workers: 1}
	lim := rate.NewLimiter(rate.Every(f.opts.SerialDelay), 1)
	slots := make([]outcome, len(skus))
	for i, sku := range skus {
		if err := lim.Wait(ctx); err != nil {
			slots[i] = outcome{err: err}
			continue
		}
		slots[i] = f.runOne(ctx, sku, timeout)
	}
	f.collect(&res, skus, slots)
	return res
}

func (f *Fetcher) collect(res *Result, skus []string, slots []outcome) {
	for i, sku := range skus {
		o := slots[i]
		switch {
		case o.err != nil:
			reason := ReasonError
			if errors.Is(o.err, context.DeadlineExceeded) {
				reason = ReasonTimeout
			}
			res.Failed = append(res.Failed, Failure{SKU: sku, Reason: reason, Detail: o.err.Error()})
			f.logger.Warn("stock lookup failed", zap.String("sku", sku), zap.String("reason", reason), zap.Error(o.err))
		case len(o.entries) == 0:
			res.Failed = append(res.Failed, Failure{SKU: sku, Reason: ReasonEmpty})
		default:
			res.Stores[sku] = o.entries
		}
	}
}

type outcome struct {
	entries []Entry
	err     error
}

// runOne bounds a single lookup by its own deadline. A source that ignores ctx
// is abandoned when the deadline passes; its result is discarded.
func (f *Fetcher) runOne(ctx context.Context, sku string, timeout time.Duration) outcome {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("lookup panic: %v", r)}
			}
		}()
		entries, err := f.src.Lookup(tctx, sku)
		ch <- outcome{entries: entries, err: err}
	}()

	select {
	case o := <-ch:
		return o
	case <-tctx.Done():
		return outcome{err: tctx.Err()}
	}
}

func dedupe(skus []string) []string {
	seen := make(map[string]bool, len(skus))
	out := make([]string, 0, len(skus))
	for _, s := range skus {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
