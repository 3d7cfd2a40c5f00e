package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/krstock/internal/cache"
	"github.com/ariefcatur/krstock/internal/redisx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	SourceAccurate  = "准确值"
	SourceEstimated = "推测值"

	CacheKind = "exchange"
)

// ErrUnavailable means no source produced a rate.
var ErrUnavailable = errors.New("exchange rate unavailable")

// Rate is CNY per 10000 KRW.
type Rate struct {
	PerTenThousand decimal.Decimal `json:"rate"`
	Source         string          `json:"source"`
	AsOf           time.Time       `json:"as_of"`
}

func (r Rate) DisplayText() string {
	return fmt.Sprintf("10000韩元=%s人民币（%s）", r.PerTenThousand.String(), r.Source)
}

type Source interface {
	Name() string
	Fetch(ctx context.Context) (Rate, error)
}

// Provider asks each source in order and caches the first rate obtained.
type Provider struct {
	sources []Source
	cache   *cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
}

func NewProvider(c *cache.Cache, ttl time.Duration, logger *zap.Logger, sources ...Source) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = redisx.TTLExchangeRate
	}
	return &Provider{sources: sources, cache: c, ttl: ttl, logger: logger}
}

var rateKey = cache.Key{Kind: CacheKind, ID: "KRW-CNY"}

// Current returns the cached rate or fetches a new one. Failures are not cached.
func (p *Provider) Current(ctx context.Context) (Rate, error) {
	r, _, err := cache.GetOrRefreshJSON(ctx, p.cache, rateKey, p.ttl, p.fetch)
	return r, err
}

func (p *Provider) fetch(ctx context.Context) (Rate, error) {
	for _, s := range p.sources {
		r, err := s.Fetch(ctx)
		if err == nil {
			return r, nil
		}
		p.logger.Warn("exchange rate source failed", zap.String("source", s.Name()), zap.Error(err))
	}
	return Rate{}, ErrUnavailable
}

// Converter returns a converter for the current rate. It reports every
// conversion as unavailable when no rate could be obtained.
func (p *Provider) Converter(ctx context.Context) Converter {
	r, err := p.Current(ctx)
	if err != nil {
		return Converter{}
	}
	return Converter{Rate: r, ok: true}
}

// Converter turns KRW into whole CNY.
type Converter struct {
	Rate Rate
	ok   bool
}

func NewConverter(r Rate) Converter { return Converter{Rate: r, ok: r.PerTenThousand.IsPositive()} }

func (c Converter) Available() bool { return c.ok }

func (c Converter) Convert(krw decimal.Decimal) (decimal.Decimal, bool) {
	if !c.ok {
		return decimal.Zero, false
	}
	return krw.Div(tenThousand).Mul(c.Rate.PerTenThousand).Truncate(0), true
}
