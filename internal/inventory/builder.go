package inventory

import (
	"context"
	"time"

	"github.com/ariefcatur/krstock/internal/catalog"
	"github.com/ariefcatur/krstock/internal/region"
	"github.com/ariefcatur/krstock/internal/stock"
	"go.uber.org/zap"
)

type BatchFetcher interface {
	BatchFetch(ctx context.Context, skus []string, workers int, timeout time.Duration) stock.Result
}

type BuildReport struct {
	Requested int                `json:"requested"`
	Rejected  []catalog.Rejected `json:"rejected,omitempty"`
	Failed    []stock.Failure    `json:"failed,omitempty"`
	Mode      string             `json:"mode"`
	Workers   int                `json:"workers"`
	Elapsed   time.Duration      `json:"elapsed"`
	// Unknown counts store rows whose stock value was not a count.
	Unknown int `json:"unknown"`
}

type Builder struct {
	fetcher BatchFetcher
	dir     *region.Directory
	maxSKUs int
	logger  *zap.Logger
}

func NewBuilder(f BatchFetcher, dir *region.Directory, maxSKUs int, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxSKUs <= 0 {
		maxSKUs = catalog.DefaultMaxSKUs
	}
	return &Builder{fetcher: f, dir: dir, maxSKUs: maxSKUs, logger: logger}
}

// Build queries every watched SKU and folds the answers into a store x product
// matrix. When several products share a SKU, the last one in input order owns
// the SKU's product key.
func (b *Builder) Build(ctx context.Context, products []catalog.WatchedProduct) (*Matrix, BuildReport) {
	m := NewMatrix()
	rep := BuildReport{Requested: len(products)}
	if len(products) == 0 {
		return m, rep
	}

	valid, rejected := catalog.ValidateSKUs(products, b.maxSKUs)
	rep.Rejected = rejected
	for _, r := range rejected {
		b.logger.Info("skipping product", zap.String("model", r.Product.ProductModel), zap.String("sku", r.Product.SKU), zap.String("reason", r.Reason))
	}
	if len(valid) == 0 {
		return m, rep
	}

	skus := make([]string, 0, len(valid))
	keyBySKU := make(map[string]string, len(valid))
	for _, p := range valid {
		if _, seen := keyBySKU[p.SKU]; !seen {
			skus = append(skus, p.SKU)
		}
		keyBySKU[p.SKU] = p.ProductKey()
	}

	res := b.fetcher.BatchFetch(ctx, skus, 0, 0)
	rep.Failed, rep.Mode, rep.Workers, rep.Elapsed = res.Failed, res.Mode, res.Workers, res.Elapsed

	for _, sku := range skus {
		entries, ok := res.Stores[sku]
		if !ok {
			continue
		}
		key := keyBySKU[sku]
		for _, e := range entries {
			if e.StoreName == "" {
				continue
			}
			store := b.dir.Translate(e.StoreName)
			n, ok := e.Stock.Count()
			if !ok {
				rep.Unknown++
				m.ensure(store)
				continue
			}
			m.Set(store, key, n)
		}
	}

	b.logger.Info("inventory matrix built", zap.Int("stores", m.Len()), zap.Int("skus", len(skus)), zap.Int("failed", len(rep.Failed)))
	return m, rep
}
