package inventory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/ariefcatur/krstock/internal/cache"
	"github.com/ariefcatur/krstock/internal/catalog"
	"github.com/ariefcatur/krstock/internal/events"
	"github.com/ariefcatur/krstock/internal/region"
	"github.com/ariefcatur/krstock/internal/redisx"
	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

const CacheKind = "inventory"

// lowStockMax is the largest count still reported as a low-stock alert.
const lowStockMax = 2

// WatchList supplies the products to check.
type WatchList interface {
	Favorites(ctx context.Context) ([]catalog.WatchedProduct, error)
}

type Snapshot struct {
	ID       string                   `json:"id"`
	BuiltAt  time.Time                `json:"built_at"`
	Products []catalog.WatchedProduct `json:"products"`
	Matrix   *Matrix                  `json:"matrix"`
	Report   BuildReport              `json:"report"`
	// Cached is set when the snapshot was served without querying stores.
	Cached bool `json:"cached"`
}

type Service struct {
	Watch       WatchList
	Builder     *Builder
	Cache       *cache.Cache
	Publisher   events.Publisher
	Directory   *region.Directory
	SnapshotTTL time.Duration
	ServiceName string
	Logger      *zap.Logger
}

func (s *Service) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Snapshot returns the inventory matrix for the current watch list. A snapshot
// for the same set of products is reused until SnapshotTTL passes, unless
// refresh is set.
func (s *Service) Snapshot(ctx context.Context, refresh bool) (Snapshot, error) {
	// 1) watch list -> snapshot id
	products, err := s.Watch.Favorites(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load watch list: %w", err)
	}
	id := SnapshotID(products)
	key := cache.Key{Kind: CacheKind, ID: id}
	if refresh {
		if err := s.Cache.Invalidate(ctx, key); err != nil {
			s.log().Warn("snapshot invalidate failed", zap.String("id", id), zap.Error(err))
		}
	}

	// 2) coba cache, build kalau miss
	ttl := s.SnapshotTTL
	if ttl <= 0 {
		ttl = redisx.TTLInventorySnapshot
	}
	snap, fresh, err := cache.GetOrRefreshJSON(ctx, s.Cache, key, ttl, func(ctx context.Context) (Snapshot, error) {
		m, rep := s.Builder.Build(ctx, products)
		return Snapshot{ID: id, BuiltAt: time.Now().UTC(), Products: products, Matrix: m, Report: rep}, nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	if snap.Matrix == nil {
		snap.Matrix = NewMatrix()
	}
	snap.Cached = !fresh
	// 3) publish hanya untuk snapshot baru
	if fresh {
		s.publish(ctx, snap)
	}
	return snap, nil
}

func (s *Service) publish(ctx context.Context, snap Snapshot) {
	if s.Publisher == nil {
		return
	}
	p := events.InventorySnapshotPayload{
		SnapshotID: snap.ID,
		Stores:     snap.Matrix.Len(),
		Products:   len(snap.Products),
		Mode:       snap.Report.Mode,
		LowStock:   LowStock(snap.Products, snap.Matrix, s.Directory.KeyStores()),
	}
	for _, f := range snap.Report.Failed {
		p.FailedSKUs = append(p.FailedSKUs, f.SKU)
	}
	for _, r := range snap.Report.Rejected {
		p.RejectedSKU = append(p.RejectedSKU, r.Product.SKU)
	}
	env, err := events.NewEnvelope(events.EventInventorySnapshotBuilt, s.ServiceName, snap.ID, p)
	if err != nil {
		s.log().Error("snapshot event", zap.Error(err))
		return
	}
	if err := s.Publisher.Publish(ctx, events.TopicInventorySnapshot, events.PartitionKey(snap.ID), env); err != nil {
		s.log().Warn("snapshot event not published", zap.String("id", snap.ID), zap.Error(err))
	}
}

// LowStock lists key-store products that have 1 or 2 units left.
func LowStock(products []catalog.WatchedProduct, m *Matrix, keyStores []string) []events.LowStockAlert {
	var out []events.LowStockAlert
	for _, store := range keyStores {
		seen := map[string]bool{}
		for _, p := range products {
			key := p.ProductKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			if n, ok := m.Get(store, key); ok && n > 0 && n <= lowStockMax {
				out = append(out, events.LowStockAlert{Store: store, ProductKey: key, Stock: n})
			}
		}
	}
	return out
}

// SnapshotID hashes the SKU and product key of every product, ignoring order.
func SnapshotID(products []catalog.WatchedProduct) string {
	parts := make([]string, len(products))
	for i, p := range products {
		parts[i] = p.SKU + "\x00" + p.ProductKey()
	}
	sort.Strings(parts)
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.WriteString(p)
		_, _ = d.WriteString("\x01")
	}
	return strconv.FormatUint(d.Sum64(), 16)
}
