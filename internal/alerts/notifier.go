package alerts

import (
	"context"
	"sync"

	"github.com/ariefcatur/krstock/internal/events"
	kafkax "github.com/ariefcatur/krstock/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Dedup reports whether an event is delivered for the first time.
type Dedup interface {
	FirstSeen(ctx context.Context, eventID string) (bool, error)
}

// Notifier consumes snapshot events and reports low-stock products. An alert
// is repeated only when the count for that store and product changes.
type Notifier struct {
	Dedup  Dedup
	Logger *zap.Logger

	mu   sync.Mutex
	last map[string]int
}

// Handle is a kafka.Handler for events.TopicInventorySnapshot. The event is
// marked as seen only once it decodes, so a failed attempt is retried.
func (n *Notifier) Handle(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		return err
	}
	if env.EventType != events.EventInventorySnapshotBuilt {
		return nil
	}

	// 2) decode payload
	p, err := kafkax.UnwrapPayload[events.InventorySnapshotPayload](env.Payload)
	if err != nil {
		return err
	}

	// 3) dedup via Redis (pakai event_id)
	if n.Dedup != nil {
		first, err := n.Dedup.FirstSeen(ctx, env.EventID)
		if err != nil {
			n.log().Warn("dedup unavailable", zap.String("event_id", env.EventID), zap.Error(err))
		} else if !first {
			return nil
		}
	}

	// 4) alert hanya kalau jumlah berubah
	for _, a := range n.Changed(p.LowStock) {
		n.log().Warn("low stock",
			zap.String("store", a.Store),
			zap.String("product", a.ProductKey),
			zap.Int("stock", a.Stock),
			zap.String("snapshot", p.SnapshotID),
		)
	}
	if len(p.FailedSKUs) > 0 {
		n.log().Info("snapshot had failed lookups", zap.String("snapshot", p.SnapshotID), zap.Strings("skus", p.FailedSKUs))
	}
	return nil
}

// Changed returns the alerts whose count differs from the last one seen.
func (n *Notifier) Changed(alerts []events.LowStockAlert) []events.LowStockAlert {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.last == nil {
		n.last = map[string]int{}
	}
	var out []events.LowStockAlert
	for _, a := range alerts {
		k := a.Store + "\x00" + a.ProductKey
		if prev, ok := n.last[k]; ok && prev == a.Stock {
			continue
		}
		n.last[k] = a.Stock
		out = append(out, a)
	}
	return out
}

func (n *Notifier) log() *zap.Logger {
	if n.Logger == nil {
		return zap.NewNop()
	}
	return n.Logger
}
