package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/krstock/internal/catalog"
	"github.com/ariefcatur/krstock/internal/events"
	"go.uber.org/zap"
)

var ErrNoProducts = errors.New("no products selected")

// UsageLedger remembers once-only rules that were already redeemed.
type UsageLedger interface {
	Used(ctx context.Context, merchant, rule string) (bool, error)
	MarkUsed(ctx context.Context, merchant, rule string) error
}

type MemoryLedger struct {
	mu   sync.Mutex
	used map[string]time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{used: map[string]time.Time{}}
}

func (l *MemoryLedger) Used(_ context.Context, merchant, rule string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.used[merchant+"\x00"+rule]
	return ok, nil
}

func (l *MemoryLedger) MarkUsed(_ context.Context, merchant, rule string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := merchant + "\x00" + rule
	if _, ok := l.used[k]; !ok {
		l.used[k] = time.Now().UTC()
	}
	return nil
}

// RateSource yields the converter to use for one request.
type RateSource interface {
	Converter(ctx context.Context) Converter
}

type RateSourceFunc func(ctx context.Context) Converter

func (f RateSourceFunc) Converter(ctx context.Context) Converter { return f(ctx) }

type Request struct {
	Merchant string                   `json:"merchant"`
	Rules    []string                 `json:"rules"`
	Products []catalog.WatchedProduct `json:"products"`
}

type Quotation struct {
	Merchant string `json:"merchant,omitempty"`
	Result
	// Skipped lists once-only rules left out because they were already used.
	Skipped   []string  `json:"skipped_rules,omitempty"`
	Converted Converted `json:"converted"`
	Domestic  Domestic  `json:"domestic"`
}

type Service struct {
	Catalog     *Catalog
	Calculator  Calculator
	Ledger      UsageLedger
	Rates       RateSource
	Publisher   events.Publisher
	ServiceName string
	Logger      *zap.Logger
}

func (s *Service) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) converter(ctx context.Context) Converter {
	if s.Rates == nil {
		return nil
	}
	return s.Rates.Converter(ctx)
}

// Calculate prices the request, leaving out once-only rules already redeemed.
func (s *Service) Calculate(ctx context.Context, req Request) (Quotation, error) {
	q, err := s.quote(ctx, req)
	if err != nil {
		return Quotation{}, err
	}
	s.publish(ctx, events.EventCalculationCompleted, events.TopicCalculation, q)
	return q, nil
}

// ConfirmPurchase prices the request and records every once-only rule that
// contributed a discount as used.
func (s *Service) ConfirmPurchase(ctx context.Context, req Request) (Quotation, error) {
	q, err := s.quote(ctx, req)
	if err != nil {
		return Quotation{}, err
	}
	if s.Ledger != nil {
		for _, a := range q.Applied {
			if !a.OnceOnly || !a.Amount.IsPositive() {
				continue
			}
			if err := s.Ledger.MarkUsed(ctx, req.Merchant, a.Name); err != nil {
				return Quotation{}, fmt.Errorf("mark %q used: %w", a.Name, err)
			}
			s.log().Info("once-only rule redeemed", zap.String("merchant", req.Merchant), zap.String("rule", a.Name))
		}
	}
	s.publish(ctx, events.EventPurchaseConfirmed, events.TopicPurchaseConfirmed, q)
	return q, nil
}

// Quote is the tax-only estimate for products.
func (s *Service) Quote(ctx context.Context, products []catalog.WatchedProduct) (Quote, error) {
	if len(products) == 0 {
		return Quote{}, ErrNoProducts
	}
	return BatchQuote(products, s.converter(ctx)), nil
}

func (s *Service) quote(ctx context.Context, req Request) (Quotation, error) {
	if len(req.Products) == 0 {
		return Quotation{}, ErrNoProducts
	}
	rules, err := s.Catalog.Select(req.Merchant, req.Rules)
	if err != nil {
		return Quotation{}, err
	}

	// skip once-only rules already used
	q := Quotation{Merchant: req.Merchant}
	usable := rules[:0:0]
	for _, r := range rules {
		if r.OnceOnly && s.Ledger != nil {
			used, err := s.Ledger.Used(ctx, req.Merchant, r.Name)
			if err != nil {
				s.log().Warn("usage ledger unavailable", zap.String("rule", r.Name), zap.Error(err))
			} else if used {
				q.Skipped = append(q.Skipped, r.Name)
				continue
			}
		}
		usable = append(usable, r)
	}

	// hitung dulu di KRW, konversi CNY di akhir
	q.Result = s.Calculator.CalculateItems(req.Products, usable)
	q.Converted = q.Result.Convert(s.converter(ctx))
	q.Domestic = CompareDomestic(req.Products, q.Converted.FinalPayment, q.Converted.Available)
	if len(q.Excluded) > 0 {
		s.log().Info("products excluded from total", zap.Int("excluded", len(q.Excluded)))
	}
	return q, nil
}

func (s *Service) publish(ctx context.Context, eventType, topic string, q Quotation) {
	if s.Publisher == nil {
		return
	}
	env, err := events.NewEnvelope(eventType, s.ServiceName, q.Merchant, events.CalculationPayload{
		Merchant:     q.Merchant,
		Total:        q.Total.String(),
		FinalPayment: q.FinalPayment.String(),
		Rules:        q.Rules,
		Excluded:     len(q.Excluded),
	})
	if err != nil {
		s.log().Error("calculation event", zap.Error(err))
		return
	}
	if err := s.Publisher.Publish(ctx, topic, events.PartitionKey(q.Merchant), env); err != nil {
		s.log().Warn("calculation event not published", zap.String("type", eventType), zap.Error(err))
	}
}
