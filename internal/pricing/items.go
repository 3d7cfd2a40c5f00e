package pricing

import (
	"errors"
	"strings"

	"github.com/ariefcatur/krstock/internal/catalog"
	"github.com/shopspring/decimal"
)

const (
	ReasonMissing  = "missing price"
	ReasonNotValid = "price is not a number"
	ReasonNegative = "negative price"
)

// Exclusion is a product left out of a total because its price was unusable.
type Exclusion struct {
	ProductKey string `json:"product_key"`
	SKU        string `json:"sku,omitempty"`
	Value      string `json:"value"`
	Reason     string `json:"reason"`
}

var (
	errMissing  = errors.New(ReasonMissing)
	errNotValid = errors.New(ReasonNotValid)
	errNegative = errors.New(ReasonNegative)
)

// ParsePrice reads a collaborator price. Thousands separators are accepted.
func ParsePrice(p catalog.RawPrice) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(string(p)), ",", "")
	if s == "" {
		return decimal.Zero, errMissing
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errNotValid
	}
	if d.IsNegative() {
		return decimal.Zero, errNegative
	}
	return d, nil
}

// Sum adds up product prices, skipping and reporting the ones that do not parse.
func Sum(products []catalog.WatchedProduct) (decimal.Decimal, []Exclusion) {
	total := decimal.Zero
	var excluded []Exclusion
	for _, p := range products {
		d, err := ParsePrice(p.Price)
		if err != nil {
			excluded = append(excluded, Exclusion{ProductKey: p.ProductKey(), SKU: p.SKU, Value: string(p.Price), Reason: err.Error()})
			continue
		}
		total = total.Add(d)
	}
	return total, excluded
}

func CalculateItems(products []catalog.WatchedProduct, rules []Rule, p Policy) Result {
	return NewCalculator(p).CalculateItems(products, rules)
}

func (c Calculator) CalculateItems(products []catalog.WatchedProduct, rules []Rule) Result {
	total, excluded := Sum(products)
	res := c.Calculate(total, rules)
	res.Excluded = excluded
	return res
}

// Converter turns KRW into the display currency. ok is false when no rate is
// available.
type Converter interface {
	Convert(krw decimal.Decimal) (decimal.Decimal, bool)
}

type Converted struct {
	Available    bool            `json:"available"`
	AfterTax     decimal.Decimal `json:"after_tax"`
	FinalPayment decimal.Decimal `json:"final_payment"`
}

func (r Result) Convert(conv Converter) Converted {
	if conv == nil {
		return Converted{}
	}
	after, ok := conv.Convert(r.AfterTax)
	if !ok {
		return Converted{}
	}
	final, _ := conv.Convert(r.FinalPayment)
	return Converted{Available: true, AfterTax: after, FinalPayment: final}
}

// Domestic compares a converted amount with the products' domestic prices.
type Domestic struct {
	HasAllPrices bool            `json:"has_all_prices"`
	Total        decimal.Decimal `json:"total"`
	// DiscountRate is converted/domestic as a whole percentage, set only when
	// every product has a domestic price and a conversion was available.
	DiscountRate *int `json:"discount_rate,omitempty"`
}

func CompareDomestic(products []catalog.WatchedProduct, converted decimal.Decimal, available bool) Domestic {
	d := Domestic{HasAllPrices: len(products) > 0, Total: decimal.Zero}
	for _, p := range products {
		v, err := ParsePrice(p.DomesticPrice)
		if err != nil || !v.IsPositive() {
			d.HasAllPrices = false
			d.Total = decimal.Zero
			break
		}
		d.Total = d.Total.Add(v)
	}
	if d.HasAllPrices && available && d.Total.IsPositive() {
		rate := int(converted.Div(d.Total).Mul(decimal.NewFromInt(100)).IntPart())
		d.DiscountRate = &rate
	}
	return d
}

type Quote struct {
	Total       decimal.Decimal `json:"total"`
	TaxRefund   decimal.Decimal `json:"tax_refund"`
	AfterTax    decimal.Decimal `json:"after_tax"`
	AfterTaxCNY decimal.Decimal `json:"after_tax_cny"`
	Converted   bool            `json:"converted"`
	Domestic    Domestic        `json:"domestic"`
	Excluded    []Exclusion     `json:"excluded,omitempty"`
}

// BatchQuote sums products, applies only the tax refund and converts the
// after-tax amount.
func BatchQuote(products []catalog.WatchedProduct, conv Converter) Quote {
	total, excluded := Sum(products)
	refund := DefaultTaxTable.Refund(total)
	q := Quote{Total: total, TaxRefund: refund, AfterTax: total.Sub(refund), AfterTaxCNY: decimal.Zero, Excluded: excluded}
	if conv != nil {
		q.AfterTaxCNY, q.Converted = conv.Convert(q.AfterTax)
	}
	q.Domestic = CompareDomestic(products, q.AfterTaxCNY, q.Converted)
	return q
}
