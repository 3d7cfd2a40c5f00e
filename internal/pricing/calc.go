package pricing

import (
	"github.com/shopspring/decimal"
)

// Policy restricts how selected rules combine. The zero value lets every
// selected rule apply.
type Policy struct {
	// ExclusivePreTax keeps only the largest pre-tax discount.
	ExclusivePreTax bool `json:"exclusive_pre_tax"`
	// ExclusiveRewards keeps only the larger of voucher and points.
	ExclusiveRewards bool `json:"exclusive_rewards"`
	// ExactPreTax keeps fractional won on percent and capped discounts.
	// By default they are truncated, which can move a total near a bracket
	// edge into the next refund bracket.
	ExactPreTax bool `json:"exact_pre_tax"`
}

type Applied struct {
	Name     string          `json:"name"`
	Kind     RuleKind        `json:"kind"`
	Amount   decimal.Decimal `json:"amount"`
	OnceOnly bool            `json:"once_only,omitempty"`
}

// Result is every stage of one calculation, in KRW.
type Result struct {
	Total          decimal.Decimal `json:"total"`
	PreTaxDiscount decimal.Decimal `json:"pre_tax_discount"`
	AfterPreTax    decimal.Decimal `json:"after_pre_tax"`
	TaxRefund      decimal.Decimal `json:"tax_refund"`
	AfterTax       decimal.Decimal `json:"after_tax"`
	Voucher        decimal.Decimal `json:"voucher"`
	Points         decimal.Decimal `json:"points"`
	FinalPayment   decimal.Decimal `json:"final_payment"`

	Rules    []string    `json:"rules"`
	Applied  []Applied   `json:"applied"`
	Dropped  []string    `json:"dropped,omitempty"`
	Excluded []Exclusion `json:"excluded,omitempty"`
}

type Calculator struct {
	Taxes  TaxTable
	Policy Policy
}

func NewCalculator(p Policy) Calculator {
	return Calculator{Taxes: DefaultTaxTable, Policy: p}
}

// Calculate runs total through the default tax table under p.
func Calculate(total decimal.Decimal, rules []Rule, p Policy) Result {
	return NewCalculator(p).Calculate(total, rules)
}

// Calculate applies pre-tax discounts, then the tax refund, then post-tax
// rewards. Once-only flags are carried into Applied but not enforced here.
// Discount amounts are truncated to whole won unless Policy.ExactPreTax.
func (c Calculator) Calculate(total decimal.Decimal, rules []Rule) Result {
	taxes := c.Taxes
	if taxes == nil {
		taxes = DefaultTaxTable
	}
	res := Result{Total: total, Rules: []string{}, Applied: []Applied{}}
	for _, r := range rules {
		res.Rules = append(res.Rules, r.Name)
	}

	pre := make([]Applied, 0, len(rules))
	for _, r := range rules {
		if r.Kind.PreTax() {
			pre = append(pre, Applied{Name: r.Name, Kind: r.Kind, Amount: preTaxAmount(r, total, c.Policy.ExactPreTax), OnceOnly: r.OnceOnly})
		}
	}
	if c.Policy.ExclusivePreTax {
		pre, res.Dropped = keepLargest(pre, res.Dropped)
	}
	res.PreTaxDiscount = decimal.Zero
	for _, a := range pre {
		res.PreTaxDiscount = res.PreTaxDiscount.Add(a.Amount)
	}
	res.AfterPreTax = total.Sub(res.PreTaxDiscount)

	res.TaxRefund = taxes.Refund(res.AfterPreTax)
	res.AfterTax = res.AfterPreTax.Sub(res.TaxRefund)

	post := make([]Applied, 0, len(rules))
	for _, r := range rules {
		if r.Kind == PostTaxTiered || r.Kind == PostTaxTieredPoints {
			post = append(post, Applied{Name: r.Name, Kind: r.Kind, Amount: tierAmount(r.Tiers, res.AfterTax), OnceOnly: r.OnceOnly})
		}
	}
	if c.Policy.ExclusiveRewards {
		post, res.Dropped = keepLargest(post, res.Dropped)
	}
	res.Voucher, res.Points = decimal.Zero, decimal.Zero
	for _, a := range post {
		if a.Kind == PostTaxTiered {
			res.Voucher = res.Voucher.Add(a.Amount)
		} else {
			res.Points = res.Points.Add(a.Amount)
		}
	}
	res.FinalPayment = res.AfterTax.Sub(res.Voucher).Sub(res.Points)

	res.Applied = append(append(res.Applied, pre...), post...)
	return res
}

func preTaxAmount(r Rule, total decimal.Decimal, exact bool) decimal.Decimal {
	won := func(v decimal.Decimal) decimal.Decimal {
		if exact {
			return v
		}
		return v.Truncate(0)
	}
	switch r.Kind {
	case PreTaxPercent:
		return won(total.Mul(r.Rate))
	case PreTaxFixed:
		if total.GreaterThanOrEqual(r.Threshold) {
			return r.Amount
		}
	case PreTaxCapped:
		if total.GreaterThanOrEqual(r.Threshold) {
			return decimal.Min(won(total.Mul(r.Rate)), r.Cap)
		}
	}
	return decimal.Zero
}

// tierAmount picks the highest tier whose threshold amount reaches.
func tierAmount(tiers []Tier, amount decimal.Decimal) decimal.Decimal {
	for i := len(tiers) - 1; i >= 0; i-- {
		if amount.GreaterThanOrEqual(tiers[i].Threshold) {
			return tiers[i].Amount
		}
	}
	return decimal.Zero
}

// keepLargest keeps the first entry with the largest positive amount and
// moves the names of the other contributing entries to dropped.
func keepLargest(in []Applied, dropped []string) ([]Applied, []string) {
	best := -1
	for i, a := range in {
		if a.Amount.IsPositive() && (best < 0 || a.Amount.GreaterThan(in[best].Amount)) {
			best = i
		}
	}
	if best < 0 {
		return in, dropped
	}
	out := make([]Applied, 0, len(in))
	for i, a := range in {
		if i != best && a.Amount.IsPositive() {
			dropped = append(dropped, a.Name)
			a.Amount = decimal.Zero
		}
		out = append(out, a)
	}
	return out, dropped
}
