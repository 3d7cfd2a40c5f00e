package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxBracket refunds Refund for totals in [Min, Max], bounds inclusive.
type TaxBracket struct {
	Min    int64 `json:"min"`
	Max    int64 `json:"max"`
	Refund int64 `json:"refund"`
}

type TaxTable []TaxBracket

// DefaultTaxTable is the Korean tax-free shopping refund schedule (KRW).
var DefaultTaxTable = TaxTable{
	{15000, 29999, 1000},
	{30000, 49999, 2000},
	{50000, 74999, 3500},
	{75000, 99999, 5000},
	{100000, 124999, 6000},
	{125000, 149999, 7000},
	{150000, 199999, 10000},
	{200000, 249999, 13000},
	{250000, 299999, 15000},
	{300000, 399999, 20000},
	{400000, 499999, 25000},
	{500000, 599999, 30000},
	{600000, 699999, 35000},
	{700000, 799999, 40000},
	{800000, 899999, 45000},
	{900000, 999999, 50000},
	{1000000, 1249999, 55000},
	{1250000, 1499999, 60000},
	{1500000, 1999999, 70000},
	{2000000, 2499999, 80000},
	{2500000, 2999999, 90000},
	{3000000, 3999999, 100000},
	{4000000, 4999999, 120000},
	{5000000, 5999999, 140000},
	{6000000, 6999999, 170000},
	{7000000, 7999999, 200000},
	{8000000, 8999999, 230000},
	{9000000, 9999999, 260000},
	{10000000, 11499999, 300000},
	{11500000, 12999999, 340000},
	{13000000, 14999999, 380000},
	{15000000, 100000000, 480000},
}

// Refund returns the refund for total, or zero outside every bracket.
func (t TaxTable) Refund(total decimal.Decimal) decimal.Decimal {
	for _, b := range t {
		if total.GreaterThanOrEqual(decimal.NewFromInt(b.Min)) && total.LessThanOrEqual(decimal.NewFromInt(b.Max)) {
			return decimal.NewFromInt(b.Refund)
		}
	}
	return decimal.Zero
}

// Validate requires ordered, non-overlapping brackets with no gaps.
func (t TaxTable) Validate() error {
	for i, b := range t {
		if b.Min > b.Max {
			return fmt.Errorf("bracket %d: min %d above max %d", i, b.Min, b.Max)
		}
		if i > 0 && b.Min != t[i-1].Max+1 {
			return fmt.Errorf("bracket %d: starts at %d, previous ends at %d", i, b.Min, t[i-1].Max)
		}
	}
	return nil
}
