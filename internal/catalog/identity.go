package catalog

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeModel lowercases, NFKC-normalizes and collapses whitespace.
func NormalizeModel(model string) string {
	s := norm.NFKC.String(model)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

type Identity struct {
	Model string
	Color string
	Size  string
}

func (p WatchedProduct) Identity() Identity {
	return Identity{Model: NormalizeModel(p.ProductModel), Color: p.Color, Size: p.Size}
}

func SameIdentity(a, b WatchedProduct) bool {
	return a.Identity() == b.Identity()
}

// ContainsIdentity reports whether any of list shares p's identity.
func ContainsIdentity(list []WatchedProduct, p WatchedProduct) bool {
	id := p.Identity()
	for _, it := range list {
		if it.Identity() == id {
			return true
		}
	}
	return false
}

// DefaultMaxSKUs bounds a single inventory query.
const DefaultMaxSKUs = 50

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func ValidateSKU(sku string) error {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return &ValidationError{Field: "sku", Reason: "empty"}
	}
	for _, r := range sku {
		if r < '0' || r > '9' {
			return &ValidationError{Field: "sku", Reason: fmt.Sprintf("%q is not numeric", sku)}
		}
	}
	return nil
}

type Rejected struct {
	Product WatchedProduct `json:"product"`
	Reason  string         `json:"reason"`
}

// ValidateSKUs drops products with unusable SKUs and truncates the rest to max.
// Truncated products are reported as rejected too.
func ValidateSKUs(products []WatchedProduct, max int) (valid []WatchedProduct, rejected []Rejected) {
	if max <= 0 {
		max = DefaultMaxSKUs
	}
	for _, p := range products {
		p.SKU = strings.TrimSpace(p.SKU)
		if err := ValidateSKU(p.SKU); err != nil {
			rejected = append(rejected, Rejected{Product: p, Reason: err.Error()})
			continue
		}
		if len(valid) >= max {
			rejected = append(rejected, Rejected{Product: p, Reason: fmt.Sprintf("over query limit %d", max)})
			continue
		}
		valid = append(valid, p)
	}
	return valid, rejected
}

// DiscountRate is korea/china as a whole percentage; false when either price is missing.
func DiscountRate(koreaCNY, chinaCNY RawPrice) (int, bool) {
	k, ok1 := koreaCNY.Float()
	c, ok2 := chinaCNY.Float()
	if !ok1 || !ok2 || k <= 0 || c <= 0 {
		return 0, false
	}
	return int(k / c * 100), true
}
