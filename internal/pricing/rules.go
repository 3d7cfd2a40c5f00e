package pricing

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type RuleKind string

const (
	PreTaxPercent       RuleKind = "pre_tax_percent"
	PreTaxFixed         RuleKind = "pre_tax_fixed"
	PreTaxCapped        RuleKind = "pre_tax_capped"
	PostTaxTiered       RuleKind = "post_tax_tiered"
	PostTaxTieredPoints RuleKind = "post_tax_tiered_points"
)

func (k RuleKind) PreTax() bool {
	return k == PreTaxPercent || k == PreTaxFixed || k == PreTaxCapped
}

type Tier struct {
	Threshold decimal.Decimal `json:"threshold"`
	Amount    decimal.Decimal `json:"amount"`
}

// Rule is one discount a merchant offers. Which fields matter depends on Kind.
type Rule struct {
	Name        string          `json:"name"`
	Kind        RuleKind        `json:"kind"`
	Rate        decimal.Decimal `json:"rate"`
	Threshold   decimal.Decimal `json:"threshold"`
	Amount      decimal.Decimal `json:"amount"`
	Cap         decimal.Decimal `json:"cap"`
	OnceOnly    bool            `json:"once_only,omitempty"`
	Tiers       []Tier          `json:"tiers,omitempty"` // ascending by threshold
	Description string          `json:"description,omitempty"`
}

type Merchant struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Rules       []Rule `json:"rules"`
}

// Catalog holds the merchants in configuration order.
type Catalog struct {
	merchants []Merchant
	byName    map[string]int
}

//go:embed discounts.yaml
var defaultDiscounts []byte

type tierSpec struct {
	Threshold int64 `yaml:"threshold"`
	Amount    int64 `yaml:"amount"`
}

type ruleSpec struct {
	Name        string     `yaml:"name"`
	Kind        RuleKind   `yaml:"kind"`
	Rate        string     `yaml:"rate"`
	Threshold   int64      `yaml:"threshold"`
	Amount      int64      `yaml:"amount"`
	Cap         int64      `yaml:"cap"`
	OnceOnly    bool       `yaml:"once_only"`
	Tiers       []tierSpec `yaml:"tiers"`
	Description string     `yaml:"description"`
}

type merchantSpec struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Rules       []ruleSpec `yaml:"rules"`
}

// DefaultCatalog returns the embedded merchant configuration.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultDiscounts)
	if err != nil {
		panic(fmt.Sprintf("pricing: embedded discounts: %v", err))
	}
	return c
}

// LoadCatalog reads merchants from path; an empty path yields the embedded set.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(b)
}

func ParseCatalog(b []byte) (*Catalog, error) {
	var doc struct {
		Merchants []merchantSpec `yaml:"merchants"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode discounts: %w", err)
	}
	c := &Catalog{byName: map[string]int{}}
	for _, ms := range doc.Merchants {
		if _, dup := c.byName[ms.Name]; dup {
			return nil, fmt.Errorf("merchant %q defined twice", ms.Name)
		}
		m := Merchant{Name: ms.Name, Description: ms.Description}
		for _, rs := range ms.Rules {
			r, err := rs.rule()
			if err != nil {
				return nil, fmt.Errorf("merchant %q: %w", ms.Name, err)
			}
			m.Rules = append(m.Rules, r)
		}
		c.byName[m.Name] = len(c.merchants)
		c.merchants = append(c.merchants, m)
	}
	return c, nil
}

func (rs ruleSpec) rule() (Rule, error) {
	r := Rule{
		Name:        rs.Name,
		Kind:        rs.Kind,
		Threshold:   decimal.NewFromInt(rs.Threshold),
		Amount:      decimal.NewFromInt(rs.Amount),
		Cap:         decimal.NewFromInt(rs.Cap),
		OnceOnly:    rs.OnceOnly,
		Description: rs.Description,
	}
	if rs.Rate != "" {
		rate, err := decimal.NewFromString(rs.Rate)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %q: rate: %w", rs.Name, err)
		}
		r.Rate = rate
	}
	for _, t := range rs.Tiers {
		r.Tiers = append(r.Tiers, Tier{Threshold: decimal.NewFromInt(t.Threshold), Amount: decimal.NewFromInt(t.Amount)})
	}
	sort.SliceStable(r.Tiers, func(i, j int) bool { return r.Tiers[i].Threshold.LessThan(r.Tiers[j].Threshold) })
	return r, r.Validate()
}

// Validate checks that the fields Kind relies on are set.
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule without name")
	}
	switch r.Kind {
	case PreTaxPercent:
		if !r.Rate.IsPositive() {
			return fmt.Errorf("rule %q: rate must be positive", r.Name)
		}
	case PreTaxFixed:
		if !r.Amount.IsPositive() {
			return fmt.Errorf("rule %q: amount must be positive", r.Name)
		}
	case PreTaxCapped:
		if !r.Rate.IsPositive() || !r.Cap.IsPositive() {
			return fmt.Errorf("rule %q: rate and cap must be positive", r.Name)
		}
	case PostTaxTiered, PostTaxTieredPoints:
		if len(r.Tiers) == 0 {
			return fmt.Errorf("rule %q: no tiers", r.Name)
		}
	default:
		return fmt.Errorf("rule %q: unknown kind %q", r.Name, r.Kind)
	}
	return nil
}

func (c *Catalog) Merchants() []Merchant {
	out := make([]Merchant, len(c.merchants))
	copy(out, c.merchants)
	return out
}

func (c *Catalog) Merchant(name string) (Merchant, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Merchant{}, false
	}
	return c.merchants[i], true
}

// Select resolves rule names of one merchant, keeping configuration order.
func (c *Catalog) Select(merchant string, names []string) ([]Rule, error) {
	if len(names) == 0 {
		return nil, nil
	}
	m, ok := c.Merchant(merchant)
	if !ok {
		return nil, &UnknownError{What: "merchant", Name: merchant}
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Rule
	for _, r := range m.Rules {
		if want[r.Name] {
			out = append(out, r)
			delete(want, r.Name)
		}
	}
	for _, n := range names {
		if want[n] {
			return nil, &UnknownError{What: "rule", Name: n}
		}
	}
	return out, nil
}

type UnknownError struct {
	What string
	Name string
}

func (e *UnknownError) Error() string { return fmt.Sprintf("unknown %s %q", e.What, e.Name) }
