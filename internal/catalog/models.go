package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// WatchedProduct is one color/size variant the user follows.
type WatchedProduct struct {
	ID            string    `json:"id,omitempty"`
	ProductModel  string    `json:"product_model"`
	ExactModel    string    `json:"exact_model,omitempty"`
	Color         string    `json:"color"`
	Size          string    `json:"size"`
	Price         RawPrice  `json:"price"` // KRW
	SKU           string    `json:"sku"`
	YearInfo      string    `json:"year_info,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	DomesticPrice RawPrice  `json:"domestic_price,omitempty"` // CNY
	KoreaPriceCNY RawPrice  `json:"korea_price_cny,omitempty"`
	AddedAt       time.Time `json:"added_at,omitempty"`
}

// ProductKey indexes the inventory matrix.
func (p WatchedProduct) ProductKey() string {
	return p.ProductModel + " " + p.Color + " " + p.Size
}

// RawPrice keeps whatever the collaborator sent so bad values can be
// reported at calculation time instead of failing decode.
type RawPrice string

func (r *RawPrice) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = RawPrice(strings.TrimSpace(s))
		return nil
	}
	*r = RawPrice(b)
	return nil
}

func (r RawPrice) MarshalJSON() ([]byte, error) {
	if isJSONNumber(string(r)) {
		return []byte(r), nil
	}
	return json.Marshal(string(r))
}

// isJSONNumber rejects what strconv accepts but JSON does not: NaN, Inf,
// "+5", ".5", "5." and leading zeros.
func isJSONNumber(s string) bool {
	if s == "" {
		return false
	}
	first, last := s[0], s[len(s)-1]
	if first != '-' && (first < '0' || first > '9') {
		return false
	}
	if last < '0' || last > '9' {
		return false
	}
	return json.Valid([]byte(s))
}

func (r RawPrice) IsZero() bool { return r == "" }

// Int parses the value as a whole amount. Thousands separators are accepted.
func (r RawPrice) Int() (int64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(string(r)), ",", "")
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

func (r RawPrice) Float() (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(string(r)), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func PriceOf(n int64) RawPrice { return RawPrice(strconv.FormatInt(n, 10)) }
