package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Matrix maps store -> product key -> stock count. A missing pair means no
// stock was reported, which is different from a reported zero. Stores and
// product keys keep insertion order.
type Matrix struct {
	order []string
	rows  map[string]*row
}

type row struct {
	keys []string
	vals map[string]int
}

func NewMatrix() *Matrix {
	return &Matrix{rows: map[string]*row{}}
}

func (m *Matrix) ensure(store string) *row {
	if m.rows == nil {
		m.rows = map[string]*row{}
	}
	r, ok := m.rows[store]
	if !ok {
		r = &row{vals: map[string]int{}}
		m.rows[store] = r
		m.order = append(m.order, store)
	}
	return r
}

// Set overwrites an existing value in place without changing its position.
func (m *Matrix) Set(store, productKey string, stock int) {
	r := m.ensure(store)
	if _, ok := r.vals[productKey]; !ok {
		r.keys = append(r.keys, productKey)
	}
	r.vals[productKey] = stock
}

func (m *Matrix) Get(store, productKey string) (int, bool) {
	r, ok := m.rows[store]
	if !ok {
		return 0, false
	}
	v, ok := r.vals[productKey]
	return v, ok
}

func (m *Matrix) Has(store string) bool {
	_, ok := m.rows[store]
	return ok
}

func (m *Matrix) Len() int { return len(m.order) }

func (m *Matrix) Stores() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Products lists the product keys reported for store.
func (m *Matrix) Products(store string) []string {
	r, ok := m.rows[store]
	if !ok {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (m *Matrix) TotalStock(store string) int {
	r, ok := m.rows[store]
	if !ok {
		return 0
	}
	total := 0
	for _, v := range r.vals {
		total += v
	}
	return total
}

func (m *Matrix) HasStock(store string) bool {
	r, ok := m.rows[store]
	if !ok {
		return false
	}
	for _, v := range r.vals {
		if v > 0 {
			return true
		}
	}
	return false
}

// copyStore appends store with all its values to dst.
func (m *Matrix) copyStore(dst *Matrix, store string) {
	r := m.rows[store]
	nr := dst.ensure(store)
	for _, k := range r.keys {
		nr.keys = append(nr.keys, k)
		nr.vals[k] = r.vals[k]
	}
}

// Equal compares values and store order.
func (m *Matrix) Equal(o *Matrix) bool {
	if m.Len() != o.Len() {
		return false
	}
	for i, s := range m.order {
		if o.order[i] != s {
			return false
		}
		a, b := m.rows[s], o.rows[s]
		if len(a.vals) != len(b.vals) {
			return false
		}
		for k, v := range a.vals {
			if w, ok := b.vals[k]; !ok || w != v {
				return false
			}
		}
	}
	return true
}

func (m *Matrix) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range m.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeKey(&buf, s)
		buf.WriteByte('{')
		r := m.rows[s]
		for j, k := range r.keys {
			if j > 0 {
				buf.WriteByte(',')
			}
			writeKey(&buf, k)
			fmt.Fprintf(&buf, "%d", r.vals[k])
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, k string) {
	b, _ := json.Marshal(k)
	buf.Write(b)
	buf.WriteByte(':')
}

func (m *Matrix) UnmarshalJSON(b []byte) error {
	*m = Matrix{rows: map[string]*row{}}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		store, err := stringToken(dec)
		if err != nil {
			return err
		}
		m.ensure(store)
		if err := expectDelim(dec, '{'); err != nil {
			return err
		}
		for dec.More() {
			key, err := stringToken(dec)
			if err != nil {
				return err
			}
			var v int
			if err := dec.Decode(&v); err != nil {
				return fmt.Errorf("matrix %s/%s: %w", store, key, err)
			}
			m.Set(store, key, v)
		}
		if err := expectDelim(dec, '}'); err != nil {
			return err
		}
	}
	return expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	t, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := t.(json.Delim); !ok || d != want {
		return fmt.Errorf("matrix: expected %q, got %v", want, t)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	t, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := t.(string)
	if !ok {
		return "", fmt.Errorf("matrix: expected key, got %v", t)
	}
	return s, nil
}
