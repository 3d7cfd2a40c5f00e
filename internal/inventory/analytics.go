package inventory

import (
	"fmt"
	"math"
	"sort"

	"github.com/ariefcatur/krstock/internal/catalog"
	"github.com/ariefcatur/krstock/internal/region"
)

type StatusCount struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type StatusDistribution struct {
	High  StatusCount `json:"high_stock"`
	Low   StatusCount `json:"low_stock"`
	Out   StatusCount `json:"out_of_stock"`
	Total int         `json:"total"`
}

// ComputeStatusDistribution classifies each store by the first product with positive
// stock: 1-2 units is low, more is high, none at all is out of stock.
func ComputeStatusDistribution(m *Matrix) StatusDistribution {
	d := StatusDistribution{Total: m.Len()}
	for _, store := range m.order {
		r := m.rows[store]
		first := 0
		for _, k := range r.keys {
			if v := r.vals[k]; v > 0 {
				first = v
				break
			}
		}
		switch {
		case first == 0:
			d.Out.Count++
		case first <= 2:
			d.Low.Count++
		default:
			d.High.Count++
		}
	}
	if d.Total > 0 {
		d.High.Percentage = percent(d.High.Count, d.Total)
		d.Low.Percentage = percent(d.Low.Count, d.Total)
		d.Out.Percentage = percent(d.Out.Count, d.Total)
	}
	return d
}

type RegionStat struct {
	Key        region.Key `json:"region"`
	Count      int        `json:"count"`
	Percentage float64    `json:"percentage"`
	Inventory  int        `json:"inventory"`
}

// RegionHeatmap returns one entry per heat key, in region.HeatKeys order.
func RegionHeatmap(m *Matrix, dir *region.Directory) []RegionStat {
	idx := make(map[region.Key]int, len(region.HeatKeys))
	out := make([]RegionStat, len(region.HeatKeys))
	for i, k := range region.HeatKeys {
		out[i].Key = k
		idx[k] = i
	}
	total := m.Len()
	if total == 0 {
		return out
	}
	for _, store := range m.order {
		i := idx[region.HeatKeyOf(dir.RegionOf(store))]
		out[i].Count++
		out[i].Inventory += m.TotalStock(store)
	}
	for i := range out {
		out[i].Percentage = percent(out[i].Count, total)
	}
	return out
}

type EnhancedStats struct {
	StockStatus   StatusDistribution `json:"stock_status"`
	RegionHeatmap []RegionStat       `json:"region_heatmap"`
}

func ComputeEnhancedStats(m *Matrix, dir *region.Directory) EnhancedStats {
	return EnhancedStats{
		StockStatus:   ComputeStatusDistribution(m),
		RegionHeatmap: RegionHeatmap(m, dir),
	}
}

type StoreStock struct {
	StoreName string `json:"store_name"`
	Stock     int    `json:"stock"`
}

type RegionDepth struct {
	Key    region.Key   `json:"region"`
	Total  int          `json:"total"`
	Stores []StoreStock `json:"stores"`
}

type ProductDepth struct {
	ProductKey      string        `json:"product_key"`
	TotalInventory  int           `json:"total_inventory"`
	StoresWithStock int           `json:"stores_with_stock"`
	Regions         []RegionDepth `json:"region_distribution"`
}

// ComputeProductDepth reports, per watched product, where positive stock sits.
// Stores outside the four named regions count toward the totals but are not
// listed under a region.
func ComputeProductDepth(products []catalog.WatchedProduct, m *Matrix, dir *region.Directory) []ProductDepth {
	var out []ProductDepth
	seen := map[string]bool{}
	for _, p := range products {
		key := p.ProductKey()
		if seen[key] {
			continue
		}
		seen[key] = true

		pd := ProductDepth{ProductKey: key, Regions: make([]RegionDepth, len(region.NamedKeys))}
		pos := make(map[region.Key]int, len(region.NamedKeys))
		for i, k := range region.NamedKeys {
			pd.Regions[i] = RegionDepth{Key: k, Stores: []StoreStock{}}
			pos[k] = i
		}
		for _, store := range m.order {
			n, ok := m.Get(store, key)
			if !ok || n <= 0 {
				continue
			}
			pd.TotalInventory += n
			pd.StoresWithStock++
			rk, ok := region.KeyOf(dir.RegionOf(store))
			if !ok {
				continue
			}
			rd := &pd.Regions[pos[rk]]
			rd.Total += n
			rd.Stores = append(rd.Stores, StoreStock{StoreName: dir.Simplify(store), Stock: n})
		}
		for i := range pd.Regions {
			s := pd.Regions[i].Stores
			sort.SliceStable(s, func(a, b int) bool { return s[a].Stock > s[b].Stock })
		}
		out = append(out, pd)
	}
	return out
}

type KeyStoreLine struct {
	ProductKey string `json:"product_key"`
	Display    string `json:"display_text"`
	Stock      int    `json:"stock_count"`
}

type KeyStoreView struct {
	Store string         `json:"store"`
	Lines []KeyStoreLine `json:"lines"`
}

// ComputeKeyStoreView lists every watched product for each key store, most
// stocked first. Stores missing from the matrix still get one "(无)" line per
// product.
func ComputeKeyStoreView(products []catalog.WatchedProduct, m *Matrix, keyStores []string) []KeyStoreView {
	out := make([]KeyStoreView, 0, len(keyStores))
	for _, store := range keyStores {
		v := KeyStoreView{Store: store, Lines: make([]KeyStoreLine, 0, len(products))}
		for _, p := range products {
			key := p.ProductKey()
			n, ok := m.Get(store, key)
			line := KeyStoreLine{ProductKey: key, Display: key + "(无)"}
			if ok && n > 0 {
				line.Stock = n
				line.Display = fmt.Sprintf("%s(%d件)", key, n)
			}
			v.Lines = append(v.Lines, line)
		}
		sort.SliceStable(v.Lines, func(a, b int) bool { return v.Lines[a].Stock > v.Lines[b].Stock })
		out = append(out, v)
	}
	return out
}

func percent(n, total int) float64 {
	return math.Round(float64(n)/float64(total)*100*100) / 100
}
