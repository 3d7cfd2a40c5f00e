package inventory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ariefcatur/krstock/internal/region"
)

type StockFilter string

const (
	StockAny  StockFilter = "any"
	StockHas  StockFilter = "has-stock"
	StockNone StockFilter = "no-stock"
)

type SortOption string

const (
	SortNone      SortOption = "none"
	SortTotalDesc SortOption = "total-stock-desc"
	SortTotalAsc  SortOption = "total-stock-asc"
)

func ParseStockFilter(s string) (StockFilter, error) {
	switch strings.TrimSpace(s) {
	case "", "any", "全部":
		return StockAny, nil
	case "has-stock", "有库存":
		return StockHas, nil
	case "no-stock", "无库存":
		return StockNone, nil
	}
	return StockAny, fmt.Errorf("unknown stock filter %q", s)
}

func ParseSortOption(s string) (SortOption, error) {
	switch strings.TrimSpace(s) {
	case "", "none", "默认":
		return SortNone, nil
	case "total-stock-desc", "库存总量降序":
		return SortTotalDesc, nil
	case "total-stock-asc", "库存总量升序":
		return SortTotalAsc, nil
	}
	return SortNone, fmt.Errorf("unknown sort option %q", s)
}

type Filter struct {
	Stock  StockFilter   `json:"stock"`
	Region region.Region `json:"region"` // Unknown means any
	Sort   SortOption    `json:"sort"`
}

// FilterAndSort returns a new matrix; m is not modified. Sorting is stable.
func FilterAndSort(m *Matrix, dir *region.Directory, f Filter) *Matrix {
	kept := make([]string, 0, m.Len())
	for _, store := range m.order {
		switch f.Stock {
		case StockHas:
			if !m.HasStock(store) {
				continue
			}
		case StockNone:
			if m.HasStock(store) {
				continue
			}
		}
		if f.Region != region.Unknown && dir.RegionOf(store) != f.Region {
			continue
		}
		kept = append(kept, store)
	}

	switch f.Sort {
	case SortTotalDesc:
		sort.SliceStable(kept, func(i, j int) bool { return m.TotalStock(kept[i]) > m.TotalStock(kept[j]) })
	case SortTotalAsc:
		sort.SliceStable(kept, func(i, j int) bool { return m.TotalStock(kept[i]) < m.TotalStock(kept[j]) })
	}

	out := NewMatrix()
	for _, store := range kept {
		m.copyStore(out, store)
	}
	return out
}
