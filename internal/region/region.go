package region

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Region string

const (
	Unknown    Region = ""
	Seoul      Region = "首尔城区"
	GyeonggiDo Region = "京畿道地区"
	BusanCity  Region = "釜山"
	DaeguCity  Region = "大邱"
)

// Key is an aggregation cluster used by the heatmap and depth views.
type Key string

const (
	KeySeoulMetro Key = "首尔圈"
	KeyGyeonggi   Key = "京畿道圈"
	KeyBusan      Key = "釜山圈"
	KeyDaegu      Key = "大邱圈"
	KeyOther      Key = "其他地区"
)

var keyOf = map[Region]Key{
	Seoul:      KeySeoulMetro,
	GyeonggiDo: KeyGyeonggi,
	BusanCity:  KeyBusan,
	DaeguCity:  KeyDaegu,
}

// NamedKeys is the fixed output order for per-region breakdowns.
var NamedKeys = []Key{KeySeoulMetro, KeyGyeonggi, KeyBusan, KeyDaegu}

var HeatKeys = []Key{KeySeoulMetro, KeyGyeonggi, KeyBusan, KeyDaegu, KeyOther}

//go:embed directory.yaml
var defaultDirectory []byte

type Directory struct {
	Prefix       string            `yaml:"prefix"`
	Translations map[string]string `yaml:"translations"`
	Regions      map[string]Region `yaml:"regions"`
	KeyStoreList []string          `yaml:"key_stores"`
}

func Default() *Directory {
	d, err := Parse(defaultDirectory)
	if err != nil {
		panic(fmt.Sprintf("region: embedded directory: %v", err))
	}
	return d
}

func Parse(b []byte) (*Directory, error) {
	var d Directory
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode directory: %w", err)
	}
	for store, r := range d.Regions {
		if _, ok := keyOf[r]; !ok {
			return nil, fmt.Errorf("store %q: unknown region %q", store, r)
		}
	}
	if d.Translations == nil {
		d.Translations = map[string]string{}
	}
	if d.Regions == nil {
		d.Regions = map[string]Region{}
	}
	return &d, nil
}

// LoadFile reads a directory from path; an empty path yields the embedded one.
func LoadFile(path string) (*Directory, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// RegionOf returns Unknown for stores missing from the table.
func (d *Directory) RegionOf(store string) Region {
	return d.Regions[store]
}

// KeyOf reports false for Unknown or unrecognised regions.
func KeyOf(r Region) (Key, bool) {
	k, ok := keyOf[r]
	return k, ok
}

// HeatKeyOf folds regions without a key into KeyOther.
func HeatKeyOf(r Region) Key {
	if k, ok := keyOf[r]; ok {
		return k
	}
	return KeyOther
}

func (d *Directory) Translate(native string) string {
	if v, ok := d.Translations[native]; ok {
		return v
	}
	return native
}

func (d *Directory) Simplify(display string) string {
	if d.Prefix != "" && strings.HasPrefix(display, d.Prefix) {
		return strings.TrimPrefix(display, d.Prefix)
	}
	return display
}

func (d *Directory) KeyStores() []string {
	out := make([]string, len(d.KeyStoreList))
	copy(out, d.KeyStoreList)
	return out
}

func Named() []Region {
	return []Region{Seoul, GyeonggiDo, BusanCity, DaeguCity}
}

// ParseRegion accepts "" (any) or one of the named regions.
func ParseRegion(s string) (Region, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "全部" || strings.EqualFold(s, "any") {
		return Unknown, nil
	}
	for _, r := range Named() {
		if string(r) == s {
			return r, nil
		}
	}
	return Unknown, fmt.Errorf("unknown region %q", s)
}
