package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDirectoryLoads(t *testing.T) {
	d := Default()
	assert.Len(t, d.KeyStores(), 11)
	assert.NotEmpty(t, d.Translations)
}

func TestRegionLookups(t *testing.T) {
	d := Default()

	assert.Equal(t, Seoul, d.RegionOf("始祖鸟旗舰店江南"))
	assert.Equal(t, DaeguCity, d.RegionOf("始祖鸟大邱新世界"))
	assert.Equal(t, Unknown, d.RegionOf("始祖鸟光州新世界"))
	assert.Equal(t, Unknown, d.RegionOf("no such store"))

	k, ok := KeyOf(BusanCity)
	assert.True(t, ok)
	assert.Equal(t, KeyBusan, k)

	_, ok = KeyOf(Unknown)
	assert.False(t, ok)
	assert.Equal(t, KeyOther, HeatKeyOf(Unknown))
	assert.Equal(t, KeyGyeonggi, HeatKeyOf(GyeonggiDo))
}

func TestTranslateAndSimplify(t *testing.T) {
	d := Default()

	assert.Equal(t, "始祖鸟釜山店", d.Translate("아크테릭스 부산점"))
	assert.Equal(t, "untranslated", d.Translate("untranslated"))

	assert.Equal(t, "釜山店", d.Simplify("始祖鸟釜山店"))
	assert.Equal(t, "Other Store", d.Simplify("Other Store"))
}

func TestKeyStoresIsACopy(t *testing.T) {
	d := Default()
	ks := d.KeyStores()
	ks[0] = "mutated"
	assert.NotEqual(t, "mutated", d.KeyStores()[0])
}

func TestParseRejectsUnknownRegion(t *testing.T) {
	_, err := Parse([]byte("regions:\n  a: 火星\n"))
	require.Error(t, err)
}

func TestParseRegion(t *testing.T) {
	r, err := ParseRegion("")
	require.NoError(t, err)
	assert.Equal(t, Unknown, r)

	r, err = ParseRegion("釜山")
	require.NoError(t, err)
	assert.Equal(t, BusanCity, r)

	_, err = ParseRegion("Tokyo")
	assert.Error(t, err)
}
