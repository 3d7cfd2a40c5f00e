package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ariefcatur/krstock/internal/cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2025, 10, 25, 14, 30, 0, 0, time.UTC) }

func TestAccurateSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "410", r.URL.Query().Get("countryCode"))
		assert.Equal(t, "101710156", r.URL.Query().Get("insCode"))
		_, _ = w.Write([]byte(`{"responseCode":"00","data":[{"convRateNotice":[{"levelInd":"1","discountConvRate":"0.0049634"},{"discountConvRate":"0.0049"}]}]}`))
	}))
	defer srv.Close()

	s := &AccurateSource{URL: srv.URL, Now: fixedNow}
	r, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "49.63", r.PerTenThousand.String())
	assert.Equal(t, SourceAccurate, r.Source)
	assert.Equal(t, "10000韩元=49.63人民币（准确值）", r.DisplayText())
}

func TestAccurateSourceRejectsErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"responseCode":"99","data":[]}`))
	}))
	defer srv.Close()

	_, err := (&AccurateSource{URL: srv.URL}).Fetch(context.Background())
	assert.ErrorIs(t, err, errNoRate)
}

func TestEstimatedSourceFallsBackToYesterday(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/20251025.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"exchangeRateJson":[
			{"transCur":"USD","baseCur":"CNY","rateData":7.1},
			{"transCur":"KRW","baseCur":"CNY","rateData":0.0049684}]}`))
	}))
	defer srv.Close()

	s := &EstimatedSource{BaseURL: srv.URL + "/", Now: fixedNow}
	r, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/20251025.json", "/20251024.json"}, paths)
	assert.Equal(t, "49.63", r.PerTenThousand.String())
	assert.Equal(t, SourceEstimated, r.Source)
	assert.Equal(t, 24, r.AsOf.Day())
}

func TestEstimatedSourceNoPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"exchangeRateJson":[]}`))
	}))
	defer srv.Close()

	_, err := (&EstimatedSource{BaseURL: srv.URL, Now: fixedNow}).Fetch(context.Background())
	assert.ErrorIs(t, err, errNoRate)
}

type stubSource struct {
	name  string
	rate  Rate
	err   error
	calls atomic.Int32
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Fetch(context.Context) (Rate, error) {
	s.calls.Add(1)
	return s.rate, s.err
}

func TestProviderFallbackAndCache(t *testing.T) {
	accurate := &stubSource{name: SourceAccurate, err: assert.AnError}
	estimated := &stubSource{name: SourceEstimated, rate: Rate{PerTenThousand: decimal.RequireFromString("49.58"), Source: SourceEstimated}}
	p := NewProvider(cache.New(cache.NewMemoryBackend(), nil), time.Minute, nil, accurate, estimated)
	ctx := context.Background()

	r, err := p.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceEstimated, r.Source)

	_, err = p.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), accurate.calls.Load())
	assert.Equal(t, int32(1), estimated.calls.Load())
}

func TestProviderUnavailable(t *testing.T) {
	bad := &stubSource{name: "x", err: assert.AnError}
	p := NewProvider(cache.New(cache.NewMemoryBackend(), nil), time.Minute, nil, bad)
	ctx := context.Background()

	_, err := p.Current(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = p.Current(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), bad.calls.Load(), "failures are not cached")

	c := p.Converter(ctx)
	assert.False(t, c.Available())
	_, ok := c.Convert(decimal.NewFromInt(10000))
	assert.False(t, ok)
}

func TestConverter(t *testing.T) {
	c := NewConverter(Rate{PerTenThousand: decimal.RequireFromString("49.63")})
	v, ok := c.Convert(decimal.NewFromInt(945000))
	require.True(t, ok)
	assert.Equal(t, "4690", v.String())

	assert.False(t, NewConverter(Rate{}).Available())
}
