package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultAccurateURL  = "https://marketing.unionpayintl.com/h5Rate/rate/getRateInfoByCountryCode"
	DefaultEstimatedURL = "https://www.unionpayintl.com/upload/jfimg/"
)

var errNoRate = errors.New("no KRW/CNY rate in response")

var tenThousand = decimal.NewFromInt(10000)

// AccurateSource reads the card network's preferential rate for Korea.
type AccurateSource struct {
	URL    string
	Client *http.Client
	Now    func() time.Time
}

type accurateResponse struct {
	ResponseCode string `json:"responseCode"`
	Data         []struct {
		ConvRateNotice []struct {
			DiscountConvRate decimal.Decimal `json:"discountConvRate"`
		} `json:"convRateNotice"`
	} `json:"data"`
}

func (s *AccurateSource) Name() string { return SourceAccurate }

func (s *AccurateSource) Fetch(ctx context.Context) (Rate, error) {
	q := url.Values{}
	q.Set("insCode", "101710156")
	q.Set("channelCode", "")
	q.Set("countryCode", "410")
	q.Set("language", "zh")
	q.Set("currCode", "410")

	var body accurateResponse
	if err := getJSON(ctx, s.Client, orDefault(s.URL, DefaultAccurateURL)+"?"+q.Encode(), &body); err != nil {
		return Rate{}, err
	}
	if body.ResponseCode != "00" || len(body.Data) == 0 || len(body.Data[0].ConvRateNotice) == 0 {
		return Rate{}, errNoRate
	}
	v := body.Data[0].ConvRateNotice[0].DiscountConvRate
	if !v.IsPositive() {
		return Rate{}, errNoRate
	}
	return Rate{PerTenThousand: v.Mul(tenThousand).Round(2), Source: SourceAccurate, AsOf: now(s.Now)}, nil
}

// EstimatedSource derives a rate from the published daily rate file, trying
// today's file and then yesterday's.
type EstimatedSource struct {
	BaseURL string
	Client  *http.Client
	Now     func() time.Time
}

type dailyFile struct {
	ExchangeRateJSON []struct {
		TransCur string          `json:"transCur"`
		BaseCur  string          `json:"baseCur"`
		RateData decimal.Decimal `json:"rateData"`
	} `json:"exchangeRateJson"`
}

// estimateSpread is subtracted from the published rate to approximate the
// preferential one.
var estimateSpread = decimal.RequireFromString("0.05")

func (s *EstimatedSource) Name() string { return SourceEstimated }

func (s *EstimatedSource) Fetch(ctx context.Context) (Rate, error) {
	today := now(s.Now)
	base := strings.TrimSuffix(orDefault(s.BaseURL, DefaultEstimatedURL), "/")
	var errs []error
	for _, day := range []time.Time{today, today.AddDate(0, 0, -1)} {
		var f dailyFile
		if err := getJSON(ctx, s.Client, base+"/"+day.Format("20060102")+".json", &f); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", day.Format("20060102"), err))
			continue
		}
		for _, r := range f.ExchangeRateJSON {
			if r.TransCur == "KRW" && r.BaseCur == "CNY" && r.RateData.IsPositive() {
				per := r.RateData.Mul(tenThousand).Sub(estimateSpread).Round(2)
				asOf := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
				return Rate{PerTenThousand: per, Source: SourceEstimated, AsOf: asOf}, nil
			}
		}
		errs = append(errs, fmt.Errorf("%s: %w", day.Format("20060102"), errNoRate))
	}
	return Rate{}, errors.Join(errs...)
}

func getJSON(ctx context.Context, c *http.Client, u string, out any) error {
	if c == nil {
		c = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("rate endpoint returned %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode rate response: %w", err)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func now(f func() time.Time) time.Time {
	if f == nil {
		return time.Now()
	}
	return f()
}
