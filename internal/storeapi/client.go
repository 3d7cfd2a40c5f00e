package storeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/krstock/internal/catalog"
	"github.com/ariefcatur/krstock/internal/stock"
	"go.uber.org/zap"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Client talks to the retailer's JSON API (store stock and product search).
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    struct {
		Rows []T `json:"rows"`
	} `json:"data"`
}

// Lookup implements stock.Source.
func (c *Client) Lookup(ctx context.Context, sku string) ([]stock.Entry, error) {
	q := url.Values{}
	q.Set("limit", "0")
	q.Set("page", "1")
	q.Set("local_code", "")
	q.Set("search_keyword", "")
	q.Set("product_option_id", sku)
	q.Set("orderby", "store_sort|asc")

	var env envelope[stock.Entry]
	if err := c.getJSON(ctx, "/api/stores", q, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, nil
	}
	return env.Data.Rows, nil
}

type productRow struct {
	ProductID json.Number `json:"product_id"`
}

// SearchProductIDs implements catalog.Source.
func (c *Client) SearchProductIDs(ctx context.Context, model string, gender catalog.Gender) ([]string, error) {
	q := url.Values{}
	q.Set("page", "1")
	q.Set("display_size", strconv.Itoa(16))
	q.Set("is_filter", "0")
	q.Set("search_keyword", model)
	q.Set("sort", "NEWDESC")
	if gender != "" && gender != catalog.GenderBackpack {
		q.Set("f_gender[]", string(gender))
	}

	var env envelope[productRow]
	if err := c.getJSON(ctx, "/api/products/search", q, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, nil
	}
	ids := make([]string, 0, len(env.Data.Rows))
	for _, r := range env.Data.Rows {
		ids = append(ids, r.ProductID.String())
	}
	return ids, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("store api request failed", zap.String("path", path), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("store api %s returned %d: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
