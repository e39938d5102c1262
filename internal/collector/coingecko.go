package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"DipTracker/internal/model"
)

const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoFetcher implements PriceSource using the public CoinGecko REST API.
type CoinGeckoFetcher struct {
	BaseURL    string
	VsCurrency string
	Client     *http.Client
	Retrier    *Retrier
	Limiter    *rate.Limiter // optional request ceiling, nil disables
}

// NewCoinGeckoFetcher creates a fetcher with optional proxy support.
// requestsPerMinute <= 0 leaves pacing to the Retrier's fixed delay.
func NewCoinGeckoFetcher(baseURL, proxyURL string, timeout time.Duration, retrier *Retrier, requestsPerMinute int) *CoinGeckoFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	f := &CoinGeckoFetcher{
		BaseURL:    baseURL,
		VsCurrency: "usd",
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		Retrier: retrier,
	}
	if requestsPerMinute > 0 {
		f.Limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	return f
}

func (f *CoinGeckoFetcher) Name() string { return "coingecko" }

// marketChart is the response of /coins/{id}/market_chart/range.
// Each entry is [timestamp_ms, price].
type marketChart struct {
	Prices [][2]float64 `json:"prices"`
}

func (f *CoinGeckoFetcher) HistoricalPrices(ctx context.Context, coin string, period model.Period) ([]model.PricePoint, error) {
	return f.fetchRange(ctx, coin, period.Start.Unix(), period.End.Unix())
}

// PriceAt reads a one-hour window that ends at the start of asOf's UTC day and
// returns its first sample. The API has no point-in-time query for past dates.
func (f *CoinGeckoFetcher) PriceAt(ctx context.Context, coin string, asOf time.Time) (float64, error) {
	from, to := PriceWindow(asOf)
	points, err := f.fetchRange(ctx, coin, from.Unix(), to.Unix())
	if err != nil {
		return 0, err
	}
	if len(points) == 0 {
		return 0, fmt.Errorf("price of %s at %s: %w", coin, asOf.Format("2006-01-02"), ErrNoData)
	}
	return points[0].Price, nil
}

// PriceWindow returns the [from, to) range queried by PriceAt.
func PriceWindow(asOf time.Time) (from, to time.Time) {
	day := asOf.UTC().Truncate(24 * time.Hour)
	from = day.Add(-time.Hour)
	return from, from.Add(time.Hour)
}

func (f *CoinGeckoFetcher) fetchRange(ctx context.Context, coin string, from, to int64) ([]model.PricePoint, error) {
	q := url.Values{}
	q.Set("vs_currency", f.VsCurrency)
	q.Set("from", strconv.FormatInt(from, 10))
	q.Set("to", strconv.FormatInt(to, 10))
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart/range?%s", f.BaseURL, url.PathEscape(coin), q.Encode())

	var chart marketChart
	op := fmt.Sprintf("market_chart/range %s [%d, %d]", coin, from, to)
	err := f.retrier().Do(ctx, op, func() error {
		c, err := f.get(ctx, endpoint)
		if err != nil {
			return err
		}
		chart = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	points := make([]model.PricePoint, len(chart.Prices))
	for i, p := range chart.Prices {
		points[i] = model.PricePoint{
			Time:  time.UnixMilli(int64(p[0])).UTC(),
			Price: p[1],
		}
	}
	return points, nil
}

func (f *CoinGeckoFetcher) get(ctx context.Context, endpoint string) (marketChart, error) {
	var chart marketChart
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return chart, fmt.Errorf("rate limiter: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return chart, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.Client.Do(req)
	if err != nil {
		return chart, fmt.Errorf("fetch prices: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return chart, fmt.Errorf("fetch prices: status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return chart, fmt.Errorf("decode prices: %w", err)
	}
	return chart, nil
}

func (f *CoinGeckoFetcher) retrier() *Retrier {
	if f.Retrier == nil {
		f.Retrier = NewRetrier(DefaultMaxAttempts, DefaultRateLimitDelay, DefaultRetryDelay)
	}
	return f.Retrier
}
