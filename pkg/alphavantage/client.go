package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
)

const DefaultBaseURL = "https://www.alphavantage.co/query"

// ErrNotFound is returned when Alpha Vantage does not know a symbol.
var ErrNotFound = errors.New("symbol not found")

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type DailySeriesResponse struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Series       map[string]struct {
		Close string `json:"4. close"`
	} `json:"Time Series (Daily)"`
}

// Close is a daily closing price.
type Close struct {
	Date  time.Time
	Price float64
}

// GetDailyCloses returns the compact (last 100 sessions) daily series for symbol,
// oldest first.
func (c *Client) GetDailyCloses(ctx context.Context, symbol string) ([]Close, error) {
	q := url.Values{}
	q.Set("function", "TIME_SERIES_DAILY")
	q.Set("symbol", symbol)
	q.Set("outputsize", "compact")
	q.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alpha vantage returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var series DailySeriesResponse
	if err := json.Unmarshal(body, &series); err != nil {
		return nil, err
	}

	if series.ErrorMessage != "" {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNotFound)
	}
	if series.Note != "" {
		// Rate limit notices come back as 200 with a Note.
		return nil, fmt.Errorf("alpha vantage: %s", series.Note)
	}

	out := make([]Close, 0, len(series.Series))
	for day, bar := range series.Series {
		d, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}
		price, err := strconv.ParseFloat(bar.Close, 64)
		if err != nil || price <= 0 {
			continue
		}
		out = append(out, Close{Date: d, Price: price})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	return out, nil
}
