package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// ErrNotFound is returned when Yahoo has no chart for a symbol.
var ErrNotFound = errors.New("symbol not found")

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type ChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Close is a daily closing price.
type Close struct {
	Date  time.Time
	Price float64
}

// GetDailyCloses returns up to days of daily closes for symbol, oldest first.
// Days without a close are skipped.
func (c *Client) GetDailyCloses(ctx context.Context, symbol string, days int) ([]Close, error) {
	endpoint := fmt.Sprintf("%s/%s?interval=1d&range=%dd", c.baseURL, url.PathEscape(symbol), days)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo finance returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var chart ChartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, err
	}

	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNotFound)
	}

	result := chart.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close

	out := make([]Close, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		p := *closes[i]
		if p <= 0 || math.IsNaN(p) {
			continue
		}
		out = append(out, Close{
			Date:  time.Unix(ts, 0).UTC(),
			Price: p,
		})
	}

	return out, nil
}
