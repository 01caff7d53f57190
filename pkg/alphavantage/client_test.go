package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDailyCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TIME_SERIES_DAILY", r.URL.Query().Get("function"))
		assert.Equal(t, "AAA", r.URL.Query().Get("symbol"))
		assert.Equal(t, "key", r.URL.Query().Get("apikey"))
		w.Write([]byte(`{"Meta Data":{},"Time Series (Daily)":{
			"2024-01-03":{"4. close":"12.00"},
			"2024-01-02":{"4. close":"11.50"}}}`))
	}))
	defer srv.Close()

	closes, err := NewClient("key", srv.URL).GetDailyCloses(context.Background(), "AAA")
	require.NoError(t, err)
	require.Len(t, closes, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), closes[0].Date)
	assert.Equal(t, 11.5, closes[0].Price)
	assert.Equal(t, 12.0, closes[1].Price)
}

func TestGetDailyCloses_UnknownSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Error Message":"Invalid API call."}`))
	}))
	defer srv.Close()

	_, err := NewClient("key", srv.URL).GetDailyCloses(context.Background(), "ZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetDailyCloses_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Note":"Thank you for using Alpha Vantage!"}`))
	}))
	defer srv.Close()

	_, err := NewClient("key", srv.URL).GetDailyCloses(context.Background(), "AAA")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
