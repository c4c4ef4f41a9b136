package quiver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/congressbot/internal/domain"
	"github.com/alanyoungcy/congressbot/internal/signal"
)

func TestFetchDisclosures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, BulkPath, r.URL.Path)
		assert.Equal(t, "Token secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"Ticker":"AAPL","Transaction":"Purchase","Trade_Size_USD":150000,"Traded":"2025-03-20","Name":"Jane Doe"},
			{"Ticker":"MSFT","Transaction":"Sale","Trade_Size_USD":null,"Traded":"2025-03-21"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", time.Second)
	records, err := c.FetchDisclosures(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "AAPL", records[0]["Ticker"])
	assert.Equal(t, json.Number("150000"), records[0]["Trade_Size_USD"])

	out, err := signal.Normalize(records, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 150000.0, out[0].TradeSize)
}

func TestFetchDisclosures_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusNotFound, domain.ErrNotFound},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tt.status)
		}))
		c := NewClient(srv.URL, "k", 0)
		_, err := c.FetchDisclosures(context.Background())
		require.ErrorIs(t, err, tt.want)
		srv.Close()
	}
}

func TestFetchDisclosures_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "not a list"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", 0).FetchDisclosures(context.Background())
	require.Error(t, err)
}
