package app

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/congressbot/internal/config"
	"github.com/alanyoungcy/congressbot/internal/platform/alpaca"
	"github.com/alanyoungcy/congressbot/internal/store/file"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeMarket serves the disclosure feed and a minimal brokerage API.
type fakeMarket struct {
	mu     sync.Mutex
	orders []alpaca.OrderRequest
}

func (m *fakeMarket) handler(t *testing.T) http.Handler {
	today := time.Now().UTC().Format("2006-01-02")
	mux := http.NewServeMux()

	mux.HandleFunc("GET /beta/bulk/congresstrading", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token qk", r.Header.Get("Authorization"))
		fmt.Fprintf(w, `[
			{"Ticker":"NVDA","Transaction":"Buy","Traded":%q,"Trade_Size_USD":150000,"excess_return":0.1,"Name":"A"},
			{"Ticker":"AAPL","Transaction":"Sell","Traded":%q,"Trade_Size_USD":5000,"excess_return":-0.2,"Name":"B"},
			{"Ticker":"OLD","Transaction":"Buy","Traded":"2001-01-01","Trade_Size_USD":500000,"excess_return":0.5,"Name":"C"}
		]`, today, today)
	})
	mux.HandleFunc("GET /v2/positions", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"symbol":"TSLA","qty":"2","avg_entry_price":"100","current_price":"80"}]`))
	})
	mux.HandleFunc("GET /v2/stocks/{sym}/quotes/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"symbol":%q,"quote":{"ap":20,"bp":19.9}}`, r.PathValue("sym"))
	})
	mux.HandleFunc("POST /v2/orders", func(w http.ResponseWriter, r *http.Request) {
		var req alpaca.OrderRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		m.mu.Lock()
		m.orders = append(m.orders, req)
		n := len(m.orders)
		m.mu.Unlock()
		fmt.Fprintf(w, `{"id":"ord-%d","client_order_id":%q,"symbol":%q,"status":"accepted"}`, n, req.ClientOrderID, req.Symbol)
	})
	return mux
}

func (m *fakeMarket) placed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o.Side+":"+o.Symbol+":"+o.Qty)
	}
	return out
}

func onceConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Mode = "once"
	cfg.Quiver.BaseURL = baseURL
	cfg.Quiver.APIKey = "qk"
	cfg.Alpaca.TradingURL = baseURL
	cfg.Alpaca.DataURL = baseURL
	cfg.Alpaca.KeyID = "ak"
	cfg.Alpaca.SecretKey = "as"
	cfg.Watermark.Path = filepath.Join(dir, "trailing_sl.json")
	cfg.Exit.SalesLogPath = filepath.Join(dir, "sales_log.csv")
	require.NoError(t, cfg.Validate())
	return &cfg
}

func TestOnceMode_EndToEnd(t *testing.T) {
	market := &fakeMarket{}
	ts := httptest.NewServer(market.handler(t))
	defer ts.Close()

	cfg := onceConfig(t, ts.URL)
	seed, err := file.EncodeState(map[string]float64{"TSLA": 120})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfg.Watermark.Path, seed, 0o600))

	a := New(cfg, discard)
	defer a.Close()
	require.NoError(t, a.Run(context.Background()))

	// NVDA scores 3+2+2+1 and is bought with the whole budget at the ask;
	// TSLA is a third below its high and trips the 8% trailing stop.
	assert.Equal(t, []string{"buy:NVDA:2", "sell:TSLA:2"}, market.placed())

	state, err := file.NewWatermarkStore(cfg.Watermark.Path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120.0, state["TSLA"], "the high-water mark never moves down")

	f, err := os.Open(cfg.Exit.SalesLogPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "TSLA", rows[1][3])
	assert.Equal(t, "trailing_stop", rows[1][10])
}

func TestWire_Defaults(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "server"
	cfg.Watermark.Backend = "memory"

	deps, cleanup, err := Wire(context.Background(), &cfg, discard)
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, deps.Broker, "no credentials in server mode is not fatal")
	assert.NotNil(t, deps.Runs)
	assert.NotNil(t, deps.SignalBus)
	assert.Nil(t, deps.Signals)
	assert.Nil(t, deps.Archiver)
	assert.Empty(t, deps.HealthChecks)

	a := New(&cfg, discard)
	sinks := a.reportSinks(deps)
	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"bus", "sales_log"}, names)
}

func TestWire_TradingModeNeedsBroker(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "once"
	cfg.Alpaca.KeyID = "ak"
	cfg.Alpaca.EncryptedSecretPath = filepath.Join(t.TempDir(), "missing.enc")
	cfg.Alpaca.SecretPassword = "pw"

	_, _, err := Wire(context.Background(), &cfg, discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wire: alpaca")
}
