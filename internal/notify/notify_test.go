package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/congressbot/internal/domain"
)

type message struct{ title, body string }

type fakeSender struct {
	name string
	err  error
	got  []message
}

func (f *fakeSender) Send(_ context.Context, title, body string) error {
	f.got = append(f.got, message{title, body})
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifier_FiltersEvents(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, []string{EventRunFinished, " "}, discardLogger())

	require.NoError(t, n.Notify(context.Background(), EventOrderPlaced, "t", "m"))
	require.NoError(t, n.Notify(context.Background(), EventRunFinished, "t", "m"))
	assert.Len(t, s.got, 1)

	all := NewNotifier([]Sender{s}, nil, discardLogger())
	assert.True(t, all.Enabled(EventSell))
	assert.False(t, NewNotifier(nil, nil, discardLogger()).Enabled(EventSell))
}

func TestNotifier_OneSenderFailureDoesNotStopOthers(t *testing.T) {
	bad := &fakeSender{name: "bad", err: errors.New("boom")}
	good := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.Notify(context.Background(), EventError, "t", "m")
	require.ErrorContains(t, err, "bad: boom")
	assert.Len(t, good.got, 1)
}

func TestTelegramSender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "42", body["chat_id"])
		assert.Equal(t, "*Title*\nbody", body["text"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender("TOKEN", "42").WithBaseURL(srv.URL + "/")
	require.NoError(t, s.Send(context.Background(), "Title", "body"))
}

func TestDiscordSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad webhook"))
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord: unexpected status 400: bad webhook")
}

func TestSink_OrderPlaced(t *testing.T) {
	s := &fakeSender{name: "fake"}
	sink := NewSink(NewNotifier([]Sender{s}, nil, discardLogger()))
	run := domain.RunInfo{ID: "r1"}
	ctx := context.Background()

	sell := domain.SellInstruction{
		Symbol: "MSFT", Quantity: 5, CurrentPrice: 90, CostBasis: 100, Highest: 110,
		Drawdown: 0.181818, PL: -0.1, Reason: domain.ReasonTrailingStop,
	}
	require.NoError(t, sink.OrderPlaced(ctx, run, domain.OrderReport{
		Result: domain.OrderResult{Symbol: "MSFT", Side: domain.OrderSideSell, Quantity: 5, Success: true},
		Sell:   &sell,
	}))
	require.NoError(t, sink.OrderPlaced(ctx, run, domain.OrderReport{
		Result: domain.OrderResult{Symbol: "NVDA", Side: domain.OrderSideBuy, Quantity: 1, Reason: "rejected"},
	}))

	require.Len(t, s.got, 2)
	assert.Equal(t, "Sold MSFT", s.got[0].title)
	assert.Equal(t, "MSFT qty 5 @ 90.00 (cost 100.00, high 110.00, drop 18.18%, P/L -10.00%) reason: trailing_stop", s.got[0].body)
	assert.Equal(t, "Order failed: BUY NVDA", s.got[1].title)
	assert.Contains(t, s.got[1].body, "rejected")
}

func TestSink_RunFinished(t *testing.T) {
	s := &fakeSender{name: "fake"}
	sink := NewSink(NewNotifier([]Sender{s}, nil, discardLogger()))

	sum := domain.RunSummary{
		Run:        domain.RunInfo{ID: "r1"},
		Buy:        domain.BuyReport{Fetched: 12, Retained: 3, Fatal: errors.New("feed down")},
		Exit:       domain.ExitReport{Errors: []string{"positions: timeout"}},
		TradesMade: 0,
		Errors:     2,
	}
	require.NoError(t, sink.RunFinished(context.Background(), sum))

	require.Len(t, s.got, 2)
	assert.Contains(t, s.got[0].body, "disclosures: 12 fetched, 3 in window")
	assert.Contains(t, s.got[0].body, "trades made: 0, errors: 2")
	assert.Equal(t, "buy phase: feed down\npositions: timeout", s.got[1].body)
}
