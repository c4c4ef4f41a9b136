package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/congressbot/internal/domain"
	"github.com/alanyoungcy/congressbot/internal/exit"
)

func newExitService(t *testing.T, broker domain.Broker, wm domain.WatermarkStore, sink *recordingSink) *ExitService {
	t.Helper()
	policy, err := exit.NewPolicy(exit.PolicyTrailingStop, exit.PolicyConfig{TrailPercent: 0.08, MaxDailyExits: 3})
	require.NoError(t, err)
	return NewExitService(broker, wm, policy, NewReporter(discardLogger(), sink), discardLogger())
}

func TestExitService_SavesOnceEvenWhenEverySellFails(t *testing.T) {
	broker := &fakeBroker{
		positions: []domain.Position{
			{Symbol: "AAA", Quantity: 5, AvgEntryPrice: 100, CurrentPrice: 90},
			{Symbol: "BBB", Quantity: 2, AvgEntryPrice: 10, CurrentPrice: 10.5},
		},
		failSymbols: map[string]bool{"*": true},
	}
	wm := &failingWatermarks{state: domain.WatermarkState{"AAA": 110}}
	sink := &recordingSink{}

	rep := newExitService(t, broker, wm, sink).Run(context.Background(), domain.RunInfo{ID: "r1"})

	require.Len(t, wm.saves, 1)
	assert.Equal(t, domain.WatermarkState{"AAA": 110, "BBB": 10.5}, wm.saves[0])

	require.Len(t, rep.Plan.Sells, 1)
	assert.Equal(t, "AAA", rep.Plan.Sells[0].Symbol)
	assert.Equal(t, []string{"sell:AAA"}, broker.symbols())
	require.Len(t, rep.Orders, 1)
	assert.False(t, rep.Orders[0].Success)

	require.Len(t, sink.orders, 1)
	require.NotNil(t, sink.orders[0].Sell)
	assert.Equal(t, domain.ReasonTrailingStop, sink.orders[0].Sell.Reason)
}

func TestExitService_ZeroQuantityNeverReachesBroker(t *testing.T) {
	broker := &fakeBroker{positions: []domain.Position{
		{Symbol: "FRAC", Quantity: 0.5, AvgEntryPrice: 100, CurrentPrice: 50},
	}}
	wm := &failingWatermarks{state: domain.WatermarkState{"FRAC": 100}}

	rep := newExitService(t, broker, wm, &recordingSink{}).Run(context.Background(), domain.RunInfo{ID: "r1"})

	require.Len(t, rep.Orders, 1)
	assert.False(t, rep.Orders[0].Success)
	assert.Equal(t, domain.ErrZeroQuantity.Error(), rep.Orders[0].Reason)
	assert.Empty(t, broker.symbols())
}

func TestExitService_Degradations(t *testing.T) {
	t.Run("positions unavailable", func(t *testing.T) {
		wm := &failingWatermarks{state: domain.WatermarkState{"OLD": 5}}
		rep := newExitService(t, &fakeBroker{positionErr: errors.New("503")}, wm, &recordingSink{}).
			Run(context.Background(), domain.RunInfo{ID: "r1"})

		require.Len(t, wm.saves, 1, "state is saved even with zero positions")
		assert.Equal(t, domain.WatermarkState{"OLD": 5}, wm.saves[0])
		assert.Len(t, rep.Errors, 1)
		assert.Empty(t, rep.Plan.Sells)
	})

	t.Run("corrupt store is reseeded", func(t *testing.T) {
		wm := &failingWatermarks{loadErr: fmt.Errorf("file: parse trailing_sl.json: %w", domain.ErrCorruptState)}
		broker := &fakeBroker{positions: []domain.Position{{Symbol: "X", Quantity: 1, AvgEntryPrice: 1, CurrentPrice: 2}}}
		rep := newExitService(t, broker, wm, &recordingSink{}).Run(context.Background(), domain.RunInfo{ID: "r1"})

		require.Len(t, wm.saves, 1)
		assert.Equal(t, domain.WatermarkState{"X": 2}, wm.saves[0])
		assert.Len(t, rep.Errors, 1)
	})

	t.Run("unreadable store is never overwritten", func(t *testing.T) {
		wm := &failingWatermarks{
			state:   domain.WatermarkState{"AAA": 200, "BBB": 50},
			loadErr: errors.New("dial tcp: i/o timeout"),
		}
		broker := &fakeBroker{positions: []domain.Position{{Symbol: "AAA", Quantity: 3, AvgEntryPrice: 150, CurrentPrice: 100}}}
		policy, err := exit.NewPolicy(exit.PolicyStopLossTakeProfit, exit.PolicyConfig{StopLoss: -0.05, TakeProfit: 0.10})
		require.NoError(t, err)
		svc := NewExitService(broker, wm, policy, NewReporter(discardLogger(), &recordingSink{}), discardLogger())

		rep := svc.Run(context.Background(), domain.RunInfo{ID: "r1"})

		assert.Empty(t, wm.saves, "stored peaks must not be replaced by current prices")
		assert.Equal(t, domain.WatermarkState{"AAA": 200, "BBB": 50}, wm.state)
		assert.Equal(t, []string{"sell:AAA"}, broker.symbols(), "positions are still evaluated")
		require.Len(t, rep.Errors, 1)
		assert.Contains(t, rep.Errors[0], "i/o timeout")
	})

	t.Run("save failure still sells", func(t *testing.T) {
		wm := &failingWatermarks{state: domain.WatermarkState{"AAA": 200}, saveErr: errors.New("disk full")}
		broker := &fakeBroker{positions: []domain.Position{{Symbol: "AAA", Quantity: 1, AvgEntryPrice: 100, CurrentPrice: 100}}}
		rep := newExitService(t, broker, wm, &recordingSink{}).Run(context.Background(), domain.RunInfo{ID: "r1"})

		assert.Len(t, wm.saves, 1)
		assert.Equal(t, []string{"sell:AAA"}, broker.symbols())
		assert.Contains(t, rep.Errors[0], "disk full")
	})
}
