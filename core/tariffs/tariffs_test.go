package tariffs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rec-operation/lem-api/core/registry"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 5, 16, hour, minute, 0, 0, time.UTC)
}

func TestBuyRateSimples(t *testing.T) {
	assert.Equal(t, 0.1665, BuyRate(registry.CycleSimples, at(3, 0)))
	assert.Equal(t, 0.1665, BuyRate(registry.CycleSimples, at(19, 0)))
}

func TestBuyRateBiHoraria(t *testing.T) {
	// off-peak runs 22:00 to 08:00
	assert.Equal(t, 0.1085, BuyRate(registry.CycleBi, at(23, 0)))
	assert.Equal(t, 0.1085, BuyRate(registry.CycleBi, at(7, 45)))
	assert.Equal(t, 0.1952, BuyRate(registry.CycleBi, at(8, 0)))
	assert.Equal(t, 0.1952, BuyRate(registry.CycleBi, at(21, 45)))
}

func TestBuyRateTriHoraria(t *testing.T) {
	assert.Equal(t, 0.1072, BuyRate(registry.CycleTri, at(2, 0)))
	// peak windows: 09:00-10:30 and 18:00-20:30
	assert.Equal(t, 0.2399, BuyRate(registry.CycleTri, at(9, 0)))
	assert.Equal(t, 0.2399, BuyRate(registry.CycleTri, at(10, 15)))
	assert.Equal(t, 0.1792, BuyRate(registry.CycleTri, at(10, 30)))
	assert.Equal(t, 0.2399, BuyRate(registry.CycleTri, at(20, 15)))
	assert.Equal(t, 0.1792, BuyRate(registry.CycleTri, at(20, 30)))
	assert.Equal(t, 0.1792, BuyRate(registry.CycleTri, at(14, 0)))
}

func TestSeries(t *testing.T) {
	horizon := []time.Time{at(7, 45), at(8, 0)}

	buy := BuySeries(registry.CycleBi, horizon)
	assert.Equal(t, []float64{0.1085, 0.1952}, buy)

	sell := SellSeries(buy)
	assert.InDelta(t, 0.1085*0.25, sell[0], 1e-12)
	assert.InDelta(t, 0.1952*0.25, sell[1], 1e-12)

	sc := SelfConsumptionSeries(horizon)
	assert.Equal(t, []float64{0.0272, 0.0272}, sc)
}
