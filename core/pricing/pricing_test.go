package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rec-operation/lem-api/core/model"
)

func testDataset() *model.MeterDataset {
	start := time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC)
	return &model.MeterDataset{
		Horizon: []time.Time{start, start.Add(model.Step)},
		Meters: map[string][]model.MeterPoint{
			"buyer": {
				{EC: 1.0, EG: 0.0, BuyTariff: 0.20, SellTariff: 0.05},
				{EC: 0.5, EG: 0.0, BuyTariff: 0.20, SellTariff: 0.05},
			},
			"seller": {
				{EC: 0.0, EG: 0.8, BuyTariff: 0.16, SellTariff: 0.04},
				{EC: 0.2, EG: 0.2, BuyTariff: 0.16, SellTariff: 0.04},
			},
		},
	}
}

func TestBuildBooks(t *testing.T) {
	books := BuildBooks(testDataset())
	if len(books) != 2 {
		t.Fatalf("expected 2 books, got %d", len(books))
	}
	if len(books[0].Buys) != 1 || len(books[0].Sells) != 1 {
		t.Fatalf("unexpected first book: %+v", books[0])
	}
	assert.Equal(t, "buyer", books[0].Buys[0].Origin)
	assert.InDelta(t, 1.0, books[0].Buys[0].Amount, 1e-9)
	assert.InDelta(t, 0.20, books[0].Buys[0].Value, 1e-9)
	assert.Equal(t, "seller", books[0].Sells[0].Origin)
	assert.InDelta(t, 0.8, books[0].Sells[0].Amount, 1e-9)
	assert.InDelta(t, 0.04, books[0].Sells[0].Value, 1e-9)

	// the second step has no net positions for the seller
	if len(books[1].Sells) != 0 {
		t.Fatalf("expected no selling offers on second step, got %+v", books[1].Sells)
	}
}

func TestCrossingValue(t *testing.T) {
	book := Book{
		Buys:  []Offer{{Origin: "a", Amount: 1, Value: 0.20}},
		Sells: []Offer{{Origin: "b", Amount: 1, Value: 0.04}},
	}
	assert.InDelta(t, 0.12, CrossingValue(book), 1e-9)
}

func TestCrossingValueNoCross(t *testing.T) {
	book := Book{
		Buys:  []Offer{{Origin: "a", Amount: 1, Value: 0.04}},
		Sells: []Offer{{Origin: "b", Amount: 1, Value: 0.20}},
	}
	assert.Zero(t, CrossingValue(book))
}

func TestCrossingValueEmptySide(t *testing.T) {
	assert.Zero(t, CrossingValue(Book{Buys: []Offer{{Amount: 1, Value: 0.2}}}))
	assert.Zero(t, CrossingValue(Book{Sells: []Offer{{Amount: 1, Value: 0.2}}}))
}

func TestMMR(t *testing.T) {
	book := Book{
		Buys:  []Offer{{Amount: 1, Value: 0.20}, {Amount: 1, Value: 0.16}},
		Sells: []Offer{{Amount: 1, Value: 0.04}, {Amount: 1, Value: 0.06}},
	}
	// (0.16 + 0.06) / 2
	assert.InDelta(t, 0.11, MMR(book, 2), 1e-9)
	// divisor above 2 favors buyers
	assert.Less(t, MMR(book, 4), MMR(book, 2))
}

func TestSDRBalancedSupply(t *testing.T) {
	book := Book{
		Buys:  []Offer{{Amount: 1, Value: 0.20}},
		Sells: []Offer{{Amount: 1, Value: 0.04}},
	}
	// supply equals demand, so the price lands on the sellers' cost
	assert.InDelta(t, 0.04, SDR(book, 0), 1e-9)
}

func TestSDRNoSupply(t *testing.T) {
	book := Book{Buys: []Offer{{Amount: 1, Value: 0.20}}}
	assert.InDelta(t, 0.20, SDR(book, 0), 1e-9)
}

func TestSDRSurplusCompensation(t *testing.T) {
	book := Book{
		Buys:  []Offer{{Amount: 1, Value: 0.20}},
		Sells: []Offer{{Amount: 4, Value: 0.04}},
	}
	low := SDR(book, 0)
	high := SDR(book, 1)
	assert.InDelta(t, 0.04, low, 1e-9)
	assert.InDelta(t, 0.20, high, 1e-9)
	assert.Greater(t, SDR(book, 0.5), low)
}

func TestClearSelectsMechanism(t *testing.T) {
	ds := testDataset()
	books := BuildBooks(ds)
	params := model.PricingParams{MMRDivisor: 2}

	cv := Clear(model.MechanismCrossingValue, books, params)
	mmr := Clear(model.MechanismMMR, books, params)
	if len(cv) != len(books) || len(mmr) != len(books) {
		t.Fatalf("expected one price per book")
	}
	assert.InDelta(t, 0.12, cv[0], 1e-9)
	assert.InDelta(t, 0.12, mmr[0], 1e-9)
}

func TestOutputs(t *testing.T) {
	ds := testDataset()
	books := BuildBooks(ds)
	prices := Clear(model.MechanismCrossingValue, books, model.PricingParams{})

	lemPrices, offers := Outputs(books, prices, ds.Horizon)
	if len(lemPrices) != 2 {
		t.Fatalf("expected 2 prices, got %d", len(lemPrices))
	}
	assert.Equal(t, ds.Horizon[0], lemPrices[0].Datetime)
	if len(offers) != 3 {
		t.Fatalf("expected 3 offers, got %d", len(offers))
	}
	for _, o := range offers {
		assert.GreaterOrEqual(t, o.Amount, 0.0)
	}
}
