// Package pricing clears local energy market sessions. One session is held
// per 15-minute step of the horizon: meters with a positive net load place
// buying offers at their retail buy tariff, meters with a negative net load
// place selling offers at their retail sell tariff, and the configured
// mechanism computes a single clearing price for the step.
package pricing

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/rec-operation/lem-api/core/model"
)

// Offer is one side of a potential LEM trade at a single time step.
type Offer struct {
	Origin string
	Amount float64 // kWh, always positive
	Value  float64 // EUR/kWh
}

// Book holds the offers of one market session.
type Book struct {
	Buys  []Offer
	Sells []Offer
}

// BuildBooks assembles one offer book per horizon step from the meters' net
// loads.
func BuildBooks(ds *model.MeterDataset) []Book {
	books := make([]Book, len(ds.Horizon))
	meterIDs := make([]string, 0, len(ds.Meters))
	for id := range ds.Meters {
		meterIDs = append(meterIDs, id)
	}
	sort.Strings(meterIDs)

	for t := range ds.Horizon {
		for _, id := range meterIDs {
			p := ds.Meters[id][t]
			net := p.EC - p.EG
			switch {
			case net > 0:
				books[t].Buys = append(books[t].Buys, Offer{Origin: id, Amount: net, Value: p.BuyTariff})
			case net < 0:
				books[t].Sells = append(books[t].Sells, Offer{Origin: id, Amount: -net, Value: p.SellTariff})
			}
		}
	}
	return books
}

// Clear computes the clearing price of every book with the given mechanism.
func Clear(mechanism model.PricingMechanism, books []Book, params model.PricingParams) []float64 {
	prices := make([]float64, len(books))
	for t, book := range books {
		switch mechanism {
		case model.MechanismMMR:
			prices[t] = MMR(book, params.MMRDivisor)
		case model.MechanismSDR:
			prices[t] = SDR(book, params.SDRCompensation)
		default:
			prices[t] = CrossingValue(book)
		}
	}
	return prices
}

// CrossingValue returns the price at the intersection of the descending
// demand curve and the ascending supply curve. With no crossing, or with one
// side empty, the session clears at 0.
func CrossingValue(book Book) float64 {
	if len(book.Buys) == 0 || len(book.Sells) == 0 {
		return 0
	}
	buys := append([]Offer(nil), book.Buys...)
	sells := append([]Offer(nil), book.Sells...)
	sort.Slice(buys, func(i, j int) bool { return buys[i].Value > buys[j].Value })
	sort.Slice(sells, func(i, j int) bool { return sells[i].Value < sells[j].Value })

	var price float64
	matched := false
	bi, si := 0, 0
	remBuy, remSell := buys[0].Amount, sells[0].Amount
	for bi < len(buys) && si < len(sells) {
		if buys[bi].Value < sells[si].Value {
			break
		}
		matched = true
		price = (buys[bi].Value + sells[si].Value) / 2
		q := math.Min(remBuy, remSell)
		remBuy -= q
		remSell -= q
		if remBuy <= 0 {
			bi++
			if bi < len(buys) {
				remBuy = buys[bi].Amount
			}
		}
		if remSell <= 0 {
			si++
			if si < len(sells) {
				remSell = sells[si].Amount
			}
		}
	}
	if !matched {
		return 0
	}
	return roundCents(price)
}

// MMR returns the mid-market rate between the cheapest buying offer and the
// most expensive selling offer. Divisors above 2 favor buyers, below 2 favor
// sellers.
func MMR(book Book, divisor float64) float64 {
	if len(book.Buys) == 0 && len(book.Sells) == 0 {
		return 0
	}
	if divisor == 0 {
		divisor = 2
	}
	minBuy := math.Inf(1)
	for _, o := range book.Buys {
		minBuy = math.Min(minBuy, o.Value)
	}
	maxSell := 0.0
	for _, o := range book.Sells {
		maxSell = math.Max(maxSell, o.Value)
	}
	if len(book.Buys) == 0 {
		return roundCents(maxSell)
	}
	if len(book.Sells) == 0 {
		return roundCents(minBuy / divisor)
	}
	return roundCents((minBuy + maxSell) / divisor)
}

// SDR prices the session from the ratio between offered supply and demand.
// The price slides from the buyers' opportunity cost (no supply) down to the
// sellers' (supply covers demand); with net surplus the compensation factor
// lifts the price back towards the buyers' cost to keep internal trades
// attractive.
func SDR(book Book, compensation float64) float64 {
	if len(book.Buys) == 0 && len(book.Sells) == 0 {
		return 0
	}
	lBuy := meanValue(book.Buys)
	lSell := meanValue(book.Sells)
	if len(book.Sells) == 0 {
		return roundCents(lBuy)
	}
	if len(book.Buys) == 0 {
		return roundCents(lSell)
	}
	demand := sumAmount(book.Buys)
	supply := sumAmount(book.Sells)
	ratio := supply / demand
	if ratio > 1 {
		return roundCents(lSell + compensation*(lBuy-lSell))
	}
	return roundCents(lBuy * lSell / ((lBuy-lSell)*ratio + lSell))
}

func meanValue(offers []Offer) float64 {
	if len(offers) == 0 {
		return 0
	}
	vals := make([]float64, len(offers))
	for i, o := range offers {
		vals[i] = o.Value
	}
	return floats.Sum(vals) / float64(len(vals))
}

func sumAmount(offers []Offer) float64 {
	vals := make([]float64, len(offers))
	for i, o := range offers {
		vals[i] = o.Amount
	}
	return floats.Sum(vals)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Outputs converts the session books and prices into the API's offer and
// price records. Amounts are rounded to Wh resolution, values to cents.
func Outputs(books []Book, prices []float64, horizon []time.Time) ([]model.LemPrice, []model.Offer) {
	lemPrices := make([]model.LemPrice, len(prices))
	var offers []model.Offer
	for t := range prices {
		lemPrices[t] = model.LemPrice{Datetime: horizon[t], Value: prices[t]}
		for _, o := range books[t].Buys {
			offers = append(offers, model.Offer{
				Datetime: horizon[t],
				MeterID:  o.Origin,
				Amount:   round3(o.Amount),
				Value:    roundCents(o.Value),
				Type:     model.OfferBuy,
			})
		}
		for _, o := range books[t].Sells {
			offers = append(offers, model.Offer{
				Datetime: horizon[t],
				MeterID:  o.Origin,
				Amount:   round3(o.Amount),
				Value:    roundCents(o.Value),
				Type:     model.OfferSell,
			})
		}
	}
	return lemPrices, offers
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
