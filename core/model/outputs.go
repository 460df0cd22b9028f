package model

import "time"

// AcceptedResponse is returned on every submission endpoint.
type AcceptedResponse struct {
	Message string `json:"message"`
	OrderID string `json:"order_id"`
}

// ErrorResponse is returned when an order cannot be served.
type ErrorResponse struct {
	Message string `json:"message"`
	OrderID string `json:"order_id"`
}

// MissingIDsResponse is returned when meter IDs are absent from the dataspace.
type MissingIDsResponse struct {
	Message    string   `json:"message"`
	MissingIDs []string `json:"missing_ids"`
	OrderID    string   `json:"order_id"`
}

// MissingDataResponse is returned when data points are absent from the
// dataspace for the requested horizon.
type MissingDataResponse struct {
	Message           string              `json:"message"`
	MissingDataPoints map[string][]string `json:"missing_data_points"`
	OrderID           string              `json:"order_id"`
}

// Offer is one buying or selling offer considered in a LEM session.
type Offer struct {
	Datetime time.Time `json:"datetime"`
	MeterID  string    `json:"meter_id"`
	Amount   float64   `json:"amount"` // kWh
	Value    float64   `json:"value"`  // EUR/kWh
	Type     OfferType `json:"type"`
}

// LemPrice is the clearing price computed for one time step.
type LemPrice struct {
	Datetime time.Time `json:"datetime"`
	Value    float64   `json:"value"` // EUR/kWh
}

// VanillaOutputs is the result payload of a price-only order.
type VanillaOutputs struct {
	OrderID   string     `json:"order_id"`
	LemPrices []LemPrice `json:"lem_prices"`
	Offers    []Offer    `json:"offers"`
}

// MeterInput records the time-varying inputs fed to the optimization for one
// meter and time step.
type MeterInput struct {
	MeterID         string    `json:"meter_id"`
	Datetime        time.Time `json:"datetime"`
	EnergyGenerated float64   `json:"energy_generated"`
	EnergyConsumed  float64   `json:"energy_consumed"`
	BuyTariff       float64   `json:"buy_tariff"`
	SellTariff      float64   `json:"sell_tariff"`
}

// MeterOutput records the scheduled operation of one meter and time step.
type MeterOutput struct {
	MeterID              string    `json:"meter_id"`
	Datetime             time.Time `json:"datetime"`
	EnergySurplus        float64   `json:"energy_surplus"`
	EnergySupplied       float64   `json:"energy_supplied"`
	NetLoad              float64   `json:"net_load"`
	BessEnergyCharged    float64   `json:"bess_energy_charged"`
	BessEnergyDischarged float64   `json:"bess_energy_discharged"`
	BessEnergyContent    float64   `json:"bess_energy_content"`
}

// PoolTransaction aggregates one meter's LEM trades for one time step.
type PoolTransaction struct {
	MeterID         string    `json:"meter_id"`
	Datetime        time.Time `json:"datetime"`
	EnergyPurchased float64   `json:"energy_purchased_lem"`
	EnergySold      float64   `json:"energy_sold_lem"`
	SoldPosition    float64   `json:"sold_position"`
}

// BilateralTransaction is one pairwise LEM trade for one time step.
type BilateralTransaction struct {
	ProviderMeterID string    `json:"provider_meter_id"`
	ReceiverMeterID string    `json:"receiver_meter_id"`
	Datetime        time.Time `json:"datetime"`
	Energy          float64   `json:"energy"`
}

// IndividualCost is the horizon operation cost of one meter, without BESS
// degradation.
type IndividualCost struct {
	MeterID        string  `json:"meter_id"`
	IndividualCost float64 `json:"individual_cost"`
}

// PoolSelfConsumptionTariff is the grid tariff applied to pool trades at one
// time step.
type PoolSelfConsumptionTariff struct {
	Datetime              time.Time `json:"datetime"`
	SelfConsumptionTariff float64   `json:"self_consumption_tariff"`
}

// BilateralSelfConsumptionTariff is the grid tariff applied to one pairwise
// trade at one time step.
type BilateralSelfConsumptionTariff struct {
	Datetime              time.Time `json:"datetime"`
	ProviderMeterID       string    `json:"provider_meter_id"`
	ReceiverMeterID       string    `json:"receiver_meter_id"`
	SelfConsumptionTariff float64   `json:"self_consumption_tariff"`
}

// GeneralMILPOutputs summarizes the outcome of one optimization run.
type GeneralMILPOutputs struct {
	ObjectiveValue float64      `json:"objective_value"`
	MILPStatus     SolverStatus `json:"milp_status"`
	TotalRECCost   float64      `json:"total_rec_cost"`
}

// PoolMILPOutputs is the result payload of a dual or loop order with a pool
// LEM organization.
type PoolMILPOutputs struct {
	OrderID         string `json:"order_id"`
	GeneralMILPOutputs
	IndividualCosts []IndividualCost            `json:"individual_costs"`
	MeterInputs     []MeterInput                `json:"meter_inputs"`
	MeterOutputs    []MeterOutput               `json:"meter_outputs"`
	LemTransactions []PoolTransaction           `json:"lem_transactions"`
	LemPrices       []LemPrice                  `json:"lem_prices"`
	SelfConsumption []PoolSelfConsumptionTariff `json:"self_consumption_tariffs"`
}

// BilateralMILPOutputs is the result payload of a dual or loop order with a
// bilateral LEM organization.
type BilateralMILPOutputs struct {
	OrderID         string `json:"order_id"`
	GeneralMILPOutputs
	IndividualCosts []IndividualCost                 `json:"individual_costs"`
	MeterInputs     []MeterInput                     `json:"meter_inputs"`
	MeterOutputs    []MeterOutput                    `json:"meter_outputs"`
	LemTransactions []BilateralTransaction           `json:"lem_transactions"`
	LemPrices       []LemPrice                       `json:"lem_prices"`
	SelfConsumption []BilateralSelfConsumptionTariff `json:"self_consumption_tariffs"`
}
