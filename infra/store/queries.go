package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rec-operation/lem-api/core/model"
	"github.com/rec-operation/lem-api/core/orders"
)

// VanillaResults loads the stored prices and offers of a vanilla order.
func (s *SQLiteStore) VanillaResults(ctx context.Context, id string) (*model.VanillaOutputs, error) {
	prices, err := s.lemPrices(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT datetime, meter_id, amount, value, type FROM Offers WHERE order_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var offers []model.Offer
	for rows.Next() {
		var o model.Offer
		var dt, typ string
		if err := rows.Scan(&dt, &o.MeterID, &o.Amount, &o.Value, &typ); err != nil {
			return nil, err
		}
		if o.Datetime, err = time.Parse(timeLayout, dt); err != nil {
			return nil, fmt.Errorf("decoding offer datetime: %w", err)
		}
		o.Type = model.OfferType(typ)
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &model.VanillaOutputs{OrderID: id, LemPrices: prices, Offers: offers}, nil
}

// PoolMILPResults loads the stored outputs of a dual or pool loop order.
func (s *SQLiteStore) PoolMILPResults(ctx context.Context, id string) (*model.PoolMILPOutputs, error) {
	out := &model.PoolMILPOutputs{OrderID: id}
	var err error
	if out.GeneralMILPOutputs, err = s.generalOutputs(ctx, id); err != nil {
		return nil, err
	}
	if out.IndividualCosts, err = s.individualCosts(ctx, id); err != nil {
		return nil, err
	}
	if out.MeterInputs, err = s.meterInputs(ctx, id); err != nil {
		return nil, err
	}
	if out.MeterOutputs, err = s.meterOutputs(ctx, id); err != nil {
		return nil, err
	}
	if out.LemPrices, err = s.lemPrices(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT meter_id, datetime, energy_purchased, energy_sold, sold_position
		FROM Pool_LEM_Transactions WHERE order_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var trx model.PoolTransaction
		var dt string
		if err := rows.Scan(&trx.MeterID, &dt, &trx.EnergyPurchased, &trx.EnergySold, &trx.SoldPosition); err != nil {
			return nil, err
		}
		if trx.Datetime, err = time.Parse(timeLayout, dt); err != nil {
			return nil, fmt.Errorf("decoding transaction datetime: %w", err)
		}
		out.LemTransactions = append(out.LemTransactions, trx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	scRows, err := s.db.QueryContext(ctx, `
		SELECT datetime, self_consumption_tariff
		FROM Pool_Self_Consumption_Tariffs WHERE order_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = scRows.Close() }()
	for scRows.Next() {
		var sc model.PoolSelfConsumptionTariff
		var dt string
		if err := scRows.Scan(&dt, &sc.SelfConsumptionTariff); err != nil {
			return nil, err
		}
		if sc.Datetime, err = time.Parse(timeLayout, dt); err != nil {
			return nil, fmt.Errorf("decoding tariff datetime: %w", err)
		}
		out.SelfConsumption = append(out.SelfConsumption, sc)
	}
	return out, scRows.Err()
}

// BilateralMILPResults loads the stored outputs of a bilateral loop order.
func (s *SQLiteStore) BilateralMILPResults(ctx context.Context, id string) (*model.BilateralMILPOutputs, error) {
	out := &model.BilateralMILPOutputs{OrderID: id}
	var err error
	if out.GeneralMILPOutputs, err = s.generalOutputs(ctx, id); err != nil {
		return nil, err
	}
	if out.IndividualCosts, err = s.individualCosts(ctx, id); err != nil {
		return nil, err
	}
	if out.MeterInputs, err = s.meterInputs(ctx, id); err != nil {
		return nil, err
	}
	if out.MeterOutputs, err = s.meterOutputs(ctx, id); err != nil {
		return nil, err
	}
	if out.LemPrices, err = s.lemPrices(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT provider_meter_id, receiver_meter_id, datetime, energy
		FROM Bilateral_LEM_Transactions WHERE order_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var trx model.BilateralTransaction
		var dt string
		if err := rows.Scan(&trx.ProviderMeterID, &trx.ReceiverMeterID, &dt, &trx.Energy); err != nil {
			return nil, err
		}
		if trx.Datetime, err = time.Parse(timeLayout, dt); err != nil {
			return nil, fmt.Errorf("decoding transaction datetime: %w", err)
		}
		out.LemTransactions = append(out.LemTransactions, trx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	scRows, err := s.db.QueryContext(ctx, `
		SELECT datetime, self_consumption_tariff, provider_meter_id, receiver_meter_id
		FROM Bilateral_Self_Consumption_Tariffs WHERE order_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = scRows.Close() }()
	for scRows.Next() {
		var sc model.BilateralSelfConsumptionTariff
		var dt string
		if err := scRows.Scan(&dt, &sc.SelfConsumptionTariff, &sc.ProviderMeterID, &sc.ReceiverMeterID); err != nil {
			return nil, err
		}
		if sc.Datetime, err = time.Parse(timeLayout, dt); err != nil {
			return nil, fmt.Errorf("decoding tariff datetime: %w", err)
		}
		out.SelfConsumption = append(out.SelfConsumption, sc)
	}
	return out, scRows.Err()
}

// PurgeBefore removes orders created before the cutoff, along with all their
// outputs. The number of purged orders is returned.
func (s *SQLiteStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	cut := cutoff.UTC().Format(timeLayout)
	for _, table := range []string{
		"Lem_Prices", "Offers", "General_MILP_Outputs", "Individual_Costs",
		"Meter_Inputs", "Meter_Outputs", "Pool_LEM_Transactions",
		"Bilateral_LEM_Transactions", "Pool_Self_Consumption_Tariffs",
		"Bilateral_Self_Consumption_Tariffs",
	} {
		q := fmt.Sprintf(`DELETE FROM %s WHERE order_id IN (SELECT order_id FROM Orders WHERE created_at < ?)`, table)
		if _, err := tx.ExecContext(ctx, q, cut); err != nil {
			return 0, err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM Orders WHERE created_at < ?`, cut)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func (s *SQLiteStore) generalOutputs(ctx context.Context, id string) (model.GeneralMILPOutputs, error) {
	var g model.GeneralMILPOutputs
	var status string
	row := s.db.QueryRowContext(ctx, `
		SELECT objective_value, milp_status, total_rec_cost
		FROM General_MILP_Outputs WHERE order_id = ?`, id)
	err := row.Scan(&g.ObjectiveValue, &status, &g.TotalRECCost)
	if errors.Is(err, sql.ErrNoRows) {
		return g, orders.ErrOrderNotFound
	}
	if err != nil {
		return g, err
	}
	g.MILPStatus = model.SolverStatus(status)
	return g, nil
}

func (s *SQLiteStore) individualCosts(ctx context.Context, id string) ([]model.IndividualCost, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT meter_id, individual_cost FROM Individual_Costs WHERE order_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.IndividualCost
	for rows.Next() {
		var c model.IndividualCost
		if err := rows.Scan(&c.MeterID, &c.IndividualCost); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) meterInputs(ctx context.Context, id string) ([]model.MeterInput, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT meter_id, datetime, energy_generated, energy_consumed, buy_tariff, sell_tariff
		FROM Meter_Inputs WHERE order_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.MeterInput
	for rows.Next() {
		var in model.MeterInput
		var dt string
		if err := rows.Scan(&in.MeterID, &dt, &in.EnergyGenerated, &in.EnergyConsumed, &in.BuyTariff, &in.SellTariff); err != nil {
			return nil, err
		}
		if in.Datetime, err = time.Parse(timeLayout, dt); err != nil {
			return nil, fmt.Errorf("decoding input datetime: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) meterOutputs(ctx context.Context, id string) ([]model.MeterOutput, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT meter_id, datetime, energy_surplus, energy_supplied, net_load,
		       bess_energy_charged, bess_energy_discharged, bess_energy_content
		FROM Meter_Outputs WHERE order_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.MeterOutput
	for rows.Next() {
		var mo model.MeterOutput
		var dt string
		if err := rows.Scan(&mo.MeterID, &dt, &mo.EnergySurplus, &mo.EnergySupplied, &mo.NetLoad,
			&mo.BessEnergyCharged, &mo.BessEnergyDischarged, &mo.BessEnergyContent); err != nil {
			return nil, err
		}
		if mo.Datetime, err = time.Parse(timeLayout, dt); err != nil {
			return nil, fmt.Errorf("decoding output datetime: %w", err)
		}
		out = append(out, mo)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) lemPrices(ctx context.Context, id string) ([]model.LemPrice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT datetime, value FROM Lem_Prices WHERE order_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.LemPrice
	for rows.Next() {
		var p model.LemPrice
		var dt string
		if err := rows.Scan(&dt, &p.Value); err != nil {
			return nil, err
		}
		if p.Datetime, err = time.Parse(timeLayout, dt); err != nil {
			return nil, fmt.Errorf("decoding price datetime: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
