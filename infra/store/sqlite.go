// Package store persists orders and computed outputs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rec-operation/lem-api/core/model"
	"github.com/rec-operation/lem-api/core/orders"
	"github.com/rec-operation/lem-api/core/scheduling"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLiteStore implements orders.Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures the
// schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// workers write concurrently with API reads
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS Orders (
	order_id TEXT PRIMARY KEY,
	processed INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	request_type TEXT NOT NULL,
	lem_organization TEXT NOT NULL DEFAULT '',
	pricing_mechanism TEXT NOT NULL DEFAULT '',
	missing_ids TEXT NOT NULL DEFAULT '',
	missing_data_points TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS Lem_Prices (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id TEXT NOT NULL,
	datetime TEXT NOT NULL,
	value REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS Offers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id TEXT NOT NULL,
	datetime TEXT NOT NULL,
	meter_id TEXT NOT NULL,
	amount REAL NOT NULL,
	value REAL NOT NULL,
	type TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS General_MILP_Outputs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id TEXT NOT NULL,
	objective_value REAL NOT NULL,
	milp_status TEXT NOT NULL,
	total_rec_cost REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS Individual_Costs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id TEXT NOT NULL,
	meter_id TEXT NOT NULL,
	individual_cost REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS Meter_Inputs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id TEXT NOT NULL,
	meter_id TEXT NOT NULL,
	datetime TEXT NOT NULL,
	energy_generated REAL NOT NULL,
	energy_consumed REAL NOT NULL,
	buy_tariff REAL NOT NULL,
	sell_tariff REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS Meter_Outputs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id TEXT NOT NULL,
	meter_id TEXT NOT NULL,
	datetime TEXT NOT NULL,
	energy_surplus REAL NOT NULL,
	energy_supplied REAL NOT NULL,
	net_load REAL NOT NULL,
	bess_energy_charged REAL NOT NULL,
	bess_energy_discharged REAL NOT NULL,
	bess_energy_content REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS Pool_LEM_Transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id TEXT NOT NULL,
	meter_id TEXT NOT NULL,
	datetime TEXT NOT NULL,
	energy_purchased REAL NOT NULL,
	energy_sold REAL NOT NULL,
	sold_position REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS Bilateral_LEM_Transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id TEXT NOT NULL,
	provider_meter_id TEXT NOT NULL,
	receiver_meter_id TEXT NOT NULL,
	datetime TEXT NOT NULL,
	energy REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS Pool_Self_Consumption_Tariffs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id TEXT NOT NULL,
	datetime TEXT NOT NULL,
	self_consumption_tariff REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS Bilateral_Self_Consumption_Tariffs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id TEXT NOT NULL,
	datetime TEXT NOT NULL,
	self_consumption_tariff REAL NOT NULL,
	provider_meter_id TEXT NOT NULL,
	receiver_meter_id TEXT NOT NULL
);
`

// CreateOrder inserts a new, unprocessed order.
func (s *SQLiteStore) CreateOrder(ctx context.Context, o *orders.Order) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO Orders (order_id, processed, error, message, request_type, lem_organization, pricing_mechanism, created_at)
		VALUES (?, 0, '', '', ?, ?, ?, ?)`,
		o.ID, string(o.RequestType), string(o.LemOrganization), string(o.PricingMechanism),
		o.CreatedAt.UTC().Format(timeLayout))
	return err
}

// Order loads one order by ID.
func (s *SQLiteStore) Order(ctx context.Context, id string) (*orders.Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT order_id, processed, error, message, request_type, lem_organization, pricing_mechanism,
		       missing_ids, missing_data_points, created_at
		FROM Orders WHERE order_id = ?`, id)

	var o orders.Order
	var processed int
	var reqType, org, mech, missingIDs, missingData, createdAt string
	err := row.Scan(&o.ID, &processed, &o.Error, &o.Message, &reqType, &org, &mech,
		&missingIDs, &missingData, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, orders.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Processed = processed != 0
	o.RequestType = model.RequestType(reqType)
	o.LemOrganization = model.LemOrganization(org)
	o.PricingMechanism = model.PricingMechanism(mech)
	if missingIDs != "" {
		if err := json.Unmarshal([]byte(missingIDs), &o.MissingIDs); err != nil {
			return nil, fmt.Errorf("decoding missing ids: %w", err)
		}
	}
	if missingData != "" {
		if err := json.Unmarshal([]byte(missingData), &o.MissingDataPoints); err != nil {
			return nil, fmt.Errorf("decoding missing data points: %w", err)
		}
	}
	if o.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("decoding created_at: %w", err)
	}
	return &o, nil
}

// CompleteOrder flips the processed flag.
func (s *SQLiteStore) CompleteOrder(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE Orders SET processed = 1 WHERE order_id = ?`, id)
	return err
}

// FailOrder closes an order through the missing-data ladder or an internal
// error.
func (s *SQLiteStore) FailOrder(ctx context.Context, id, code, message string, missingIDs []string, missingDataPoints map[string][]string) error {
	idsJSON := ""
	if len(missingIDs) > 0 {
		b, err := json.Marshal(missingIDs)
		if err != nil {
			return err
		}
		idsJSON = string(b)
	}
	dataJSON := ""
	if len(missingDataPoints) > 0 {
		b, err := json.Marshal(missingDataPoints)
		if err != nil {
			return err
		}
		dataJSON = string(b)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE Orders
		SET processed = 1, error = ?, message = ?, missing_ids = ?, missing_data_points = ?
		WHERE order_id = ?`,
		code, message, idsJSON, dataJSON, id)
	return err
}

// SaveVanillaResults stores the prices and offers of a vanilla order.
func (s *SQLiteStore) SaveVanillaResults(ctx context.Context, id string, prices []model.LemPrice, offers []model.Offer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range prices {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO Lem_Prices (order_id, datetime, value) VALUES (?, ?, ?)`,
			id, p.Datetime.UTC().Format(timeLayout), p.Value); err != nil {
			return err
		}
	}
	for _, o := range offers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO Offers (order_id, datetime, meter_id, amount, value, type)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, o.Datetime.UTC().Format(timeLayout), o.MeterID, o.Amount, o.Value, string(o.Type)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveMILPResults stores the outputs of a dual or loop order.
func (s *SQLiteStore) SaveMILPResults(ctx context.Context, id string, r *scheduling.Results) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO General_MILP_Outputs (order_id, objective_value, milp_status, total_rec_cost)
		VALUES (?, ?, ?, ?)`,
		id, r.General.ObjectiveValue, string(r.General.MILPStatus), r.General.TotalRECCost); err != nil {
		return err
	}
	for _, c := range r.IndividualCosts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO Individual_Costs (order_id, meter_id, individual_cost) VALUES (?, ?, ?)`,
			id, c.MeterID, c.IndividualCost); err != nil {
			return err
		}
	}
	for _, in := range r.MeterInputs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO Meter_Inputs (order_id, meter_id, datetime, energy_generated, energy_consumed, buy_tariff, sell_tariff)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, in.MeterID, in.Datetime.UTC().Format(timeLayout),
			in.EnergyGenerated, in.EnergyConsumed, in.BuyTariff, in.SellTariff); err != nil {
			return err
		}
	}
	for _, out := range r.MeterOutputs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO Meter_Outputs (order_id, meter_id, datetime, energy_surplus, energy_supplied, net_load,
				bess_energy_charged, bess_energy_discharged, bess_energy_content)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, out.MeterID, out.Datetime.UTC().Format(timeLayout),
			out.EnergySurplus, out.EnergySupplied, out.NetLoad,
			out.BessEnergyCharged, out.BessEnergyDischarged, out.BessEnergyContent); err != nil {
			return err
		}
	}
	for _, trx := range r.Pool {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO Pool_LEM_Transactions (order_id, meter_id, datetime, energy_purchased, energy_sold, sold_position)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, trx.MeterID, trx.Datetime.UTC().Format(timeLayout),
			trx.EnergyPurchased, trx.EnergySold, trx.SoldPosition); err != nil {
			return err
		}
	}
	for _, trx := range r.Bilateral {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO Bilateral_LEM_Transactions (order_id, provider_meter_id, receiver_meter_id, datetime, energy)
			VALUES (?, ?, ?, ?, ?)`,
			id, trx.ProviderMeterID, trx.ReceiverMeterID, trx.Datetime.UTC().Format(timeLayout), trx.Energy); err != nil {
			return err
		}
	}
	for _, p := range r.Prices {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO Lem_Prices (order_id, datetime, value) VALUES (?, ?, ?)`,
			id, p.Datetime.UTC().Format(timeLayout), p.Value); err != nil {
			return err
		}
	}
	for _, sc := range r.PoolSC {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO Pool_Self_Consumption_Tariffs (order_id, datetime, self_consumption_tariff)
			VALUES (?, ?, ?)`,
			id, sc.Datetime.UTC().Format(timeLayout), sc.SelfConsumptionTariff); err != nil {
			return err
		}
	}
	for _, sc := range r.BilateralSC {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO Bilateral_Self_Consumption_Tariffs (order_id, datetime, self_consumption_tariff, provider_meter_id, receiver_meter_id)
			VALUES (?, ?, ?, ?, ?)`,
			id, sc.Datetime.UTC().Format(timeLayout), sc.SelfConsumptionTariff,
			sc.ProviderMeterID, sc.ReceiverMeterID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
