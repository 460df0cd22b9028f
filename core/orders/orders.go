// Package orders implements the asynchronous computation workflow: a
// submission persists an order and returns its ID immediately, a background
// worker fetches the meter data, runs the requested computation and stores
// the outputs, and retrieval reports the order's current state.
package orders

import (
	"context"
	"errors"
	"time"

	"github.com/rec-operation/lem-api/core/model"
	"github.com/rec-operation/lem-api/core/scheduling"
)

// Error codes stored with a failed order.
const (
	CodeMissingMeters = "412"
	CodeMissingData   = "422"
	CodeInternal      = "500"
)

// Messages returned through the API.
const (
	MsgAccepted      = "Processing has started. Use the order ID for status updates."
	MsgNotFound      = "Order not found."
	MsgPending       = "Order found, but not yet processed. Please try again later."
	MsgMissingMeters = "One or more meter IDs not found on registry system."
	MsgMissingData   = "One or more data point for one or more meter IDs not found on registry system."
)

// ErrOrderNotFound is returned when an order ID is unknown.
var ErrOrderNotFound = errors.New("order not found")

// Order is the persisted state of one computation request.
type Order struct {
	ID                string
	Processed         bool
	Error             string // one of the Code constants, or empty
	Message           string
	RequestType       model.RequestType
	LemOrganization   model.LemOrganization
	PricingMechanism  model.PricingMechanism
	MissingIDs        []string
	MissingDataPoints map[string][]string
	CreatedAt         time.Time
}

// Store persists orders and their computed outputs.
type Store interface {
	CreateOrder(ctx context.Context, o *Order) error
	Order(ctx context.Context, id string) (*Order, error)
	CompleteOrder(ctx context.Context, id string) error
	FailOrder(ctx context.Context, id, code, message string, missingIDs []string, missingDataPoints map[string][]string) error

	SaveVanillaResults(ctx context.Context, id string, prices []model.LemPrice, offers []model.Offer) error
	SaveMILPResults(ctx context.Context, id string, r *scheduling.Results) error

	VanillaResults(ctx context.Context, id string) (*model.VanillaOutputs, error)
	PoolMILPResults(ctx context.Context, id string) (*model.PoolMILPOutputs, error)
	BilateralMILPResults(ctx context.Context, id string) (*model.BilateralMILPOutputs, error)

	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

// DataFetcher assembles the meter dataset of a request from the dataspace.
type DataFetcher interface {
	Fetch(ctx context.Context, params model.BaseParams) (*model.MeterDataset, error)
}

// Notifier publishes order completion events.
type Notifier interface {
	OrderCompleted(ctx context.Context, orderID string, requestType model.RequestType, failed bool) error
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) OrderCompleted(context.Context, string, model.RequestType, bool) error {
	return nil
}
