package model

import "fmt"

// PricingMechanism selects the rule used to clear a LEM session.
type PricingMechanism string

const (
	MechanismCrossingValue PricingMechanism = "crossing_value"
	MechanismMMR           PricingMechanism = "mmr"
	MechanismSDR           PricingMechanism = "sdr"
)

// ParsePricingMechanism validates a path or query value.
func ParsePricingMechanism(s string) (PricingMechanism, error) {
	switch PricingMechanism(s) {
	case MechanismCrossingValue, MechanismMMR, MechanismSDR:
		return PricingMechanism(s), nil
	}
	return "", fmt.Errorf("unknown pricing mechanism %q", s)
}

// LemOrganization describes how LEM trades are organized.
type LemOrganization string

const (
	OrganizationPool      LemOrganization = "pool"
	OrganizationBilateral LemOrganization = "bilateral"
)

func ParseLemOrganization(s string) (LemOrganization, error) {
	switch LemOrganization(s) {
	case OrganizationPool, OrganizationBilateral:
		return LemOrganization(s), nil
	}
	return "", fmt.Errorf("unknown LEM organization %q", s)
}

// DatasetOrigin identifies the dataspace a REC's metering data lives in.
type DatasetOrigin string

const (
	OriginSEL    DatasetOrigin = "SEL"
	OriginINDATA DatasetOrigin = "INDATA"
)

func ParseDatasetOrigin(s string) (DatasetOrigin, error) {
	switch DatasetOrigin(s) {
	case OriginSEL, OriginINDATA:
		return DatasetOrigin(s), nil
	}
	return "", fmt.Errorf("unknown dataset origin %q", s)
}

// OfferType marks an offer as buying or selling.
type OfferType string

const (
	OfferBuy  OfferType = "buy"
	OfferSell OfferType = "sell"
)

// SolverStatus reports the outcome of an optimization run.
type SolverStatus string

const (
	StatusOptimal    SolverStatus = "Optimal"
	StatusUnbounded  SolverStatus = "Unbounded"
	StatusInfeasible SolverStatus = "Infeasible"
)

// RequestType distinguishes the three computation workflows.
type RequestType string

const (
	RequestVanilla RequestType = "vanilla"
	RequestDual    RequestType = "dual"
	RequestLoop    RequestType = "loop"
)
