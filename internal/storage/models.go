package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Project is an already-admitted token record. The table carries a unique
// constraint on (contract_address, network); that constraint, not the gate's
// pre-check, is the source of truth under concurrent admissions.
type Project struct {
	ID              int64
	Symbol          string
	Name            string
	ContractAddress string
	Network         string
	WebsiteURL      string
	CreatedAt       time.Time
}

// AdmissionRecord captures one admission attempt for auditing.
type AdmissionRecord struct {
	ID              int64
	Symbol          string
	ContractAddress string
	Network         string
	Outcome         string
	Detail          *string
	LiquidityUSD    decimal.Decimal
	ProjectID       *int64
	CreatedAt       time.Time
}
