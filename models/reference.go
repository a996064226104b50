package models

import "github.com/shopspring/decimal"

// Phase types used by fuse_types and circuit_templates.
const (
	PhaseSingle = "1φ"
	PhaseThree  = "3φ"
)

// FuseType is an overcurrent breaker rating available for a phase type.
type FuseType struct {
	FuseType  string `json:"fuse_type" validate:"required,max=20"`
	PhaseType string `json:"phase_type" validate:"required,oneof=1φ 3φ"`
}

// CircuitTemplate is a predefined installation circuit.
type CircuitTemplate struct {
	ID          int64           `json:"id,omitempty"`
	Description string          `json:"description" validate:"required,max=255"`
	Zone        string          `json:"zone" validate:"required,oneof=Parter Piętro"`
	Voltage     int             `json:"voltage" validate:"required"`
	Cable       string          `json:"cable" validate:"required,max=100"`
	Power       decimal.Decimal `json:"power"`
	Phase       string          `json:"phase" validate:"required,oneof=L1 L2 L3 3Φ"`
	Type        string          `json:"type" validate:"required,oneof=1φ 3φ"`
}
