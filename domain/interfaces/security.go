package interfaces

import (
	"noet_automation/domain/entities"
)

// RiskLevel classifies the real-world side effects of a command
type RiskLevel string

const (
	RiskNone RiskLevel = "none"
	RiskLow  RiskLevel = "low"
	RiskHigh RiskLevel = "high"
)

// CommandPolicy checks requests before any browser interaction starts
type CommandPolicy interface {
	// Validate reports missing or malformed parameters as INVALID_PARAMS
	Validate(req entities.Request) error

	// IsDestructive reports whether the command publishes or deletes content
	IsDestructive(req entities.Request) bool

	// RiskLevel returns the side-effect class of the command
	RiskLevel(req entities.Request) RiskLevel
}
