package model

import "time"

// CostEntry records the actual cost of one committed generation call.
// Entries are immutable once appended to the ledger.
type CostEntry struct {
	Stage       string    `json:"stage"`
	Backend     string    `json:"backend"`
	Model       string    `json:"model"`
	InputUnits  int64     `json:"input_units"`
	OutputUnits int64     `json:"output_units"`
	Cost        float64   `json:"cost"`
	Timestamp   time.Time `json:"timestamp"`
}

// CostSummary aggregates the committed entries of a ledger.
type CostSummary struct {
	TotalCost   float64     `json:"total_cost"`
	BudgetLimit float64     `json:"budget_limit"`
	Remaining   float64     `json:"remaining"`
	NumCalls    int         `json:"num_calls"`
	Entries     []CostEntry `json:"entries,omitempty"`
}
