package cost

import (
	"fmt"
	"sync"
	"time"

	"github.com/kplw-group/proposal-cli/internal/model"
)

// BudgetExceededError is returned when a reservation would push the ledger
// past its budget limit. It is raised before any external call is dispatched.
type BudgetExceededError struct {
	Stage     string
	Estimated float64
	Remaining float64
	Limit     float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded at stage %s: estimated $%.4f, remaining $%.4f of $%.2f limit",
		e.Stage, e.Estimated, e.Remaining, e.Limit)
}

// Permit is a granted reservation against the budget. A permit must be
// resolved exactly once, by Commit or Release.
type Permit struct {
	stage     string
	estimated float64
	resolved  bool
}

// Ledger tracks spend against a hard budget ceiling. Reservation precedes
// every paid call; the running total reflects committed entries exclusively.
// The check-and-reserve sequence holds a single mutex so concurrent runs
// sharing one ledger cannot jointly exceed the limit.
type Ledger struct {
	mu        sync.Mutex
	limit     float64 // <= 0 means unlimited
	committed float64
	reserved  float64
	entries   []model.CostEntry
}

// NewLedger creates a ledger with the given budget limit in USD.
// A limit <= 0 disables enforcement.
func NewLedger(limit float64) *Ledger {
	return &Ledger{limit: limit}
}

// Reserve checks the estimated cost against the remaining budget and, if it
// fits, holds the amount until Commit or Release. Fails fast with
// BudgetExceededError naming the stage and amount.
func (l *Ledger) Reserve(stage string, estimated float64) (*Permit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limit > 0 && l.committed+l.reserved+estimated > l.limit {
		return nil, &BudgetExceededError{
			Stage:     stage,
			Estimated: estimated,
			Remaining: l.limit - l.committed - l.reserved,
			Limit:     l.limit,
		}
	}
	l.reserved += estimated
	return &Permit{stage: stage, estimated: estimated}, nil
}

// Commit replaces a reservation with the actual reported cost entry.
// The entry is immutable once appended.
func (l *Ledger) Commit(p *Permit, entry model.CostEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p.resolved {
		return
	}
	p.resolved = true
	l.reserved -= p.estimated

	if entry.Stage == "" {
		entry.Stage = p.stage
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	l.committed += entry.Cost
	l.entries = append(l.entries, entry)
}

// Release drops a reservation without recording cost, used when the call
// fails after a successful reservation.
func (l *Ledger) Release(p *Permit) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p.resolved {
		return
	}
	p.resolved = true
	l.reserved -= p.estimated
}

// Total returns the committed running total.
func (l *Ledger) Total() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.committed
}

// Summary returns the committed totals and entries.
func (l *Ledger) Summary() model.CostSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]model.CostEntry, len(l.entries))
	copy(entries, l.entries)

	remaining := 0.0
	if l.limit > 0 {
		remaining = l.limit - l.committed
		if remaining < 0 {
			remaining = 0
		}
	}
	return model.CostSummary{
		TotalCost:   l.committed,
		BudgetLimit: l.limit,
		Remaining:   remaining,
		NumCalls:    len(l.entries),
		Entries:     entries,
	}
}
