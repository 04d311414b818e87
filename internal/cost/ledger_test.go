package cost

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kplw-group/proposal-cli/internal/model"
)

func TestLedgerReserveCommit(t *testing.T) {
	l := NewLedger(1.00)

	permit, err := l.Reserve("strategic_analysis_done", 0.40)
	require.NoError(t, err)

	l.Commit(permit, model.CostEntry{
		Stage:       "strategic_analysis_done",
		Backend:     "anthropic",
		Model:       "claude-sonnet-4-5-20250929",
		InputUnits:  1200,
		OutputUnits: 800,
		Cost:        0.25,
	})

	sum := l.Summary()
	assert.Equal(t, 0.25, sum.TotalCost)
	assert.Equal(t, 1, sum.NumCalls)
	assert.InDelta(t, 0.75, sum.Remaining, 1e-9)
}

func TestLedgerReserveFailsBeforeDispatch(t *testing.T) {
	// Budget $1.00, estimated $1.50: reserve fails and the total is unchanged.
	l := NewLedger(1.00)

	_, err := l.Reserve("content_validation_loop", 1.50)
	require.Error(t, err)

	var be *BudgetExceededError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "content_validation_loop", be.Stage)
	assert.Equal(t, 1.50, be.Estimated)
	assert.Equal(t, 0.0, l.Total())
	assert.Equal(t, 0, l.Summary().NumCalls)
}

func TestLedgerReservationsHoldBudget(t *testing.T) {
	l := NewLedger(1.00)

	p1, err := l.Reserve("a", 0.60)
	require.NoError(t, err)

	// Second reservation would jointly exceed the limit.
	_, err = l.Reserve("b", 0.60)
	require.Error(t, err)

	// Releasing the first frees the headroom.
	l.Release(p1)
	_, err = l.Reserve("b", 0.60)
	assert.NoError(t, err)
}

func TestLedgerCommitRecordsActualNotEstimate(t *testing.T) {
	l := NewLedger(1.00)

	p, err := l.Reserve("a", 0.90)
	require.NoError(t, err)
	l.Commit(p, model.CostEntry{Cost: 0.10})

	assert.Equal(t, 0.10, l.Total())
	// Estimate released on commit: plenty of room left.
	_, err = l.Reserve("b", 0.80)
	assert.NoError(t, err)
}

func TestLedgerPermitResolvedOnce(t *testing.T) {
	l := NewLedger(1.00)
	p, err := l.Reserve("a", 0.30)
	require.NoError(t, err)

	l.Commit(p, model.CostEntry{Cost: 0.30})
	l.Commit(p, model.CostEntry{Cost: 0.30}) // ignored
	l.Release(p)                             // ignored

	assert.Equal(t, 0.30, l.Total())
	assert.Equal(t, 1, l.Summary().NumCalls)
}

func TestLedgerUnlimitedWhenNoBudget(t *testing.T) {
	l := NewLedger(0)
	for i := 0; i < 10; i++ {
		p, err := l.Reserve("a", 100)
		require.NoError(t, err)
		l.Commit(p, model.CostEntry{Cost: 100})
	}
	assert.Equal(t, 1000.0, l.Total())
	assert.Equal(t, 0.0, l.Summary().Remaining)
}

func TestLedgerConcurrentReservationsNeverExceedLimit(t *testing.T) {
	l := NewLedger(1.00)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := l.Reserve("concurrent", 0.10)
			if err != nil {
				return
			}
			l.Commit(p, model.CostEntry{Cost: 0.10})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, l.Total(), 1.00+1e-9)
}

func TestCalculatorEstimateAndActual(t *testing.T) {
	c := NewCalculator(DefaultRates())

	// 4000 chars ~ 1000 input tokens at $3/MTok plus 2000 output tokens at $15/MTok.
	est := c.Estimate("anthropic", "claude-sonnet-4-5-20250929", 4000, 2000)
	assert.InDelta(t, 0.003+0.03, est, 1e-9)

	actual := c.Actual("anthropic", "claude-sonnet-4-5-20250929", 1000, 500)
	assert.InDelta(t, 0.003+0.0075, actual, 1e-9)

	assert.Equal(t, 0.0, c.Actual("anthropic", "unknown-model", 1000, 1000))
	assert.Equal(t, 0.0, c.Estimate("nobody", "gpt-4o", 1000, 1000))
}
