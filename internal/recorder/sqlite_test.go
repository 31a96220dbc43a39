package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteRecorder_RoundTrip(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "mate.db"))
	require.NoError(t, err)
	defer r.Close()

	now := time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, r.RecordCycle(&CycleRun{
		CycleID:     "cycle-1",
		StartedAt:   now,
		FinishedAt:  now.Add(30 * time.Second),
		UnitsOK:     3,
		UnitsFailed: 1,
	}))
	require.NoError(t, r.RecordBalance(&BalanceObservation{
		CycleID:     "cycle-1",
		AccountName: "My kraken account",
		Vendor:      "kraken",
		Balance:     15100.0,
		ObservedAt:  now,
	}))

	var unitsOK, unitsFailed int
	row := r.db.QueryRow(`SELECT units_ok, units_failed FROM cycle_runs WHERE cycle_id = ?`, "cycle-1")
	require.NoError(t, row.Scan(&unitsOK, &unitsFailed))
	assert.Equal(t, 3, unitsOK)
	assert.Equal(t, 1, unitsFailed)

	var balance float64
	var vendor string
	row = r.db.QueryRow(`SELECT balance, vendor FROM balance_history WHERE cycle_id = ?`, "cycle-1")
	require.NoError(t, row.Scan(&balance, &vendor))
	assert.Equal(t, 15100.0, balance)
	assert.Equal(t, "kraken", vendor)
}

func TestSQLiteRecorder_MigrationIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mate.db")

	r1, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	require.NoError(t, r1.Close())

	r2, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	require.NoError(t, r2.Close())
}
