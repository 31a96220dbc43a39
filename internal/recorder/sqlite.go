package recorder

import (
	"database/sql"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists cycle history to a local SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	// WAL mode so dashboards can read while the collector writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set WAL mode")
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	log.Infof("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cycle_runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id     TEXT NOT NULL,
			started_at   INTEGER NOT NULL,
			finished_at  INTEGER NOT NULL,
			units_ok     INTEGER,
			units_failed INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycle_started ON cycle_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS balance_history (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id     TEXT NOT NULL,
			account_name TEXT,
			vendor       TEXT,
			balance      REAL,
			observed_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_balance_observed ON balance_history(observed_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return errors.Wrapf(err, "exec %q", s[:40])
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordCycle(run *CycleRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO cycle_runs
		(cycle_id, started_at, finished_at, units_ok, units_failed)
		VALUES (?,?,?,?,?)`,
		run.CycleID, run.StartedAt.Unix(), run.FinishedAt.Unix(),
		run.UnitsOK, run.UnitsFailed,
	)
	return err
}

func (r *SQLiteRecorder) RecordBalance(obs *BalanceObservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO balance_history
		(cycle_id, account_name, vendor, balance, observed_at)
		VALUES (?,?,?,?,?)`,
		obs.CycleID, obs.AccountName, obs.Vendor, obs.Balance, obs.ObservedAt.Unix(),
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Info("closing sqlite recorder")
	return r.db.Close()
}
