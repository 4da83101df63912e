package storage

// sqlite.go: persistencia de ejecuciones de backtest.
//
// Estrategia:
//   - `runs`: una fila por ejecución con el resumen de métricas y la
//     estrategia serializada como JSON (reproducibilidad).
//   - `run_trades`: una fila por trade (incluidas ventas parciales), en una
//     transacción con prepared statement.
//   - Prune automático al arrancar: runs de más de 90 días desaparecen con
//     sus trades.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por ejecución de backtest
CREATE TABLE IF NOT EXISTS runs (
    id               TEXT PRIMARY KEY,
    strategy         TEXT     NOT NULL,
    created_at       DATETIME NOT NULL,
    start_date       DATETIME NOT NULL,
    end_date         DATETIME NOT NULL,
    interval_min     INTEGER  NOT NULL,
    start_capital    REAL     NOT NULL,
    end_capital      REAL     NOT NULL,
    markets_analyzed INTEGER  NOT NULL DEFAULT 0,
    markets_traded   INTEGER  NOT NULL DEFAULT 0,
    total_trades     INTEGER  NOT NULL DEFAULT 0,
    win_rate         REAL     NOT NULL DEFAULT 0,
    total_pnl        REAL     NOT NULL DEFAULT 0,
    max_drawdown     REAL     NOT NULL DEFAULT 0,
    sharpe_ratio     REAL     NOT NULL DEFAULT 0,
    config_json      TEXT     NOT NULL
);

-- Una fila por trade de la ejecución (parciales incluidas)
CREATE TABLE IF NOT EXISTS run_trades (
    run_id      TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position_id INTEGER NOT NULL,
    market_id   TEXT    NOT NULL,
    question    TEXT,
    side        TEXT    NOT NULL,
    entry_time  DATETIME NOT NULL,
    entry_price REAL    NOT NULL,
    exit_time   DATETIME NOT NULL,
    exit_price  REAL    NOT NULL,
    shares      REAL    NOT NULL,
    pnl         REAL    NOT NULL,
    pnl_pct     REAL    NOT NULL,
    fees        REAL    NOT NULL DEFAULT 0,
    exit_reason TEXT    NOT NULL,
    final       INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_created  ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_run    ON run_trades(run_id);
`

// retentionRuns: las ejecuciones viejas no aportan nada, se purgan al abrir.
const retentionRuns = 90 * 24 * time.Hour

// SQLiteStore implementa ports.RunStore usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia ejecuciones antiguas.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// pruneOld elimina ejecuciones antiguas para mantener la DB ligera.
// Los trades caen en cascada por la foreign key. Las fechas se guardan como
// RFC3339, que ordena lexicográficamente igual que cronológicamente.
func (s *SQLiteStore) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionRuns).Format(time.RFC3339)
	s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
}
