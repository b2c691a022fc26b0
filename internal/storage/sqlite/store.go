// Package sqlite indexes saved runs in a SQLite database so ensembles can be
// aggregated without rereading every run directory.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/san-kum/icestrat/internal/sim"
	"github.com/san-kum/icestrat/internal/storage"
	"github.com/san-kum/icestrat/internal/storage/sqlite/migrations"
	"github.com/san-kum/icestrat/internal/storage/sqlitemigrate"
	"github.com/san-kum/icestrat/internal/strat"
)

// IndexFile is the database file name inside the output directory.
const IndexFile = "index.db"

type Store struct {
	sqlDB *sql.DB
}

// Run is one indexed seed.
type Run struct {
	ID        string
	RunName   string
	Seed      int64
	Mode      string
	OutDir    string
	CreatedAt time.Time
}

// LayerRow is a layer with the seed it came from.
type LayerRow struct {
	Seed int64
	strat.Layer
}

// Open opens or creates the index and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordRun indexes a result, replacing any earlier record of the same run
// name and seed. It returns the new run id.
func (s *Store) RecordRun(ctx context.Context, res *sim.Result, outDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cfg := res.Config
	if strings.TrimSpace(cfg.RunName) == "" {
		return "", fmt.Errorf("run name is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin record run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_name = ? AND seed = ?`, cfg.RunName, cfg.Seed); err != nil {
		return "", fmt.Errorf("replace run: %w", err)
	}

	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, run_name, seed, mode, out_dir, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, cfg.RunName, cfg.Seed, cfg.Mode, outDir, time.Now().UTC().UnixMilli(),
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for coldtrap, ms := range res.Metrics {
		for name, v := range ms {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO coldtrap_results (run_id, coldtrap, metric, value) VALUES (?, ?, ?, ?)`,
				id, coldtrap, name, v,
			); err != nil {
				return "", fmt.Errorf("insert result %s/%s: %w", coldtrap, name, err)
			}
		}
	}
	for coldtrap, layers := range res.Layers {
		for i, l := range layers {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO layers (run_id, coldtrap, idx, ice, ejecta, source, time_bot, time_top, depth)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				id, coldtrap, i, l.Ice, l.Ejecta, l.Source, l.TimeBot, l.TimeTop, l.Depth,
			); err != nil {
				return "", fmt.Errorf("insert layer %s/%d: %w", coldtrap, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit record run: %w", err)
	}
	return id, nil
}

// ListRuns returns indexed runs ordered by name and seed. An empty runName
// lists everything.
func (s *Store) ListRuns(ctx context.Context, runName string) ([]Run, error) {
	query := `SELECT id, run_name, seed, mode, out_dir, created_at FROM runs`
	var args []any
	if runName != "" {
		query += ` WHERE run_name = ?`
		args = append(args, runName)
	}
	query += ` ORDER BY run_name, seed`

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var created int64
		if err := rows.Scan(&r.ID, &r.RunName, &r.Seed, &r.Mode, &r.OutDir, &created); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) RunNames(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, `SELECT DISTINCT run_name FROM runs ORDER BY run_name`)
}

// Coldtraps lists the cold traps recorded for a run name.
func (s *Store) Coldtraps(ctx context.Context, runName string) ([]string, error) {
	return s.queryStrings(ctx,
		`SELECT DISTINCT r.coldtrap FROM coldtrap_results r JOIN runs ON runs.id = r.run_id
		 WHERE runs.run_name = ? ORDER BY r.coldtrap`, runName)
}

func (s *Store) Metrics(ctx context.Context, runName string) ([]string, error) {
	return s.queryStrings(ctx,
		`SELECT DISTINCT r.metric FROM coldtrap_results r JOIN runs ON runs.id = r.run_id
		 WHERE runs.run_name = ? ORDER BY r.metric`, runName)
}

func (s *Store) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Values returns one metric of one cold trap across all seeds of a run,
// ordered by seed.
func (s *Store) Values(ctx context.Context, runName, coldtrap, metric string) ([]float64, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT r.value FROM coldtrap_results r JOIN runs ON runs.id = r.run_id
		 WHERE runs.run_name = ? AND r.coldtrap = ? AND r.metric = ?
		 ORDER BY runs.seed`,
		runName, coldtrap, metric,
	)
	if err != nil {
		return nil, fmt.Errorf("query values: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s %s %s", storage.ErrRunNotFound, runName, coldtrap, metric)
	}
	return out, nil
}

// Layers returns every layer of a cold trap across the seeds of a run.
func (s *Store) Layers(ctx context.Context, runName, coldtrap string) ([]LayerRow, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT runs.seed, l.ice, l.ejecta, l.source, l.time_bot, l.time_top, l.depth
		 FROM layers l JOIN runs ON runs.id = l.run_id
		 WHERE runs.run_name = ? AND l.coldtrap = ?
		 ORDER BY runs.seed, l.idx`,
		runName, coldtrap,
	)
	if err != nil {
		return nil, fmt.Errorf("query layers: %w", err)
	}
	defer rows.Close()

	var out []LayerRow
	for rows.Next() {
		var r LayerRow
		if err := rows.Scan(&r.Seed, &r.Ice, &r.Ejecta, &r.Source, &r.TimeBot, &r.TimeTop, &r.Depth); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delete removes every seed of a run name from the index.
func (s *Store) Delete(ctx context.Context, runName string) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM runs WHERE run_name = ?`, runName)
	if err != nil {
		return 0, fmt.Errorf("delete run: %w", err)
	}
	return res.RowsAffected()
}

// Reindex rebuilds the index from a directory store's metadata. Layers are
// read back from the layer tables.
func (s *Store) Reindex(ctx context.Context, dir *storage.Store) (int, error) {
	runs, err := dir.List()
	if err != nil {
		return 0, err
	}
	var n int
	for _, meta := range runs {
		cfg, err := dir.LoadConfig(meta.RunName, meta.Seed)
		if err != nil {
			return n, err
		}
		res := &sim.Result{Config: cfg, Metrics: meta.Metrics, Layers: make(map[string][]strat.Layer)}
		names := append([]string(nil), meta.Coldtraps...)
		sort.Strings(names)
		for _, ct := range names {
			layers, err := dir.LoadLayers(meta.RunName, meta.Seed, ct)
			if err != nil && !errors.Is(err, storage.ErrRunNotFound) {
				return n, err
			}
			res.Layers[ct] = layers
		}
		if _, err := s.RecordRun(ctx, res, cfg.OutDir()); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
