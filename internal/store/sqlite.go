package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nscl-frib/spyralgo/internal/tpc"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore is the pure-Go, cgo-free persistence backend for run
// intermediates and results.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (creating if necessary) a SQLite database at path and applies
// any pending schema migrations.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := applyPragmas(db); err != nil {
		return nil, err
	}

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("store: migrations sub-filesystem: %w", err)
	}
	if err := migrateUp(db, sub); err != nil {
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}
	return nil
}

func migrateUp(db *sql.DB, migrations fs.FS) error {
	source, err := iofs.New(migrations, ".")
	if err != nil {
		return fmt.Errorf("store: iofs source: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("store: sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("store: migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("store: migrate up: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// SavePointCloud upserts the point cloud for (runID, event).
func (s *SQLiteStore) SavePointCloud(ctx context.Context, runID string, cloud tpc.PointCloud) error {
	data, err := json.Marshal(cloud.Points)
	if err != nil {
		return fmt.Errorf("store: marshal point cloud: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO point_clouds (run_id, event_id, points_json) VALUES (?, ?, ?)
		 ON CONFLICT(run_id, event_id) DO UPDATE SET points_json = excluded.points_json`,
		runID, cloud.EventID, string(data))
	if err != nil {
		return fmt.Errorf("store: save point cloud: %w", err)
	}
	return nil
}

// LoadPointCloud retrieves the point cloud for (runID, event), if present.
func (s *SQLiteStore) LoadPointCloud(ctx context.Context, runID string, eventID int) (tpc.PointCloud, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT points_json FROM point_clouds WHERE run_id = ? AND event_id = ?`, runID, eventID)
	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return tpc.PointCloud{}, false, nil
		}
		return tpc.PointCloud{}, false, fmt.Errorf("store: load point cloud: %w", err)
	}
	var points []tpc.Point
	if err := json.Unmarshal([]byte(data), &points); err != nil {
		return tpc.PointCloud{}, false, fmt.Errorf("store: unmarshal point cloud: %w", err)
	}
	return tpc.PointCloud{EventID: eventID, Points: points}, true, nil
}

// SaveClusters persists every cluster produced for an event, replacing any
// previously stored clusters for that event.
func (s *SQLiteStore) SaveClusters(ctx context.Context, runID string, eventID int, clusters []tpc.Cluster) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM clusters WHERE run_id = ? AND event_id = ?`, runID, eventID); err != nil {
		return fmt.Errorf("store: clear clusters: %w", err)
	}
	for _, c := range clusters {
		data, err := json.Marshal(c.Data)
		if err != nil {
			return fmt.Errorf("store: marshal cluster: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO clusters (id, run_id, event_id, cluster_index, label, points_json) VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), runID, eventID, c.ClusterIndex, c.Label, string(data))
		if err != nil {
			return fmt.Errorf("store: insert cluster: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit clusters: %w", err)
	}
	return nil
}

// LoadClusters retrieves every cluster stored for an event, ordered by
// cluster index.
func (s *SQLiteStore) LoadClusters(ctx context.Context, runID string, eventID int) ([]tpc.Cluster, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cluster_index, label, points_json FROM clusters WHERE run_id = ? AND event_id = ? ORDER BY cluster_index`,
		runID, eventID)
	if err != nil {
		return nil, fmt.Errorf("store: load clusters: %w", err)
	}
	defer rows.Close()

	var clusters []tpc.Cluster
	for rows.Next() {
		var idx, label int
		var data string
		if err := rows.Scan(&idx, &label, &data); err != nil {
			return nil, fmt.Errorf("store: scan cluster: %w", err)
		}
		var points []tpc.Point
		if err := json.Unmarshal([]byte(data), &points); err != nil {
			return nil, fmt.Errorf("store: unmarshal cluster: %w", err)
		}
		clusters = append(clusters, tpc.Cluster{
			EventID:      eventID,
			ClusterIndex: idx,
			Label:        label,
			Data:         points,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate clusters: %w", err)
	}
	return clusters, nil
}

// SaveResult persists a final per-cluster solver result.
func (s *SQLiteStore) SaveResult(ctx context.Context, runID string, result tpc.SolverResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO solver_results
		 (id, run_id, event_id, cluster_index, cluster_label, vertex_x, vertex_y, vertex_z, brho, polar, azimuthal, direction, objective, ic_good_multiplicity, ic_time_correction_tb)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), runID, result.EventID, result.ClusterIndex, result.ClusterLabel,
		result.Vertex.X, result.Vertex.Y, result.Vertex.Z,
		result.Brho, result.Polar, result.Azimuthal, int(result.Direction), result.Objective,
		result.ICGoodMultiplicity, result.ICTimeCorrectionTB)
	if err != nil {
		return fmt.Errorf("store: save result: %w", err)
	}
	return nil
}

// LoadResults retrieves every solver result stored for a run.
func (s *SQLiteStore) LoadResults(ctx context.Context, runID string) ([]tpc.SolverResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, cluster_index, cluster_label, vertex_x, vertex_y, vertex_z, brho, polar, azimuthal, direction, objective, ic_good_multiplicity, ic_time_correction_tb
		 FROM solver_results WHERE run_id = ? ORDER BY event_id, cluster_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: load results: %w", err)
	}
	defer rows.Close()

	var results []tpc.SolverResult
	for rows.Next() {
		var r tpc.SolverResult
		var direction int
		if err := rows.Scan(&r.EventID, &r.ClusterIndex, &r.ClusterLabel,
			&r.Vertex.X, &r.Vertex.Y, &r.Vertex.Z, &r.Brho, &r.Polar, &r.Azimuthal, &direction, &r.Objective,
			&r.ICGoodMultiplicity, &r.ICTimeCorrectionTB); err != nil {
			return nil, fmt.Errorf("store: scan result: %w", err)
		}
		r.Direction = tpc.Direction(direction)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate results: %w", err)
	}
	return results, nil
}
