package registry

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/samogod/trainconf/pkg/config"
	"github.com/samogod/trainconf/pkg/runconfig"

	_ "github.com/lib/pq"
)

var DebugLog func(string, ...interface{})

type DB struct {
	conn    *sql.DB
	enabled bool
}

// RunRecord is one tracked training run configuration. A run keeps its name
// across edits; each distinct config hash becomes a new revision of it.
type RunRecord struct {
	Name         string
	ConfigHash   string
	WorldSize    int
	TensorPar    int
	PipelinePar  int
	GlobalBatch  int
	Precision    string
	Status       string
	FirstSeen    time.Time
	LastSeen     time.Time
}

const DBName = "trainconf_runs"

func New(cfg *config.Registry) (*DB, error) {
	db := &DB{
		enabled: cfg.Enabled,
	}

	if !cfg.Enabled {
		if DebugLog != nil {
			DebugLog("run registry disabled")
		}
		return db, nil
	}

	postgresConnStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=postgres sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password)

	postgresConn, err := sql.Open("postgres", postgresConnStr)
	if err != nil {
		return db, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer postgresConn.Close()

	if err := postgresConn.Ping(); err != nil {
		return db, fmt.Errorf("failed to ping postgres: %w", err)
	}

	var exists bool
	err = postgresConn.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", DBName).Scan(&exists)
	if err != nil {
		return db, fmt.Errorf("failed to check database existence: %w", err)
	}

	if !exists {
		_, err = postgresConn.Exec(fmt.Sprintf("CREATE DATABASE %s", DBName))
		if err != nil {
			return db, fmt.Errorf("failed to create database: %w", err)
		}
		if DebugLog != nil {
			DebugLog("database %s created", DBName)
		}
	}

	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, DBName)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return db, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return db, fmt.Errorf("failed to ping database: %w", err)
	}

	db.conn = conn

	if err := db.initSchema(); err != nil {
		return db, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func (db *DB) initSchema() error {
	if !db.enabled || db.conn == nil {
		return nil
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		config_hash VARCHAR(64) NOT NULL,
		world_size INT NOT NULL,
		tensor_parallel INT NOT NULL,
		pipeline_parallel INT NOT NULL,
		global_batch_size INT NOT NULL,
		precision VARCHAR(20) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'VALID',
		first_seen TIMESTAMP NOT NULL DEFAULT NOW(),
		last_seen TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE(name, config_hash)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_name ON runs(name);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	`

	_, err := db.conn.Exec(schema)
	return err
}

func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *DB) IsEnabled() bool {
	return db.enabled && db.conn != nil
}

// RecordRun upserts one inspected run revision.
func (db *DB) RecordRun(summary runconfig.Summary, valid bool) error {
	if !db.IsEnabled() {
		return nil
	}

	status := "VALID"
	if !valid {
		status = "INVALID"
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM runs WHERE name = $1 AND config_hash = $2)
	`, summary.Name, summary.ConfigHash).Scan(&exists)
	if err != nil {
		return err
	}

	if exists {
		if DebugLog != nil {
			DebugLog("updating run %s (%s) in registry", summary.Name, summary.ConfigHash)
		}
		_, err = tx.Exec(`
			UPDATE runs
			SET status = $3, last_seen = NOW()
			WHERE name = $1 AND config_hash = $2
		`, summary.Name, summary.ConfigHash, status)
	} else {
		if DebugLog != nil {
			DebugLog("inserting run %s (%s) into registry", summary.Name, summary.ConfigHash)
		}
		_, err = tx.Exec(`
			INSERT INTO runs (name, config_hash, world_size, tensor_parallel, pipeline_parallel, global_batch_size, precision, status, first_seen, last_seen)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		`, summary.Name, summary.ConfigHash, summary.WorldSize, summary.TensorParallel,
			summary.PipelineParallel, summary.GlobalBatchSize, summary.Precision, status)
	}
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (db *DB) QueryRuns(name string, status string) ([]RunRecord, error) {
	if !db.IsEnabled() {
		return nil, fmt.Errorf("run registry is not enabled")
	}

	query := `
		SELECT name, config_hash, world_size, tensor_parallel, pipeline_parallel, global_batch_size, precision, status, first_seen, last_seen
		FROM runs
		WHERE name = $1
	`
	args := []interface{}{name}

	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}

	query += " ORDER BY first_seen DESC"

	return db.queryRecords(query, args...)
}

func (db *DB) QueryAllRuns(status string) ([]RunRecord, error) {
	if !db.IsEnabled() {
		return nil, fmt.Errorf("run registry is not enabled")
	}

	query := `
		SELECT name, config_hash, world_size, tensor_parallel, pipeline_parallel, global_batch_size, precision, status, first_seen, last_seen
		FROM runs
	`
	var args []interface{}

	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}

	query += " ORDER BY last_seen DESC"

	return db.queryRecords(query, args...)
}

func (db *DB) queryRecords(query string, args ...interface{}) ([]RunRecord, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.Name, &r.ConfigHash, &r.WorldSize, &r.TensorPar, &r.PipelinePar,
			&r.GlobalBatch, &r.Precision, &r.Status, &r.FirstSeen, &r.LastSeen); err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, rows.Err()
}
