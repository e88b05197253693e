package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"

	"github.com/meera/yojana/internal/memory"
)

// CheckpointStore persists serialized run state to sqlite so an interrupted
// run can be resumed later at its stored iteration count.
type CheckpointStore struct {
	DB *sql.DB
}

// CheckpointInfo is one row of the checkpoint listing.
type CheckpointInfo struct {
	RunID      string
	Goal       string
	Status     string
	Iterations int
	UpdatedAt  string
}

func NewCheckpointStore(dbPath string) (*CheckpointStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if not exist
	query := `CREATE TABLE IF NOT EXISTS checkpoints (
		run_id TEXT PRIMARY KEY,
		goal TEXT,
		status TEXT,
		iterations INTEGER,
		state TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(query); err != nil {
		return nil, err
	}

	return &CheckpointStore{DB: db}, nil
}

// NewRunID returns a fresh id for a run.
func NewRunID() string {
	return uuid.NewString()
}

// Save writes the run's current state, replacing any prior checkpoint for
// the same run id.
func (s *CheckpointStore) Save(runID string, mem *memory.Memory) error {
	data, err := mem.Serialize()
	if err != nil {
		return err
	}
	query := `INSERT OR REPLACE INTO checkpoints (run_id, goal, status, iterations, state, updated_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))`
	_, err = s.DB.Exec(query, runID, mem.Goal, string(mem.Status.Kind), mem.Iterations, string(data))
	return err
}

// Load reads a run's state back. An unknown run id is an error.
func (s *CheckpointStore) Load(runID string) (*memory.Memory, error) {
	var state string
	query := `SELECT state FROM checkpoints WHERE run_id = ?`
	err := s.DB.QueryRow(query, runID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: checkpoint not found: %s", runID)
	}
	if err != nil {
		return nil, err
	}
	return memory.Deserialize([]byte(state))
}

// List returns all checkpoints, most recently updated first.
func (s *CheckpointStore) List() ([]CheckpointInfo, error) {
	query := `SELECT run_id, goal, status, iterations, updated_at FROM checkpoints ORDER BY updated_at DESC`
	rows, err := s.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []CheckpointInfo
	for rows.Next() {
		var info CheckpointInfo
		if err := rows.Scan(&info.RunID, &info.Goal, &info.Status, &info.Iterations, &info.UpdatedAt); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Delete removes a run's checkpoint.
func (s *CheckpointStore) Delete(runID string) error {
	query := `DELETE FROM checkpoints WHERE run_id = ?`
	_, err := s.DB.Exec(query, runID)
	return err
}

// Close closes the underlying database.
func (s *CheckpointStore) Close() error {
	return s.DB.Close()
}
