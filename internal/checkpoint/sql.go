package checkpoint

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pocketomega/fsmagent/internal/engine"
)

// schema is the single-table layout spec §6 specifies verbatim.
const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	checkpoint_id TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	state         TEXT NOT NULL,
	memory        TEXT NOT NULL,
	timestamp     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_session ON checkpoints(session_id);
`

// timestampLayout is RFC3339 with a fixed nine-digit fraction, so the text
// column sorts in the same order as the times it holds.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLStore is a relational CheckpointStore backed by SQLite through
// database/sql, grounded on the original implementation's
// SqliteCheckpointStore and on the sibling pack repos' sql.Open("sqlite3", ...)
// + driver blank-import convention.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore opens (creating if absent) a SQLite database at path and
// ensures the checkpoints table exists.
func NewSQLStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open sqlite %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("checkpoint: init schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Save inserts one row per checkpoint; checkpoint_id is the primary key, so
// re-saving the same id is a caller error surfaced by the driver.
func (s *SQLStore) Save(cp engine.Checkpoint) error {
	memoryJSON, err := json.Marshal(cp.Memory)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal memory: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO checkpoints (checkpoint_id, session_id, state, memory, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		cp.CheckpointId, cp.SessionId, string(cp.State), string(memoryJSON), cp.Timestamp.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("checkpoint: insert: %w", err)
	}
	return nil
}

func (s *SQLStore) scanOne(row *sql.Row) (*engine.Checkpoint, error) {
	var (
		checkpointId, sessionId, state, memoryJSON, timestampStr string
	)
	if err := row.Scan(&checkpointId, &sessionId, &state, &memoryJSON, &timestampStr); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("checkpoint: scan row: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, timestampStr)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: parse timestamp: %w", err)
	}
	var mem engine.AgentMemory
	if err := json.Unmarshal([]byte(memoryJSON), &mem); err != nil {
		return nil, fmt.Errorf("checkpoint: unmarshal memory: %w", err)
	}
	return &engine.Checkpoint{
		CheckpointId: checkpointId,
		SessionId:    sessionId,
		State:        engine.State(state),
		Memory:       &mem,
		Timestamp:    ts,
	}, nil
}

// LoadLatest selects the highest-timestamp row for sessionId, per spec §6's
// `ORDER BY timestamp DESC LIMIT 1`.
func (s *SQLStore) LoadLatest(sessionId string) (*engine.Checkpoint, error) {
	row := s.db.QueryRow(
		`SELECT checkpoint_id, session_id, state, memory, timestamp
		 FROM checkpoints WHERE session_id = ? ORDER BY timestamp DESC LIMIT 1`,
		sessionId,
	)
	return s.scanOne(row)
}

// LoadById selects the row with the given checkpoint_id, the table's
// primary key.
func (s *SQLStore) LoadById(checkpointId string) (*engine.Checkpoint, error) {
	row := s.db.QueryRow(
		`SELECT checkpoint_id, session_id, state, memory, timestamp
		 FROM checkpoints WHERE checkpoint_id = ?`,
		checkpointId,
	)
	return s.scanOne(row)
}

// ListSessions returns every distinct session_id in the table, sorted by the
// driver's default collation.
func (s *SQLStore) ListSessions() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT session_id FROM checkpoints ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("checkpoint: scan session: %w", err)
		}
		sessions = append(sessions, id)
	}
	return sessions, rows.Err()
}

var _ engine.CheckpointStore = (*SQLStore)(nil)
