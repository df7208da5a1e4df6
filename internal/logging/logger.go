// Package logging persists per-turn records to sqlite so sessions can be
// replayed, reviewed and rated after the fact.
package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type TurnLog struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	Turn      int       `json:"turn"`
	Seed      int64     `json:"seed"`
	Action    string    `json:"action"`
	Narrative string    `json:"narrative"`
	Events    string    `json:"events"`
	State     string    `json:"state"`
	Metadata  string    `json:"metadata"`
	Rating    *int      `json:"rating,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
}

type TurnMetadata struct {
	Model        string        `json:"model"`
	ResponseTime time.Duration `json:"response_time_ms"`
	AIUsed       bool          `json:"ai_used"`
	Error        *string       `json:"error,omitempty"`
}

type TurnLogger struct {
	db *sql.DB
}

func NewTurnLogger(path string) (*TurnLogger, error) {
	if path == "" {
		path = "./turns.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger := &TurnLogger{db: db}
	if err := logger.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return logger, nil
}

func (tl *TurnLogger) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		session_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		action TEXT NOT NULL,
		narrative TEXT NOT NULL,
		events TEXT NOT NULL,
		state TEXT NOT NULL,
		metadata TEXT NOT NULL,
		rating INTEGER,
		notes TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, turn);
	CREATE INDEX IF NOT EXISTS idx_turns_timestamp ON turns(timestamp);
	CREATE INDEX IF NOT EXISTS idx_turns_rating ON turns(rating);
	`

	_, err := tl.db.Exec(schema)
	return err
}

// LogTurn records one completed turn. State is the post-turn snapshot and is
// stored as JSON so a session can be reconstructed turn by turn.
func (tl *TurnLogger) LogTurn(
	sessionID string,
	turn int,
	seed int64,
	action string,
	narrative string,
	eventsFired []string,
	state map[string]any,
	metadata TurnMetadata,
) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = tl.db.Exec(`
		INSERT INTO turns (session_id, turn, seed, action, narrative, events, state, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, sessionID, turn, seed, action, narrative, strings.Join(eventsFired, ","), string(stateJSON), string(metadataJSON))

	return err
}

func (tl *TurnLogger) GetRecentTurns(limit int) ([]TurnLog, error) {
	rows, err := tl.db.Query(`
		SELECT id, timestamp, session_id, turn, seed, action, narrative, events, state, metadata, rating, notes
		FROM turns
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []TurnLog
	for rows.Next() {
		var t TurnLog
		err := rows.Scan(&t.ID, &t.Timestamp, &t.SessionID, &t.Turn, &t.Seed,
			&t.Action, &t.Narrative, &t.Events, &t.State, &t.Metadata, &t.Rating, &t.Notes)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}

	return turns, rows.Err()
}

// GetSessionTurns returns every turn of one session in turn order, which is
// the shape replay needs.
func (tl *TurnLogger) GetSessionTurns(sessionID string) ([]TurnLog, error) {
	rows, err := tl.db.Query(`
		SELECT id, timestamp, session_id, turn, seed, action, narrative, events, state, metadata, rating, notes
		FROM turns
		WHERE session_id = ?
		ORDER BY turn ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []TurnLog
	for rows.Next() {
		var t TurnLog
		err := rows.Scan(&t.ID, &t.Timestamp, &t.SessionID, &t.Turn, &t.Seed,
			&t.Action, &t.Narrative, &t.Events, &t.State, &t.Metadata, &t.Rating, &t.Notes)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}

	return turns, rows.Err()
}

func (tl *TurnLogger) RateTurn(id int, rating int, notes string) error {
	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}

	_, err := tl.db.Exec(`
		UPDATE turns
		SET rating = ?, notes = ?
		WHERE id = ?
	`, rating, notesPtr, id)

	return err
}

func (tl *TurnLogger) Close() error {
	return tl.db.Close()
}
