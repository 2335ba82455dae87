package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
)

// SessionRepository implements domain.SessionRepository with SQLite
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a SQLite-backed repository
func NewSessionRepository(dbPath string) (*SessionRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create tables if not exists
	// Times are unix nanoseconds so exported and archived samples stay identical
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		port TEXT NOT NULL,
		protocol TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		ended_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS samples (
		session_id INTEGER NOT NULL REFERENCES sessions(id),
		idx INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		temperature REAL NOT NULL,
		sequence INTEGER,
		PRIMARY KEY (session_id, idx)
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
	`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SessionRepository{db: db}, nil
}

// SaveSession stores the session and its samples in one transaction
func (r *SessionRepository) SaveSession(ctx context.Context, session *domain.Session) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (port, protocol, started_at, ended_at) VALUES (?, ?, ?, ?)`,
		session.Port, session.Protocol, session.StartedAt.UnixNano(), session.EndedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO samples (session_id, idx, timestamp, temperature, sequence) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range session.Samples {
		var seq sql.NullInt64
		if s.HasSequence {
			seq = sql.NullInt64{Int64: int64(s.Sequence), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, id, i, s.Timestamp.UnixNano(), s.Temperature, seq); err != nil {
			return fmt.Errorf("failed to insert sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}

	session.ID = id
	return nil
}

// GetSession retrieves a session and its samples by ID
func (r *SessionRepository) GetSession(ctx context.Context, id int64) (*domain.Session, error) {
	query := `SELECT id, port, protocol, started_at, ended_at FROM sessions WHERE id = ?`
	return r.getSession(ctx, query, id)
}

// GetLatestSession returns the most recently started session
func (r *SessionRepository) GetLatestSession(ctx context.Context) (*domain.Session, error) {
	query := `
		SELECT id, port, protocol, started_at, ended_at
		FROM sessions
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`
	return r.getSession(ctx, query)
}

func (r *SessionRepository) getSession(ctx context.Context, query string, args ...any) (*domain.Session, error) {
	var session domain.Session
	var startedAt, endedAt int64

	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&session.ID, &session.Port, &session.Protocol, &startedAt, &endedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	session.StartedAt = time.Unix(0, startedAt)
	session.EndedAt = time.Unix(0, endedAt)

	session.Samples, err = r.getSamples(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	return &session, nil
}

func (r *SessionRepository) getSamples(ctx context.Context, sessionID int64) ([]domain.Sample, error) {
	query := `
		SELECT timestamp, temperature, sequence
		FROM samples
		WHERE session_id = ?
		ORDER BY idx ASC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []domain.Sample
	for rows.Next() {
		var ts int64
		var seq sql.NullInt64
		var s domain.Sample

		if err := rows.Scan(&ts, &s.Temperature, &seq); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}

		s.Timestamp = time.Unix(0, ts)
		if seq.Valid {
			s.Sequence = uint16(seq.Int64)
			s.HasSequence = true
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}

	return samples, nil
}

// Close closes the database connection
func (r *SessionRepository) Close() error {
	return r.db.Close()
}
