// Package store persists interview sessions, turns and final evaluations in
// SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/interviewer/internal/model"

	_ "modernc.org/sqlite"
)

var (
	// ErrEvaluationExists is returned when a session already has a final
	// evaluation. Evaluations are written once.
	ErrEvaluationExists = errors.New("final evaluation already stored")
	// ErrSessionNotFound is returned by updates to an unknown session.
	ErrSessionNotFound = errors.New("session not found")
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS interview_sessions (
		id TEXT PRIMARY KEY,
		job_role TEXT NOT NULL,
		candidate_name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'in_progress',
		current_level TEXT NOT NULL DEFAULT 'easy',
		question_index INTEGER NOT NULL DEFAULT 1,
		consecutive_correct INTEGER NOT NULL DEFAULT 0,
		consecutive_incorrect INTEGER NOT NULL DEFAULT 0,
		level_progression TEXT NOT NULL DEFAULT '[]',
		started_at DATETIME NOT NULL,
		ended_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		question_number INTEGER NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL DEFAULT '',
		technical_score INTEGER,
		score_source TEXT NOT NULL DEFAULT '',
		level TEXT NOT NULL,
		analysis TEXT NOT NULL DEFAULT '',
		next_question TEXT NOT NULL DEFAULT '',
		skipped INTEGER NOT NULL DEFAULT 0,
		skip_reason TEXT NOT NULL DEFAULT '',
		consecutive_correct INTEGER NOT NULL DEFAULT 0,
		consecutive_incorrect INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES interview_sessions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);

	CREATE TABLE IF NOT EXISTS final_evaluations (
		session_id TEXT PRIMARY KEY,
		overall_score REAL NOT NULL,
		final_level TEXT NOT NULL,
		evaluation TEXT NOT NULL,
		feedback TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES interview_sessions(id)
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'reviewer',
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS service_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

const sessionColumns = `id, job_role, candidate_name, status, current_level, question_index,
	consecutive_correct, consecutive_incorrect, level_progression, started_at, ended_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (model.InterviewSession, error) {
	var sess model.InterviewSession
	var progression string
	err := r.Scan(&sess.ID, &sess.JobRole, &sess.CandidateName, &sess.Status, &sess.CurrentLevel,
		&sess.QuestionIndex, &sess.ConsecutiveCorrect, &sess.ConsecutiveIncorrect, &progression,
		&sess.StartedAt, &sess.EndedAt)
	if err != nil {
		return sess, err
	}
	if err := json.Unmarshal([]byte(progression), &sess.LevelProgression); err != nil {
		return sess, fmt.Errorf("decode level progression of %s: %w", sess.ID, err)
	}
	return sess, nil
}

func encodeProgression(p []model.Difficulty) (string, error) {
	if p == nil {
		p = []model.Difficulty{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode level progression: %w", err)
	}
	return string(b), nil
}

// CreateSession stores a new interview session.
func (s *Store) CreateSession(sess model.InterviewSession) error {
	progression, err := encodeProgression(sess.LevelProgression)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO interview_sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.JobRole, sess.CandidateName, sess.Status, sess.CurrentLevel, sess.QuestionIndex,
		sess.ConsecutiveCorrect, sess.ConsecutiveIncorrect, progression, sess.StartedAt, sess.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", sess.ID, err)
	}
	return nil
}

// UpdateSession writes the mutable state of a session.
func (s *Store) UpdateSession(sess model.InterviewSession) error {
	progression, err := encodeProgression(sess.LevelProgression)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(
		`UPDATE interview_sessions SET status = ?, current_level = ?, question_index = ?,
		 consecutive_correct = ?, consecutive_incorrect = ?, level_progression = ?, ended_at = ?
		 WHERE id = ?`,
		sess.Status, sess.CurrentLevel, sess.QuestionIndex, sess.ConsecutiveCorrect,
		sess.ConsecutiveIncorrect, progression, sess.EndedAt, sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session %s: %w", sess.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update session %s: %w", sess.ID, ErrSessionNotFound)
	}
	return nil
}

// GetSession returns a session by ID, or nil if it does not exist.
func (s *Store) GetSession(id string) (*model.InterviewSession, error) {
	sess, err := scanSession(s.db.QueryRow(
		`SELECT `+sessionColumns+` FROM interview_sessions WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions() ([]model.InterviewSession, error) {
	rows, err := s.db.Query(`SELECT ` + sessionColumns + ` FROM interview_sessions ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.InterviewSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// AddTurn appends a turn record and returns its ID.
func (s *Store) AddTurn(t model.Turn) (int64, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO turns (session_id, question_number, question, answer, technical_score, score_source,
		 level, analysis, next_question, skipped, skip_reason, consecutive_correct, consecutive_incorrect, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.SessionID, t.QuestionNumber, t.Question, t.Answer, t.TechnicalScore, t.ScoreSource,
		t.Level, t.Analysis, t.NextQuestion, t.Skipped, t.SkipReason, t.ConsecutiveCorrect,
		t.ConsecutiveIncorrect, t.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert turn %d of %s: %w", t.QuestionNumber, t.SessionID, err)
	}
	return res.LastInsertId()
}

// ListTurns returns the turns of a session in the order they were taken.
func (s *Store) ListTurns(sessionID string) ([]model.Turn, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, question_number, question, answer, technical_score, score_source, level,
		 analysis, next_question, skipped, skip_reason, consecutive_correct, consecutive_incorrect, created_at
		 FROM turns WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var turns []model.Turn
	for rows.Next() {
		var t model.Turn
		var score sql.NullInt64
		if err := rows.Scan(&t.ID, &t.SessionID, &t.QuestionNumber, &t.Question, &t.Answer, &score,
			&t.ScoreSource, &t.Level, &t.Analysis, &t.NextQuestion, &t.Skipped, &t.SkipReason,
			&t.ConsecutiveCorrect, &t.ConsecutiveIncorrect, &t.CreatedAt); err != nil {
			return nil, err
		}
		if score.Valid {
			v := int(score.Int64)
			t.TechnicalScore = &v
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// GetSessionView builds a full view of a session with turns and evaluation.
// It returns nil if the session does not exist.
func (s *Store) GetSessionView(sessionID string) (*model.SessionView, error) {
	sess, err := s.GetSession(sessionID)
	if err != nil || sess == nil {
		return nil, err
	}
	turns, err := s.ListTurns(sessionID)
	if err != nil {
		return nil, err
	}
	eval, err := s.GetFinalEvaluation(sessionID)
	if err != nil {
		return nil, err
	}
	return &model.SessionView{Session: *sess, Turns: turns, Evaluation: eval}, nil
}

// SessionCount returns the number of stored sessions.
func (s *Store) SessionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM interview_sessions`).Scan(&count)
	return count, err
}
