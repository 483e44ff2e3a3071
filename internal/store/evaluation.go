package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/interviewer/internal/model"
)

// SaveFinalEvaluation stores the final evaluation of a session. A second
// call for the same session returns ErrEvaluationExists and leaves the
// first record untouched.
func (s *Store) SaveFinalEvaluation(e model.StoredEvaluation) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	data, err := json.Marshal(e.Evaluation)
	if err != nil {
		return fmt.Errorf("encode evaluation: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO final_evaluations (session_id, overall_score, final_level, evaluation, feedback, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		e.SessionID, e.Evaluation.OverallScore, e.Evaluation.FinalLevel, string(data), e.Feedback, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evaluation for %s: %w", e.SessionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEvaluationExists
	}
	return nil
}

// GetFinalEvaluation returns the stored evaluation for a session, or nil.
func (s *Store) GetFinalEvaluation(sessionID string) (*model.StoredEvaluation, error) {
	var e model.StoredEvaluation
	var data string
	err := s.db.QueryRow(
		`SELECT session_id, evaluation, feedback, created_at FROM final_evaluations WHERE session_id = ?`,
		sessionID,
	).Scan(&e.SessionID, &data, &e.Feedback, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &e.Evaluation); err != nil {
		return nil, fmt.Errorf("decode evaluation for %s: %w", sessionID, err)
	}
	return &e, nil
}
