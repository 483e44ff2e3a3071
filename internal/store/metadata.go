package store

import (
	"database/sql"
	"strconv"
)

// Metadata keys recorded by the server at startup.
const (
	MetaMaxQuestions = "max_questions"
	MetaModel        = "llm_model"
)

// SetMetadata upserts a key-value pair.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO service_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM service_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// RecordRunConfig remembers the interview length and model in use so an
// export taken later can report them.
func (s *Store) RecordRunConfig(maxQuestions int, modelID string) error {
	if err := s.SetMetadata(MetaMaxQuestions, strconv.Itoa(maxQuestions)); err != nil {
		return err
	}
	return s.SetMetadata(MetaModel, modelID)
}

// MaxQuestions returns the recorded interview length, or 0 if unknown.
func (s *Store) MaxQuestions() (int, error) {
	v, err := s.GetMetadata(MetaMaxQuestions)
	if err != nil || v == "" {
		return 0, err
	}
	return strconv.Atoi(v)
}
