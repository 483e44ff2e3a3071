package model

import "time"

// InterviewExport is the top-level JSON structure for interview result export.
type InterviewExport struct {
	ExportedAt   time.Time         `json:"exported_at"`
	MaxQuestions int               `json:"max_questions"`
	Results      []CandidateResult `json:"results"`
}

// CandidateResult holds one candidate's interview for export.
type CandidateResult struct {
	SessionID        string            `json:"session_id"`
	CandidateName    string            `json:"candidate_name"`
	JobRole          string            `json:"job_role"`
	Status           SessionStatus     `json:"status"`
	StartedAt        time.Time         `json:"started_at"`
	EndedAt          *time.Time        `json:"ended_at,omitempty"`
	FinalLevel       Difficulty        `json:"final_level"`
	LevelProgression []Difficulty      `json:"level_progression"`
	Conversation     []ConversationMsg `json:"conversation"`
	OverallScore     *float64          `json:"overall_score,omitempty"`
	Feedback         string            `json:"feedback,omitempty"`
}

// ConversationMsg is a single exchange in an exported conversation.
type ConversationMsg struct {
	Role    string     `json:"role"`
	Content string     `json:"content"`
	Score   *int       `json:"score,omitempty"`
	Level   Difficulty `json:"level,omitempty"`
	At      time.Time  `json:"at"`
}
