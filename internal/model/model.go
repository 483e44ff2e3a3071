package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleReviewer can read stored interviews.
	UserRoleReviewer UserRole = "reviewer"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents an operator account for the review endpoints.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// SessionStatus represents the lifecycle state of an interview session.
type SessionStatus string

const (
	StatusNotStarted SessionStatus = "not_started"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// Difficulty is the interview level a question is asked at.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists the levels from lowest to highest.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Valid reports whether d is one of the known levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// InterviewSession is the persisted view of one candidate interview.
type InterviewSession struct {
	ID                   string        `json:"session_id"`
	JobRole              string        `json:"job_role"`
	CandidateName        string        `json:"candidate_name"`
	Status               SessionStatus `json:"status"`
	CurrentLevel         Difficulty    `json:"current_level"`
	QuestionIndex        int           `json:"question_index"`
	ConsecutiveCorrect   int           `json:"consecutive_correct"`
	ConsecutiveIncorrect int           `json:"consecutive_incorrect"`
	LevelProgression     []Difficulty  `json:"level_progression"`
	StartedAt            time.Time     `json:"started_at"`
	EndedAt              *time.Time    `json:"ended_at,omitempty"`
}

// SkipReason explains why a turn produced no score.
type SkipReason string

const (
	SkipNoAnswer        SkipReason = "no_answer"
	SkipNoTranscription SkipReason = "no_transcription"
	SkipError           SkipReason = "error"
)

// Turn is one question/answer exchange. Skipped turns carry no score.
type Turn struct {
	ID                   int64      `json:"id"`
	SessionID            string     `json:"session_id"`
	QuestionNumber       int        `json:"question_number"`
	Question             string     `json:"question"`
	Answer               string     `json:"answer"`
	TechnicalScore       *int       `json:"technical_score,omitempty"`
	ScoreSource          string     `json:"score_source,omitempty"`
	Level                Difficulty `json:"level"`
	Analysis             string     `json:"analysis,omitempty"`
	NextQuestion         string     `json:"next_question,omitempty"`
	Skipped              bool       `json:"skipped"`
	SkipReason           SkipReason `json:"skip_reason,omitempty"`
	ConsecutiveCorrect   int        `json:"consecutive_correct"`
	ConsecutiveIncorrect int        `json:"consecutive_incorrect"`
	CreatedAt            time.Time  `json:"created_at"`
}

// ScoreRecord is an immutable entry of the per-question score ledger.
type ScoreRecord struct {
	QuestionNumber int        `json:"question_number"`
	Question       string     `json:"question"`
	Answer         string     `json:"answer"`
	TechnicalScore int        `json:"technical_score"`
	Level          Difficulty `json:"level"`
	Analysis       string     `json:"analysis,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
}

// ProctoringStats counts integrity events observed during a session.
type ProctoringStats struct {
	TabSwitchCount int `json:"tab_switch_count"`
	MultipleFaces  int `json:"multiple_faces"`
	FaceCoverings  int `json:"face_coverings"`
	EyeCoverings   int `json:"eye_coverings"`
	NoFaceCount    int `json:"no_face_count"`
	TotalAlerts    int `json:"total_alerts"`
}

// AlertToken is a label emitted by the frame detector.
type AlertToken string

const (
	AlertMultiplePeople AlertToken = "MULTIPLE_PEOPLE"
	AlertFaceCovered    AlertToken = "FACE_COVERED"
	AlertEyesCovered    AlertToken = "EYES_COVERED"
	AlertNoFace         AlertToken = "NO_FACE"
)

// EventKind is an out-of-band proctoring event reported by a client.
type EventKind string

const (
	EventTabSwitch      EventKind = "tab_switch"
	EventMultiplePeople EventKind = "multiple_people"
	EventFaceCovered    EventKind = "face_covered"
	EventEyesCovered    EventKind = "eyes_covered"
	EventNoFace         EventKind = "no_face"
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventTabSwitch, EventMultiplePeople, EventFaceCovered, EventEyesCovered, EventNoFace:
		return true
	}
	return false
}

// EventForAlert maps a detector alert to the counter it increments.
func EventForAlert(a AlertToken) (EventKind, bool) {
	switch a {
	case AlertMultiplePeople:
		return EventMultiplePeople, true
	case AlertFaceCovered:
		return EventFaceCovered, true
	case AlertEyesCovered:
		return EventEyesCovered, true
	case AlertNoFace:
		return EventNoFace, true
	}
	return "", false
}

// PenaltyDetails is the itemized proctoring deduction.
type PenaltyDetails struct {
	BaseScore        float64          `json:"base_score"`
	PenaltiesApplied []string         `json:"penalties_applied"`
	TotalPenalty     int              `json:"total_penalty"`
	ProctoringStats  *ProctoringStats `json:"proctoring_stats,omitempty"`
}

// FinalEvaluation is computed once when an interview completes.
type FinalEvaluation struct {
	FinalLevel         Difficulty        `json:"final_level"`
	LevelScore         float64           `json:"level_score"`
	TechnicalScoreAvg  float64           `json:"technical_score"`
	BaseScore          float64           `json:"base_score"`
	ProctoringPenalty  int               `json:"proctoring_penalty"`
	OverallScore       float64           `json:"overall_score"`
	LevelProgression   []Difficulty      `json:"level_progression"`
	TotalQuestions     int               `json:"total_questions"`
	QuestionsAnswered  int               `json:"questions_answered"`
	PenaltyDetails     PenaltyDetails    `json:"penalty_details"`
	PerformanceSummary string            `json:"performance_summary"`
	CompletedAt        time.Time         `json:"completion_time"`
	Legacy             *LegacyEvaluation `json:"legacy,omitempty"`
}

// LegacyEvaluation is the secondary blend computed from the score ledger.
type LegacyEvaluation struct {
	OverallScore      float64        `json:"overall_score"`
	BaseScore         float64        `json:"base_score"`
	TechnicalScoreAvg float64        `json:"technical_score"`
	ProctoringPenalty int            `json:"proctoring_penalty"`
	FinalLevel        Difficulty     `json:"final_level"`
	QuestionsAnswered int            `json:"questions_answered"`
	LevelProgression  []Difficulty   `json:"level_progression"`
	Breakdown         []ScoreRecord  `json:"question_breakdown"`
	Strengths         []string       `json:"strengths"`
	Weaknesses        []string       `json:"areas_for_improvement"`
	PenaltyDetails    PenaltyDetails `json:"penalty_details"`
}

// StoredEvaluation is a final evaluation as persisted, with its feedback text.
type StoredEvaluation struct {
	SessionID  string          `json:"session_id"`
	Evaluation FinalEvaluation `json:"evaluation"`
	Feedback   string          `json:"feedback"`
	CreatedAt  time.Time       `json:"created_at"`
}

// InterviewConfig holds runtime interview parameters set via CLI flags.
type InterviewConfig struct {
	MaxQuestions   int    // questions per interview
	Lang           string // feedback language
	AllowedOrigins []string
}

// SessionView combines a session with its turns and evaluation for review.
type SessionView struct {
	Session    InterviewSession  `json:"session"`
	Turns      []Turn            `json:"turns"`
	Evaluation *StoredEvaluation `json:"evaluation,omitempty"`
}
