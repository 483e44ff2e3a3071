// Package interview runs adaptive interviews: it serialises the turns of
// each session, scores answers, moves the difficulty level, asks the next
// question and computes the final evaluation with proctoring penalties.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/level"
	"github.com/pavelanni/interviewer/internal/llm"
	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/proctor"
	"github.com/pavelanni/interviewer/internal/roles"
	"github.com/pavelanni/interviewer/internal/scoring"
	"github.com/pavelanni/interviewer/internal/speech"
	"github.com/pavelanni/interviewer/internal/store"
)

// MinAnswerChars is the shortest trimmed answer that is scored.
const MinAnswerChars = 3

const (
	DefaultMaxQuestions = 9
	DefaultTurnTimeout  = 3 * time.Minute
)

// Store is the persistence the manager needs. *store.Store satisfies it.
type Store interface {
	CreateSession(sess model.InterviewSession) error
	UpdateSession(sess model.InterviewSession) error
	AddTurn(t model.Turn) (int64, error)
	SaveFinalEvaluation(e model.StoredEvaluation) error
	GetFinalEvaluation(sessionID string) (*model.StoredEvaluation, error)
}

// Config holds interview parameters.
type Config struct {
	MaxQuestions int
	TurnTimeout  time.Duration
	Detector     proctor.DetectorConfig
}

// Deps are the collaborators of a Manager. Registry, Catalog, Transcriber
// and Counters get in-process defaults when nil; Faces may stay nil to
// disable frame analysis.
type Deps struct {
	Store       Store
	Generator   llm.Generator
	Registry    *Registry
	Catalog     *roles.Catalog
	Transcriber speech.Transcriber
	Counters    proctor.Counters
	Faces       proctor.FaceAnalyzer
}

// Manager orchestrates interviews.
type Manager struct {
	cfg         Config
	store       Store
	registry    *Registry
	catalog     *roles.Catalog
	scorer      *scoring.Scorer
	questioner  *Questioner
	transcriber speech.Transcriber
	counters    proctor.Counters
	faces       proctor.FaceAnalyzer

	now   func() time.Time
	newID func() string
}

// NewManager wires a manager from its collaborators.
func NewManager(cfg Config, d Deps) *Manager {
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = DefaultMaxQuestions
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = DefaultTurnTimeout
	}
	if cfg.Detector == (proctor.DetectorConfig{}) {
		cfg.Detector = proctor.DefaultDetectorConfig
	}
	if d.Registry == nil {
		d.Registry = NewRegistry()
	}
	if d.Catalog == nil {
		d.Catalog = roles.Default()
	}
	if d.Generator == nil {
		d.Generator = llm.Offline{}
	}
	if d.Transcriber == nil {
		d.Transcriber = speech.Disabled{}
	}
	if d.Counters == nil {
		d.Counters = proctor.NewMemoryCounters()
	}
	return &Manager{
		cfg:         cfg,
		store:       d.Store,
		registry:    d.Registry,
		catalog:     d.Catalog,
		scorer:      scoring.NewScorer(d.Generator),
		questioner:  NewQuestioner(d.Generator, d.Catalog),
		transcriber: d.Transcriber,
		counters:    d.Counters,
		faces:       d.Faces,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// MaxQuestions returns the number of answers that completes an interview.
func (m *Manager) MaxQuestions() int { return m.cfg.MaxQuestions }

// VisionEnabled reports whether video frames can be analysed.
func (m *Manager) VisionEnabled() bool { return m.faces != nil }

// Registry returns the live session registry.
func (m *Manager) Registry() *Registry { return m.registry }

// StartResult is returned by StartSession.
type StartResult struct {
	Session      model.InterviewSession
	Question     string
	MaxQuestions int
}

// StartSession opens a new interview and returns its opening question.
func (m *Manager) StartSession(ctx context.Context, jobRole, candidateName string) (*StartResult, error) {
	jobRole = strings.TrimSpace(jobRole)
	candidateName = strings.TrimSpace(candidateName)
	if jobRole == "" {
		return nil, errors.New("job role is required")
	}

	role := m.catalog.Lookup(jobRole)
	s := &Session{
		info: model.InterviewSession{
			ID:            m.newID(),
			JobRole:       jobRole,
			CandidateName: candidateName,
			Status:        model.StatusInProgress,
			QuestionIndex: 1,
			StartedAt:     m.now(),
		},
		role:     role,
		tracker:  level.NewTracker(),
		ledger:   scoring.NewLedger(),
		question: role.Opening,
		history:  []string{"Interviewer: " + role.Opening},
	}
	if m.faces != nil {
		s.detector = proctor.NewDetector(m.faces, m.cfg.Detector)
	}

	info := s.snapshotLocked()
	if err := m.store.CreateSession(info); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	m.registry.add(s)
	slog.Info("interview started", "session", info.ID, "job_role", jobRole, "candidate", candidateName)

	return &StartResult{Session: info, Question: role.Opening, MaxQuestions: m.cfg.MaxQuestions}, nil
}

// Answer is a candidate reply: typed text or recorded audio.
type Answer struct {
	Text     string
	Audio    []byte
	MIMEType string
}

// TurnResult is the outcome of one submitted answer.
type TurnResult struct {
	Analysis       string                `json:"analysis"`
	NextQuestion   string                `json:"next_question,omitempty"`
	Transcription  string                `json:"transcription"`
	CurrentLevel   model.Difficulty      `json:"current_level"`
	TechnicalScore *int                  `json:"technical_score"`
	ScoreSource    scoring.Source        `json:"score_source,omitempty"`
	QuestionNumber int                   `json:"question_number"`
	MaxQuestions   int                   `json:"max_questions"`
	Skipped        bool                  `json:"skipped"`
	SkipReason     model.SkipReason      `json:"skip_reason,omitempty"`
	Stats          model.ProctoringStats `json:"proctoring_stats"`
	Completion     *Completion           `json:"completion,omitempty"`
}

// Completed reports whether this turn finished the interview.
func (r *TurnResult) Completed() bool { return r.Completion != nil }

// Completion is the final result of an interview.
type Completion struct {
	SessionID  string                `json:"session_id"`
	Evaluation model.FinalEvaluation `json:"evaluation"`
	Feedback   string                `json:"final_feedback"`
	Stats      model.ProctoringStats `json:"proctoring_stats"`
}

// SubmitAnswer processes the answer to the current question. The
// candidate always gets either a next question or, after the last
// question, the completion.
func (m *Manager) SubmitAnswer(ctx context.Context, sessionID string, ans Answer) (*TurnResult, error) {
	s, err := m.live(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil, ErrSessionCompleted
	}

	// A dropped client connection must not leave a half-scored turn.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.TurnTimeout)
	defer cancel()

	res := m.runTurn(ctx, s, ans)
	res.MaxQuestions = m.cfg.MaxQuestions
	res.Stats = m.snapshotStats(ctx, sessionID)

	if s.info.QuestionIndex > m.cfg.MaxQuestions {
		c, err := m.finishLocked(ctx, s)
		if err != nil {
			return nil, err
		}
		res.NextQuestion = ""
		res.Completion = c
	}
	return res, nil
}

func (m *Manager) runTurn(ctx context.Context, s *Session, ans Answer) (res *TurnResult) {
	startIndex := s.info.QuestionIndex
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if s.info.QuestionIndex != startIndex {
			// The turn is already committed; never count it twice.
			slog.Error("turn failed after commit", "session", s.info.ID, "panic", r)
			res = m.committedResult(s)
			return
		}
		slog.Error("turn failed, asking follow-up", "session", s.info.ID, "panic", r)
		res = m.skipTurn(ctx, s, "", "", model.SkipError)
	}()

	text := strings.TrimSpace(ans.Text)
	transcription := ""
	if len(ans.Audio) > 0 {
		t, err := m.transcriber.Transcribe(ctx, ans.Audio, ans.MIMEType)
		if err != nil {
			slog.Warn("transcription failed", "session", s.info.ID, "error", err)
			return m.skipTurn(ctx, s, "", "", model.SkipNoTranscription)
		}
		text = strings.TrimSpace(t)
		transcription = text
		if utf8.RuneCountInString(text) < MinAnswerChars {
			return m.skipTurn(ctx, s, text, transcription, model.SkipNoTranscription)
		}
	}
	if utf8.RuneCountInString(text) < MinAnswerChars {
		return m.skipTurn(ctx, s, text, transcription, model.SkipNoAnswer)
	}
	return m.answerTurn(ctx, s, text, transcription)
}

// answerTurn scores the answer and moves the level. All session state is
// replaced at the end so a failure midway changes nothing.
func (m *Manager) answerTurn(ctx context.Context, s *Session, answer, transcription string) *TurnResult {
	questionNumber := s.info.QuestionIndex
	asked := s.tracker.Current()

	scored := m.scorer.Score(ctx, scoring.ScoreRequest{
		JobRole:  s.info.JobRole,
		Question: s.question,
		Answer:   answer,
		Level:    asked,
	})

	tracker := level.Restore(s.tracker.State())
	tr := tracker.Record(scored.Score)
	if tr.Changed() {
		slog.Info("level changed", "session", s.info.ID, "from", tr.From, "to", tr.To)
	}

	history := append(append([]string(nil), s.history...), "Candidate: "+answer)
	analysis, next := m.questioner.Next(ctx, s.info.JobRole, tracker.Current(), history)
	history = append(history, "Interviewer: "+next)

	st := tracker.State()
	score := scored.Score
	turn := model.Turn{
		SessionID:            s.info.ID,
		QuestionNumber:       questionNumber,
		Question:             s.question,
		Answer:               answer,
		TechnicalScore:       &score,
		ScoreSource:          string(scored.Source),
		Level:                st.Current,
		Analysis:             analysis,
		NextQuestion:         next,
		ConsecutiveCorrect:   st.ConsecutiveCorrect,
		ConsecutiveIncorrect: st.ConsecutiveIncorrect,
		CreatedAt:            m.now(),
	}

	s.tracker = tracker
	s.scores = append(s.scores, score)
	s.ledger.Add(s.question, answer, score, st.Current, analysis)
	s.history = history
	s.question = next
	s.lastAnswer = answer
	s.turns++
	s.info.QuestionIndex++

	m.persistTurn(s, turn)
	slog.Info("answer scored", "session", s.info.ID, "question", questionNumber,
		"score", score, "source", scored.Source, "level", st.Current)

	return &TurnResult{
		Analysis:       analysis,
		NextQuestion:   next,
		Transcription:  transcription,
		CurrentLevel:   st.Current,
		TechnicalScore: &score,
		ScoreSource:    scored.Source,
		QuestionNumber: s.info.QuestionIndex,
	}
}

// skipTurn records an unscored turn and asks a follow-up question at the
// current level.
func (m *Manager) skipTurn(ctx context.Context, s *Session, answer, transcription string, reason model.SkipReason) *TurnResult {
	questionNumber := s.info.QuestionIndex
	lvl := s.tracker.Current()
	next := m.questioner.FollowUp(ctx, s.info.JobRole, lvl, s.question, s.lastAnswer)

	var analysisID string
	switch reason {
	case model.SkipNoTranscription:
		analysisID = "SkipNoTranscription"
	case model.SkipError:
		analysisID = "SkipError"
	default:
		analysisID = "SkipNoAnswer"
	}
	analysis := i18n.T(ctx, analysisID)

	st := s.tracker.State()
	turn := model.Turn{
		SessionID:            s.info.ID,
		QuestionNumber:       questionNumber,
		Question:             s.question,
		Answer:               answer,
		Level:                lvl,
		NextQuestion:         next,
		Skipped:              true,
		SkipReason:           reason,
		ConsecutiveCorrect:   st.ConsecutiveCorrect,
		ConsecutiveIncorrect: st.ConsecutiveIncorrect,
		CreatedAt:            m.now(),
	}

	s.history = append(s.history, "Candidate: [Skipped or unclear answer]", "Interviewer: "+next)
	s.question = next
	s.turns++
	s.info.QuestionIndex++

	m.persistTurn(s, turn)
	slog.Info("turn skipped", "session", s.info.ID, "question", questionNumber, "reason", reason)

	return &TurnResult{
		Analysis:       analysis,
		NextQuestion:   next,
		Transcription:  transcription,
		CurrentLevel:   lvl,
		QuestionNumber: s.info.QuestionIndex,
		Skipped:        true,
		SkipReason:     reason,
	}
}

// committedResult describes the session as it stands after a committed turn.
func (m *Manager) committedResult(s *Session) *TurnResult {
	return &TurnResult{
		NextQuestion:   s.question,
		CurrentLevel:   s.tracker.Current(),
		QuestionNumber: s.info.QuestionIndex,
	}
}

// persistTurn stores the turn and the session state. Failures are logged;
// the in-memory session stays authoritative.
func (m *Manager) persistTurn(s *Session, t model.Turn) {
	if err := storeCall(func() error {
		_, err := m.store.AddTurn(t)
		return err
	}); err != nil {
		slog.Error("failed to store turn", "session", s.info.ID, "question", t.QuestionNumber, "error", err)
	}
	if err := storeCall(func() error { return m.store.UpdateSession(s.snapshotLocked()) }); err != nil {
		slog.Error("failed to update session", "session", s.info.ID, "error", err)
	}
}

// storeCall runs fn and turns a panic into an error.
func storeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("store panic: %v", r)
		}
	}()
	return fn()
}

// EndSession completes the interview and returns its final evaluation.
// Ending an already completed interview returns the stored evaluation.
func (m *Manager) EndSession(ctx context.Context, sessionID string) (*Completion, error) {
	s, ok := m.registry.Get(sessionID)
	if !ok {
		stored, err := m.store.GetFinalEvaluation(sessionID)
		if err != nil {
			return nil, fmt.Errorf("load evaluation: %w", err)
		}
		if stored == nil {
			return nil, ErrSessionNotFound
		}
		return completionFromStored(stored), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return s.final, nil
	}
	return m.finishLocked(context.WithoutCancel(ctx), s)
}

func (m *Manager) finishLocked(ctx context.Context, s *Session) (*Completion, error) {
	id := s.info.ID
	stats := m.snapshotStats(ctx, id)
	st := s.tracker.State()

	eval := scoring.Evaluate(scoring.EvaluationInput{
		FinalLevel:       st.Current,
		TechnicalScores:  s.scores,
		LevelProgression: st.Progression,
		Stats:            stats,
		TotalQuestions:   s.turns,
	})
	eval.PerformanceSummary = PerformanceSummary(ctx, st.Current)
	eval.CompletedAt = m.now()
	legacy := s.ledger.Evaluate(st.Current, stats)
	eval.Legacy = &legacy

	c := &Completion{
		SessionID:  id,
		Evaluation: eval,
		Feedback:   FinalFeedback(ctx, eval, stats),
		Stats:      stats,
	}

	ended := eval.CompletedAt
	s.info.Status = model.StatusCompleted
	s.info.EndedAt = &ended
	if err := storeCall(func() error { return m.store.UpdateSession(s.snapshotLocked()) }); err != nil {
		slog.Error("failed to update session", "session", id, "error", err)
	}

	err := storeCall(func() error {
		return m.store.SaveFinalEvaluation(model.StoredEvaluation{
			SessionID:  id,
			Evaluation: eval,
			Feedback:   c.Feedback,
			CreatedAt:  eval.CompletedAt,
		})
	})
	switch {
	case errors.Is(err, store.ErrEvaluationExists):
		stored, gerr := m.store.GetFinalEvaluation(id)
		if gerr != nil || stored == nil {
			return nil, fmt.Errorf("load existing evaluation: %w", errors.Join(err, gerr))
		}
		c = completionFromStored(stored)
		c.Stats = stats
	case err != nil:
		// The last turn is committed, so the session ends regardless.
		slog.Error("failed to save final evaluation", "session", id, "error", err)
	}

	s.done = true
	s.final = c
	m.registry.remove(id)
	if err := m.counters.Delete(ctx, id); err != nil {
		slog.Warn("failed to drop proctoring counters", "session", id, "error", err)
	}
	slog.Info("interview completed", "session", id, "level", eval.FinalLevel,
		"overall", eval.OverallScore, "penalty", eval.ProctoringPenalty)
	return c, nil
}

func completionFromStored(e *model.StoredEvaluation) *Completion {
	c := &Completion{SessionID: e.SessionID, Evaluation: e.Evaluation, Feedback: e.Feedback}
	if ps := e.Evaluation.PenaltyDetails.ProctoringStats; ps != nil {
		c.Stats = *ps
	}
	return c
}

// RecordProctoringEvent counts an out-of-band event such as a tab switch
// and returns the updated counters. It does not wait for a running turn.
func (m *Manager) RecordProctoringEvent(ctx context.Context, sessionID string, kind model.EventKind) (model.ProctoringStats, error) {
	if _, err := m.live(sessionID); err != nil {
		return model.ProctoringStats{}, err
	}
	delta, err := proctor.DeltaForEvent(kind)
	if err != nil {
		return model.ProctoringStats{}, err
	}
	if err := m.counters.Add(ctx, sessionID, delta); err != nil {
		return model.ProctoringStats{}, fmt.Errorf("record %s: %w", kind, err)
	}
	if err := m.dropIfCompleted(ctx, sessionID); err != nil {
		return model.ProctoringStats{}, err
	}
	slog.Debug("proctoring event", "session", sessionID, "kind", kind)
	return m.counters.Snapshot(ctx, sessionID)
}

// dropIfCompleted removes counters written after the session ended.
func (m *Manager) dropIfCompleted(ctx context.Context, sessionID string) error {
	if _, ok := m.registry.Get(sessionID); ok {
		return nil
	}
	if err := m.counters.Delete(ctx, sessionID); err != nil {
		slog.Warn("failed to drop proctoring counters", "session", sessionID, "error", err)
	}
	return ErrSessionCompleted
}

// FrameResult is the outcome of one analysed video frame.
type FrameResult struct {
	Detection proctor.Detection     `json:"detection"`
	Stats     model.ProctoringStats `json:"session_stats"`
}

// ProcessFrame runs the face detector on a video frame and counts its alerts.
func (m *Manager) ProcessFrame(ctx context.Context, sessionID string, frame []byte) (*FrameResult, error) {
	if m.faces == nil {
		return nil, ErrVisionDisabled
	}
	s, err := m.live(sessionID)
	if err != nil {
		return nil, err
	}
	det, err := s.detector.Detect(ctx, frame)
	if err != nil {
		return nil, err
	}
	if delta := proctor.DeltaForAlerts(det.Alerts); delta != (model.ProctoringStats{}) {
		if err := m.counters.Add(ctx, sessionID, delta); err != nil {
			return nil, fmt.Errorf("record frame alerts: %w", err)
		}
		if err := m.dropIfCompleted(ctx, sessionID); err != nil {
			return nil, err
		}
		slog.Info("proctoring alerts", "session", sessionID, "alerts", det.Alerts)
	}
	stats, err := m.counters.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &FrameResult{Detection: det, Stats: stats}, nil
}

// ProctoringSummary is the live integrity view of a session.
type ProctoringSummary struct {
	Stats   model.ProctoringStats `json:"proctoring_stats"`
	Penalty scoring.Penalty       `json:"penalty"`
}

// ProctoringSummary returns the current counters and the penalty they
// would cost if the interview ended now.
func (m *Manager) ProctoringSummary(ctx context.Context, sessionID string) (*ProctoringSummary, error) {
	if _, err := m.live(sessionID); err != nil {
		return nil, err
	}
	stats, err := m.counters.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &ProctoringSummary{Stats: stats, Penalty: scoring.CalculatePenalty(stats)}, nil
}

// Session returns the live session with the given ID.
func (m *Manager) Session(sessionID string) (*Session, error) {
	return m.live(sessionID)
}

func (m *Manager) live(sessionID string) (*Session, error) {
	if s, ok := m.registry.Get(sessionID); ok {
		return s, nil
	}
	stored, err := m.store.GetFinalEvaluation(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load evaluation: %w", err)
	}
	if stored != nil {
		return nil, ErrSessionCompleted
	}
	return nil, ErrSessionNotFound
}

func (m *Manager) snapshotStats(ctx context.Context, sessionID string) model.ProctoringStats {
	stats, err := m.counters.Snapshot(ctx, sessionID)
	if err != nil {
		slog.Error("failed to read proctoring counters", "session", sessionID, "error", err)
	}
	return stats
}
