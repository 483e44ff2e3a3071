package store

import (
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/interviewer/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestSession(t *testing.T, s *Store, id string) model.InterviewSession {
	t.Helper()
	sess := model.InterviewSession{
		ID:               id,
		JobRole:          "Software Engineer",
		CandidateName:    "Alex",
		Status:           model.StatusInProgress,
		CurrentLevel:     model.DifficultyEasy,
		QuestionIndex:    1,
		LevelProgression: []model.Difficulty{model.DifficultyEasy},
		StartedAt:        time.Now().UTC().Truncate(time.Second),
	}
	if err := s.CreateSession(sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return sess
}

func intPtr(v int) *int { return &v }

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetSession("missing")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing session, got %+v", got)
	}

	sess := createTestSession(t, s, "s1")
	got, err = s.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.CandidateName != "Alex" || got.Status != model.StatusInProgress {
		t.Errorf("unexpected session %+v", got)
	}
	if got.EndedAt != nil {
		t.Errorf("expected nil EndedAt, got %v", got.EndedAt)
	}

	ended := time.Now().UTC().Truncate(time.Second)
	sess.Status = model.StatusCompleted
	sess.CurrentLevel = model.DifficultyMedium
	sess.QuestionIndex = 4
	sess.ConsecutiveCorrect = 3
	sess.LevelProgression = append(sess.LevelProgression, model.DifficultyMedium)
	sess.EndedAt = &ended
	if err := s.UpdateSession(sess); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}

	got, err = s.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Status != model.StatusCompleted || got.CurrentLevel != model.DifficultyMedium {
		t.Errorf("update not applied: %+v", got)
	}
	if got.QuestionIndex != 4 || got.ConsecutiveCorrect != 3 {
		t.Errorf("counters not applied: %+v", got)
	}
	if len(got.LevelProgression) != 2 || got.LevelProgression[1] != model.DifficultyMedium {
		t.Errorf("level progression = %v", got.LevelProgression)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(ended) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, ended)
	}

	err = s.UpdateSession(model.InterviewSession{ID: "missing"})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("UpdateSession(missing) error = %v, want ErrSessionNotFound", err)
	}
}

func TestListSessions(t *testing.T) {
	s := newTestStore(t)
	createTestSession(t, s, "a")
	createTestSession(t, s, "b")

	list, err := s.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}
	count, err := s.SessionCount()
	if err != nil {
		t.Fatalf("SessionCount: %v", err)
	}
	if count != 2 {
		t.Errorf("SessionCount = %d, want 2", count)
	}
}

func TestTurns(t *testing.T) {
	s := newTestStore(t)
	createTestSession(t, s, "s1")

	turns := []model.Turn{
		{SessionID: "s1", QuestionNumber: 1, Question: "Q1", Answer: "A1", TechnicalScore: intPtr(75),
			ScoreSource: "llm", Level: model.DifficultyEasy, Analysis: "ok", NextQuestion: "Q2", ConsecutiveCorrect: 1},
		{SessionID: "s1", QuestionNumber: 2, Question: "Q2", Level: model.DifficultyEasy,
			NextQuestion: "Q3", Skipped: true, SkipReason: model.SkipNoAnswer, ConsecutiveCorrect: 1},
	}
	for _, turn := range turns {
		if _, err := s.AddTurn(turn); err != nil {
			t.Fatalf("AddTurn: %v", err)
		}
	}

	got, err := s.ListTurns("s1")
	if err != nil {
		t.Fatalf("ListTurns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(got))
	}
	if got[0].TechnicalScore == nil || *got[0].TechnicalScore != 75 {
		t.Errorf("turn 1 score = %v, want 75", got[0].TechnicalScore)
	}
	if got[0].Skipped {
		t.Error("turn 1 should not be skipped")
	}
	if got[1].TechnicalScore != nil {
		t.Errorf("skipped turn has score %d", *got[1].TechnicalScore)
	}
	if !got[1].Skipped || got[1].SkipReason != model.SkipNoAnswer {
		t.Errorf("turn 2 = %+v, want skipped with no_answer", got[1])
	}
	if got[1].CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	other, err := s.ListTurns("other")
	if err != nil {
		t.Fatalf("ListTurns: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no turns for other session, got %d", len(other))
	}
}

func TestFinalEvaluationWrittenOnce(t *testing.T) {
	s := newTestStore(t)
	createTestSession(t, s, "s1")

	got, err := s.GetFinalEvaluation("s1")
	if err != nil {
		t.Fatalf("GetFinalEvaluation: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil before save, got %+v", got)
	}

	first := model.StoredEvaluation{
		SessionID: "s1",
		Evaluation: model.FinalEvaluation{
			FinalLevel:       model.DifficultyHard,
			OverallScore:     90,
			BaseScore:        90,
			LevelProgression: []model.Difficulty{model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard},
			PenaltyDetails:   model.PenaltyDetails{BaseScore: 90, PenaltiesApplied: []string{}},
		},
		Feedback: "Excellent!",
	}
	if err := s.SaveFinalEvaluation(first); err != nil {
		t.Fatalf("SaveFinalEvaluation: %v", err)
	}

	second := first
	second.Evaluation.OverallScore = 10
	second.Feedback = "overwritten"
	if err := s.SaveFinalEvaluation(second); !errors.Is(err, ErrEvaluationExists) {
		t.Fatalf("second save error = %v, want ErrEvaluationExists", err)
	}

	got, err = s.GetFinalEvaluation("s1")
	if err != nil {
		t.Fatalf("GetFinalEvaluation: %v", err)
	}
	if got.Evaluation.OverallScore != 90 || got.Feedback != "Excellent!" {
		t.Errorf("stored evaluation changed: %+v", got)
	}
	if got.Evaluation.FinalLevel != model.DifficultyHard || len(got.Evaluation.LevelProgression) != 3 {
		t.Errorf("evaluation not round-tripped: %+v", got.Evaluation)
	}
}

func TestGetSessionView(t *testing.T) {
	s := newTestStore(t)

	view, err := s.GetSessionView("missing")
	if err != nil {
		t.Fatalf("GetSessionView: %v", err)
	}
	if view != nil {
		t.Fatalf("expected nil view, got %+v", view)
	}

	createTestSession(t, s, "s1")
	if _, err := s.AddTurn(model.Turn{SessionID: "s1", QuestionNumber: 1, Question: "Q1", Answer: "A1",
		TechnicalScore: intPtr(60), Level: model.DifficultyEasy}); err != nil {
		t.Fatalf("AddTurn: %v", err)
	}

	view, err = s.GetSessionView("s1")
	if err != nil {
		t.Fatalf("GetSessionView: %v", err)
	}
	if len(view.Turns) != 1 {
		t.Errorf("expected 1 turn, got %d", len(view.Turns))
	}
	if view.Evaluation != nil {
		t.Errorf("expected no evaluation yet")
	}
}

func TestExportAllSessions(t *testing.T) {
	s := newTestStore(t)
	createTestSession(t, s, "done")
	createTestSession(t, s, "open")

	if _, err := s.AddTurn(model.Turn{SessionID: "done", QuestionNumber: 1, Question: "Q1", Answer: "A1",
		TechnicalScore: intPtr(80), Level: model.DifficultyEasy}); err != nil {
		t.Fatalf("AddTurn: %v", err)
	}
	if _, err := s.AddTurn(model.Turn{SessionID: "done", QuestionNumber: 2, Question: "Q2",
		Level: model.DifficultyEasy, Skipped: true, SkipReason: model.SkipNoAnswer}); err != nil {
		t.Fatalf("AddTurn: %v", err)
	}
	if err := s.SaveFinalEvaluation(model.StoredEvaluation{
		SessionID:  "done",
		Evaluation: model.FinalEvaluation{FinalLevel: model.DifficultyEasy, OverallScore: 44.5},
		Feedback:   "Thank you!",
	}); err != nil {
		t.Fatalf("SaveFinalEvaluation: %v", err)
	}

	results, err := s.ExportAllSessions()
	if err != nil {
		t.Fatalf("ExportAllSessions: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	byID := map[string]model.CandidateResult{}
	for _, r := range results {
		byID[r.SessionID] = r
	}
	done := byID["done"]
	// Q1, A1, Q2 (skipped answer is not exported).
	if len(done.Conversation) != 3 {
		t.Errorf("expected 3 conversation messages, got %d", len(done.Conversation))
	}
	if done.OverallScore == nil || *done.OverallScore != 44.5 {
		t.Errorf("OverallScore = %v, want 44.5", done.OverallScore)
	}
	if done.Feedback != "Thank you!" {
		t.Errorf("Feedback = %q", done.Feedback)
	}
	if byID["open"].OverallScore != nil {
		t.Error("open session should have no overall score")
	}
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)

	n, err := s.MaxQuestions()
	if err != nil || n != 0 {
		t.Fatalf("MaxQuestions() = %d, %v; want 0, nil", n, err)
	}
	if err := s.RecordRunConfig(9, "gpt-4o-mini"); err != nil {
		t.Fatalf("RecordRunConfig: %v", err)
	}
	if err := s.RecordRunConfig(7, "gemini-2.5-flash"); err != nil {
		t.Fatalf("RecordRunConfig: %v", err)
	}
	n, err = s.MaxQuestions()
	if err != nil || n != 7 {
		t.Errorf("MaxQuestions() = %d, %v; want 7, nil", n, err)
	}
	v, err := s.GetMetadata(MetaModel)
	if err != nil || v != "gemini-2.5-flash" {
		t.Errorf("GetMetadata(model) = %q, %v", v, err)
	}
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)

	u, err := s.GetUserByUsername("admin")
	if err != nil || u != nil {
		t.Fatalf("GetUserByUsername(missing) = %v, %v", u, err)
	}

	id, err := s.CreateUser(model.User{Username: "admin", DisplayName: "Admin", PasswordHash: "hash",
		Role: model.UserRoleAdmin, Active: true})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	u, err = s.GetUserByUsername("admin")
	if err != nil || u == nil {
		t.Fatalf("GetUserByUsername = %v, %v", u, err)
	}
	if u.ID != id || u.Role != model.UserRoleAdmin || !u.Active {
		t.Errorf("unexpected user %+v", u)
	}

	if err := s.UpdatePasswordHash("admin", "newhash"); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	u, err = s.GetUserByUsername("admin")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u.PasswordHash != "newhash" {
		t.Errorf("PasswordHash = %q, want newhash", u.PasswordHash)
	}

	if _, err := s.CreateUser(model.User{Username: "admin", PasswordHash: "x", Role: model.UserRoleReviewer}); err == nil {
		t.Error("expected duplicate username to fail")
	}

	count, err := s.UserCount()
	if err != nil || count != 1 {
		t.Errorf("UserCount() = %d, %v; want 1", count, err)
	}
}
