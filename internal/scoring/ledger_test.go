package scoring

import (
	"slices"
	"testing"
	"time"

	"github.com/pavelanni/interviewer/internal/model"
)

type entry struct {
	score int
	level model.Difficulty
}

func newTestLedger(entries ...entry) *Ledger {
	l := NewLedger()
	l.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	for _, e := range entries {
		l.Add("q", "a", e.score, e.level, "")
	}
	return l
}

func TestLedgerEmpty(t *testing.T) {
	got := NewLedger().Evaluate("medium", model.ProctoringStats{TabSwitchCount: 3})
	if got.OverallScore != 0 || got.TechnicalScoreAvg != 0 || got.QuestionsAnswered != 0 {
		t.Errorf("empty ledger = %+v", got)
	}
}

func TestLedgerEvaluate(t *testing.T) {
	l := newTestLedger(entry{80, "easy"}, entry{85, "medium"}, entry{90, "hard"})
	got := l.Evaluate("hard", model.ProctoringStats{TabSwitchCount: 2})

	// 85*0.7 + 1.0*100*0.3 = 89.5, minus 4
	if got.BaseScore != 89.5 || got.OverallScore != 85.5 || got.ProctoringPenalty != 4 {
		t.Errorf("base/overall/penalty = %v/%v/%v", got.BaseScore, got.OverallScore, got.ProctoringPenalty)
	}
	wantStrengths := []string{
		"Strong technical knowledge in core areas",
		"Capable of handling advanced concepts",
		"Consistent performance across questions",
	}
	if !slices.Equal(got.Strengths, wantStrengths) {
		t.Errorf("Strengths = %q", got.Strengths)
	}
	if !slices.Equal(got.Weaknesses, []string{"Continue building experience"}) {
		t.Errorf("Weaknesses = %q", got.Weaknesses)
	}
	if len(got.Breakdown) != 3 || got.Breakdown[2].QuestionNumber != 3 {
		t.Errorf("Breakdown = %+v", got.Breakdown)
	}
}

func TestLedgerWeaknesses(t *testing.T) {
	l := newTestLedger(entry{30, "easy"}, entry{90, "easy"}, entry{40, "easy"})
	got := l.Evaluate("easy", model.ProctoringStats{})

	want := []string{"Needs improvement in technical depth", "Could benefit from practicing intermediate concepts"}
	if !slices.Equal(got.Weaknesses, want) {
		t.Errorf("Weaknesses = %q, want %q", got.Weaknesses, want)
	}
	if !slices.Equal(got.Strengths, []string{"Demonstrates basic understanding"}) {
		t.Errorf("Strengths = %q", got.Strengths)
	}
}

func TestLedgerSummary(t *testing.T) {
	l := newTestLedger(entry{10, "easy"}, entry{20, "easy"}, entry{30, "easy"},
		entry{40, "easy"}, entry{50, "easy"}, entry{60, "easy"})
	s := l.Summary()
	if s.TotalQuestions != 6 || s.AverageScore != 35 {
		t.Errorf("Summary = %+v", s)
	}
	if !slices.Equal(s.RecentScores, []int{20, 30, 40, 50, 60}) {
		t.Errorf("RecentScores = %v", s.RecentScores)
	}
	if s.CurrentLevel != model.DifficultyEasy {
		t.Errorf("CurrentLevel = %q", s.CurrentLevel)
	}
}
