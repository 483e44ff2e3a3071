package scoring

import (
	"slices"
	"time"

	"github.com/pavelanni/interviewer/internal/model"
)

// LegacyLevelWeights is the level factor of the legacy blend.
var LegacyLevelWeights = map[model.Difficulty]float64{
	model.DifficultyEasy:   0.3,
	model.DifficultyMedium: 0.6,
	model.DifficultyHard:   1.0,
}

// Blend weights of the legacy formula.
const (
	LegacyTechnicalWeight = 0.7
	LegacyLevelWeight     = 0.3
)

// Thresholds for strengths and areas for improvement.
const (
	strongScore      = 80
	strongCount      = 3
	consistentSpread = 20
	weakScore        = 60
)

// Ledger is the per-question score ledger of one session. Records are
// append-only. It is not safe for concurrent use.
type Ledger struct {
	records []model.ScoreRecord
	now     func() time.Time
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

// Add appends a scored answer and returns the stored record.
func (l *Ledger) Add(question, answer string, score int, level model.Difficulty, analysis string) model.ScoreRecord {
	rec := model.ScoreRecord{
		QuestionNumber: len(l.records) + 1,
		Question:       question,
		Answer:         answer,
		TechnicalScore: score,
		Level:          level,
		Analysis:       analysis,
		Timestamp:      l.now(),
	}
	l.records = append(l.records, rec)
	return rec
}

// Records returns a copy of the ledger entries.
func (l *Ledger) Records() []model.ScoreRecord {
	return slices.Clone(l.records)
}

// Scores returns the technical scores in order.
func (l *Ledger) Scores() []int {
	out := make([]int, len(l.records))
	for i, r := range l.records {
		out[i] = r.TechnicalScore
	}
	return out
}

// CurrentAverage is the mean technical score, 0 when empty.
func (l *Ledger) CurrentAverage() float64 {
	return mean(l.Scores())
}

// LedgerSummary is a running view of the ledger.
type LedgerSummary struct {
	TotalQuestions int                `json:"total_questions"`
	AverageScore   float64            `json:"average_score"`
	CurrentLevel   model.Difficulty   `json:"current_level"`
	LevelHistory   []model.Difficulty `json:"level_history"`
	RecentScores   []int              `json:"recent_scores"`
}

// Summary reports the running average and the last five scores.
func (l *Ledger) Summary() LedgerSummary {
	levels := l.levels()
	current := model.DifficultyEasy
	if len(levels) > 0 {
		current = levels[len(levels)-1]
	}
	scores := l.Scores()
	if len(scores) > 5 {
		scores = scores[len(scores)-5:]
	}
	return LedgerSummary{
		TotalQuestions: len(l.records),
		AverageScore:   Round1(l.CurrentAverage()),
		CurrentLevel:   current,
		LevelHistory:   levels,
		RecentScores:   scores,
	}
}

// Evaluate computes the legacy blend: avg*0.7 + levelWeight*100*0.3 minus
// the proctoring penalty. An empty ledger scores 0.
func (l *Ledger) Evaluate(finalLevel model.Difficulty, stats model.ProctoringStats) model.LegacyEvaluation {
	if len(l.records) == 0 {
		return model.LegacyEvaluation{
			FinalLevel:       finalLevel,
			LevelProgression: []model.Difficulty{},
			Breakdown:        []model.ScoreRecord{},
			Strengths:        []string{},
			Weaknesses:       []string{},
			PenaltyDetails:   model.PenaltyDetails{PenaltiesApplied: []string{}},
		}
	}

	weight, ok := LegacyLevelWeights[finalLevel]
	if !ok {
		weight = LegacyLevelWeights[model.DifficultyEasy]
	}
	avg := l.CurrentAverage()
	base := avg*LegacyTechnicalWeight + weight*100*LegacyLevelWeight
	penalty := CalculatePenalty(stats)
	overall := max(0, base-float64(penalty.Total))

	return model.LegacyEvaluation{
		OverallScore:      Round1(overall),
		BaseScore:         Round1(base),
		TechnicalScoreAvg: Round1(avg),
		ProctoringPenalty: penalty.Total,
		FinalLevel:        finalLevel,
		QuestionsAnswered: len(l.records),
		LevelProgression:  l.levels(),
		Breakdown:         l.Records(),
		Strengths:         l.strengths(),
		Weaknesses:        l.weaknesses(),
		PenaltyDetails: model.PenaltyDetails{
			BaseScore:        Round1(base),
			PenaltiesApplied: penalty.Lines(),
			TotalPenalty:     penalty.Total,
		},
	}
}

func (l *Ledger) levels() []model.Difficulty {
	out := make([]model.Difficulty, len(l.records))
	for i, r := range l.records {
		out[i] = r.Level
	}
	return out
}

func (l *Ledger) strengths() []string {
	var out []string
	scores := l.Scores()

	high := 0
	for _, s := range scores {
		if s >= strongScore {
			high++
		}
	}
	if high >= strongCount {
		out = append(out, "Strong technical knowledge in core areas")
	}
	if slices.Contains(l.levels(), model.DifficultyHard) {
		out = append(out, "Capable of handling advanced concepts")
	}
	if len(scores) >= 3 && slices.Max(scores)-slices.Min(scores) <= consistentSpread {
		out = append(out, "Consistent performance across questions")
	}
	if len(out) == 0 {
		return []string{"Demonstrates basic understanding"}
	}
	return out
}

func (l *Ledger) weaknesses() []string {
	var out []string
	if slices.ContainsFunc(l.records, func(r model.ScoreRecord) bool { return r.TechnicalScore < weakScore }) {
		out = append(out, "Needs improvement in technical depth")
	}
	levels := l.levels()
	if n := len(levels); n >= 2 && levels[n-2] == model.DifficultyEasy && levels[n-1] == model.DifficultyEasy {
		out = append(out, "Could benefit from practicing intermediate concepts")
	}
	if len(out) == 0 {
		return []string{"Continue building experience"}
	}
	return out
}
