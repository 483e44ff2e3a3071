package scoring

import (
	"math"

	"github.com/pavelanni/interviewer/internal/model"
)

// LevelScores is the points credited for the final level reached.
var LevelScores = map[model.Difficulty]float64{
	model.DifficultyEasy:   30,
	model.DifficultyMedium: 70,
	model.DifficultyHard:   100,
}

// Blend weights of the primary formula.
const (
	LevelWeight         = 0.6
	TechnicalWeight     = 0.4
	DefaultTechnicalAvg = 50.0
)

// EvaluationInput is everything the final score depends on.
type EvaluationInput struct {
	FinalLevel       model.Difficulty
	TechnicalScores  []int
	LevelProgression []model.Difficulty
	Stats            model.ProctoringStats
	TotalQuestions   int
}

// Evaluate computes the primary final evaluation. It is pure: the same
// input always yields the same output. CompletedAt and PerformanceSummary
// are left for the caller.
func Evaluate(in EvaluationInput) model.FinalEvaluation {
	levelScore := LevelScores[in.FinalLevel]
	avg := DefaultTechnicalAvg
	if len(in.TechnicalScores) > 0 {
		avg = mean(in.TechnicalScores)
	}
	base := levelScore*LevelWeight + avg*TechnicalWeight
	penalty := CalculatePenalty(in.Stats)
	overall := max(0, min(100, base-float64(penalty.Total)))

	stats := in.Stats
	return model.FinalEvaluation{
		FinalLevel:        in.FinalLevel,
		LevelScore:        levelScore,
		TechnicalScoreAvg: Round1(avg),
		BaseScore:         Round1(base),
		ProctoringPenalty: penalty.Total,
		OverallScore:      Round1(overall),
		LevelProgression:  append([]model.Difficulty(nil), in.LevelProgression...),
		TotalQuestions:    in.TotalQuestions,
		QuestionsAnswered: len(in.TechnicalScores),
		PenaltyDetails: model.PenaltyDetails{
			BaseScore:        Round1(base),
			PenaltiesApplied: penalty.Lines(),
			TotalPenalty:     penalty.Total,
			ProctoringStats:  &stats,
		},
	}
}

// Round1 rounds half away from zero to one decimal place.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func mean(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return float64(sum) / float64(len(scores))
}
