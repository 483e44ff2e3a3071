package scoring

import (
	"reflect"
	"testing"

	"github.com/pavelanni/interviewer/internal/model"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name        string
		in          EvaluationInput
		wantAvg     float64
		wantBase    float64
		wantPenalty int
		wantOverall float64
	}{
		{
			name:    "hard with 75 average",
			in:      EvaluationInput{FinalLevel: "hard", TechnicalScores: []int{75, 75, 75}},
			wantAvg: 75, wantBase: 90, wantPenalty: 0, wantOverall: 90,
		},
		{
			name:    "no answers defaults average to 50",
			in:      EvaluationInput{FinalLevel: "easy"},
			wantAvg: 50, wantBase: 38, wantPenalty: 0, wantOverall: 38,
		},
		{
			name:    "medium with penalty",
			in:      EvaluationInput{FinalLevel: "medium", TechnicalScores: []int{60, 70, 80}, Stats: model.ProctoringStats{TabSwitchCount: 5}},
			wantAvg: 70, wantBase: 70, wantPenalty: 10, wantOverall: 60,
		},
		{
			name:    "penalty floors at zero",
			in:      EvaluationInput{FinalLevel: "easy", TechnicalScores: []int{0}, Stats: model.ProctoringStats{MultipleFaces: 5, TabSwitchCount: 20, TotalAlerts: 20}},
			wantAvg: 0, wantBase: 18, wantPenalty: 70, wantOverall: 0,
		},
		{
			name:    "rounding to one decimal",
			in:      EvaluationInput{FinalLevel: "medium", TechnicalScores: []int{70, 71, 71}},
			wantAvg: 70.7, wantBase: 70.3, wantPenalty: 0, wantOverall: 70.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.in)
			if got.TechnicalScoreAvg != tt.wantAvg {
				t.Errorf("TechnicalScoreAvg = %v, want %v", got.TechnicalScoreAvg, tt.wantAvg)
			}
			if got.BaseScore != tt.wantBase {
				t.Errorf("BaseScore = %v, want %v", got.BaseScore, tt.wantBase)
			}
			if got.ProctoringPenalty != tt.wantPenalty {
				t.Errorf("ProctoringPenalty = %v, want %v", got.ProctoringPenalty, tt.wantPenalty)
			}
			if got.OverallScore != tt.wantOverall {
				t.Errorf("OverallScore = %v, want %v", got.OverallScore, tt.wantOverall)
			}
			if got.OverallScore < 0 || got.OverallScore > 100 {
				t.Errorf("OverallScore %v out of range", got.OverallScore)
			}
		})
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	in := EvaluationInput{
		FinalLevel:       "medium",
		TechnicalScores:  []int{33, 67, 91},
		LevelProgression: []model.Difficulty{"easy", "medium"},
		Stats:            model.ProctoringStats{FaceCoverings: 3, TotalAlerts: 3},
		TotalQuestions:   4,
	}
	a, b := Evaluate(in), Evaluate(in)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Evaluate not idempotent:\n%+v\n%+v", a, b)
	}
	if Round1(a.OverallScore) != a.OverallScore {
		t.Error("rounding is not idempotent")
	}
}

func TestEvaluateOverallBoundsGrid(t *testing.T) {
	for _, lvl := range model.Difficulties {
		for _, score := range []int{0, 59, 60, 100} {
			for _, tabs := range []int{0, 100} {
				got := Evaluate(EvaluationInput{
					FinalLevel:      lvl,
					TechnicalScores: []int{score},
					Stats:           model.ProctoringStats{TabSwitchCount: tabs, MultipleFaces: tabs},
				})
				if got.OverallScore < 0 || got.OverallScore > 100 {
					t.Errorf("%s/%d/%d: OverallScore %v out of range", lvl, score, tabs, got.OverallScore)
				}
			}
		}
	}
}
