package interview

import (
	"context"
	"fmt"
	"strings"

	"github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/model"
)

// frequentNoFace is the no-face count above which the feedback mentions it.
const frequentNoFace = 5

// PerformanceSummary is the one-line verdict for the final level.
func PerformanceSummary(ctx context.Context, lvl model.Difficulty) string {
	switch lvl {
	case model.DifficultyHard:
		return i18n.T(ctx, "SummaryHard")
	case model.DifficultyMedium:
		return i18n.T(ctx, "SummaryMedium")
	default:
		return i18n.T(ctx, "SummaryEasy")
	}
}

// ProctoringNotes lists the integrity observations worth telling the candidate.
func ProctoringNotes(ctx context.Context, stats model.ProctoringStats) []string {
	var notes []string
	if stats.TabSwitchCount > 0 {
		notes = append(notes, i18n.Td(ctx, "NoteTabSwitches", map[string]any{"Count": stats.TabSwitchCount}))
	}
	if stats.MultipleFaces > 0 {
		notes = append(notes, i18n.T(ctx, "NoteMultiplePeople"))
	}
	if stats.FaceCoverings > 0 {
		notes = append(notes, i18n.T(ctx, "NoteFaceCovering"))
	}
	if stats.EyeCoverings > 0 {
		notes = append(notes, i18n.T(ctx, "NoteEyeCovering"))
	}
	if stats.NoFaceCount > frequentNoFace {
		notes = append(notes, i18n.T(ctx, "NoteFaceDisappearance"))
	}
	return notes
}

// FinalFeedback renders the closing message shown to the candidate.
func FinalFeedback(ctx context.Context, eval model.FinalEvaluation, stats model.ProctoringStats) string {
	var headline string
	switch eval.FinalLevel {
	case model.DifficultyHard:
		headline = i18n.T(ctx, "FeedbackHeadlineHard")
	case model.DifficultyMedium:
		headline = i18n.T(ctx, "FeedbackHeadlineMedium")
	default:
		headline = i18n.T(ctx, "FeedbackHeadlineEasy")
	}

	parts := []string{
		headline,
		i18n.Td(ctx, "FeedbackScore", map[string]any{"Score": percent(eval.OverallScore)}),
	}
	if p := eval.PenaltyDetails.TotalPenalty; p > 0 {
		parts = append(parts, i18n.Td(ctx, "FeedbackPenalty", map[string]any{
			"Base":    percent(eval.PenaltyDetails.BaseScore),
			"Penalty": p,
		}))
	}
	if notes := ProctoringNotes(ctx, stats); len(notes) > 0 {
		parts = append(parts, i18n.Td(ctx, "FeedbackNotes", map[string]any{"Notes": strings.Join(notes, ", ")}))
	}
	return strings.Join(parts, " ")
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
