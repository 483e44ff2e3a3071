package interview

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/llm"
	"github.com/pavelanni/interviewer/internal/llm/prompts"
	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/roles"
)

// Bounds on a follow-up question, in characters.
const (
	minFollowUpChars = 10
	maxFollowUpChars = 500
)

// Questioner asks the language model for analyses and questions and falls
// back to the role's question pool when the model cannot help.
type Questioner struct {
	gen     llm.Generator
	catalog *roles.Catalog
}

// NewQuestioner creates a Questioner.
func NewQuestioner(gen llm.Generator, catalog *roles.Catalog) *Questioner {
	return &Questioner{gen: gen, catalog: catalog}
}

// Next analyses the latest answer and picks the next question at lvl.
// history must already end with the candidate's answer line.
func (q *Questioner) Next(ctx context.Context, jobRole string, lvl model.Difficulty, history []string) (analysis, question string) {
	role := q.catalog.Lookup(jobRole)
	prompt, err := prompts.BuildNextPrompt(prompts.NextData{
		JobRole:      jobRole,
		RoleContext:  role.Context,
		Level:        lvl,
		LevelContext: role.LevelContext[lvl],
		History:      history,
	})
	if err != nil {
		slog.Error("build next-question prompt", "error", err)
		return i18n.T(ctx, "AnalysisUnavailable"), q.catalog.FallbackQuestion(lvl, jobRole)
	}

	raw, err := q.gen.Generate(llm.WithPurpose(ctx, llm.PurposeNext), prompt)
	if err != nil {
		slog.Warn("next-question call failed, using fallback question", "error", err)
		return i18n.T(ctx, "AnalysisUnavailable"), q.catalog.FallbackQuestion(lvl, jobRole)
	}

	analysis, question, ok := ParseNext(raw)
	if !ok {
		return i18n.T(ctx, "AnalysisDefault"), q.catalog.FallbackQuestion(lvl, jobRole)
	}
	return analysis, question
}

// FollowUp picks a question after a skipped or unclear answer. It does not
// depend on the content of the skipped answer.
func (q *Questioner) FollowUp(ctx context.Context, jobRole string, lvl model.Difficulty, prevQuestion, lastAnswer string) string {
	role := q.catalog.Lookup(jobRole)
	prompt, err := prompts.BuildFollowUpPrompt(prompts.FollowUpData{
		JobRole:      jobRole,
		RoleContext:  role.Context,
		Level:        lvl,
		LevelContext: role.LevelContext[lvl],
		Question:     prevQuestion,
		LastAnswer:   lastAnswer,
	})
	if err != nil {
		slog.Error("build follow-up prompt", "error", err)
		return q.catalog.FallbackQuestion(lvl, jobRole)
	}

	raw, err := q.gen.Generate(llm.WithPurpose(ctx, llm.PurposeFollowUp), prompt)
	if err != nil {
		slog.Warn("follow-up call failed, using fallback question", "error", err)
		return q.catalog.FallbackQuestion(lvl, jobRole)
	}
	question, ok := ParseFollowUp(raw)
	if !ok {
		return q.catalog.FallbackQuestion(lvl, jobRole)
	}
	return question
}

// ParseNext splits a model reply into analysis and question. The reply is
// expected as "ANALYSIS: ... QUESTION: ..."; otherwise the first two
// non-empty lines are used.
func ParseNext(raw string) (analysis, question string, ok bool) {
	if strings.Contains(raw, "ANALYSIS:") && strings.Contains(raw, "QUESTION:") {
		parts := strings.Split(raw, "QUESTION:")
		analysis = strings.TrimSpace(strings.ReplaceAll(parts[0], "ANALYSIS:", ""))
		question = strings.TrimSpace(parts[1])
		return analysis, question, question != ""
	}

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return "", "", false
	}
	return lines[0], lines[1], true
}

// ParseFollowUp extracts a single question from a model reply.
func ParseFollowUp(raw string) (string, bool) {
	q := strings.TrimSpace(raw)
	if i := strings.LastIndex(q, "QUESTION:"); i >= 0 {
		q = strings.TrimSpace(q[i+len("QUESTION:"):])
	}
	n := utf8.RuneCountInString(q)
	if n < minFollowUpChars || n > maxFollowUpChars {
		return "", false
	}
	return q, true
}
