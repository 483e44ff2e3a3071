// Package prompts renders the text prompts sent to the language model.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/interviewer/internal/model"
)

// MaxAnswerRunes caps the answer text embedded in a prompt.
const MaxAnswerRunes = 10000

// HistoryLines is how many conversation lines the next-question prompt sees.
const HistoryLines = 4

//go:embed templates/*.tmpl
var templateFS embed.FS

var answerTagRegex = regexp.MustCompile(`(?i)</?\s*(candidate-answer|conversation)\b[^>]*>`)

var (
	loadOnce  sync.Once
	loadErr   error
	templates *template.Template
)

func load() error {
	loadOnce.Do(func() {
		templates, loadErr = template.ParseFS(templateFS, "templates/*.tmpl")
	})
	return loadErr
}

// ScoreData holds template data for the scoring prompt.
type ScoreData struct {
	JobRole  string
	Question string
	Answer   string
	Level    model.Difficulty
}

// NextData holds template data for the next-question prompt.
type NextData struct {
	JobRole      string
	RoleContext  string
	Level        model.Difficulty
	LevelContext string
	History      []string
}

// FollowUpData holds template data for the prompt used after a skipped answer.
type FollowUpData struct {
	JobRole      string
	RoleContext  string
	Level        model.Difficulty
	LevelContext string
	Question     string
	LastAnswer   string
}

// BuildScorePrompt renders the rubric prompt for one answer.
func BuildScorePrompt(d ScoreData) (string, error) {
	d.Answer = sanitizeAnswer(d.Answer)
	return render("score.tmpl", d)
}

// BuildNextPrompt renders the analysis + next question prompt. Only the
// last HistoryLines entries of History are included.
func BuildNextPrompt(d NextData) (string, error) {
	if len(d.History) > HistoryLines {
		d.History = d.History[len(d.History)-HistoryLines:]
	}
	lines := make([]string, len(d.History))
	for i, h := range d.History {
		lines[i] = stripTags(h)
	}
	d.History = lines
	return render("next.tmpl", d)
}

// BuildFollowUpPrompt renders the prompt asking for a replacement question.
func BuildFollowUpPrompt(d FollowUpData) (string, error) {
	if strings.TrimSpace(d.LastAnswer) == "" {
		d.LastAnswer = "The candidate did not provide a clear answer."
	}
	d.LastAnswer = sanitizeAnswer(d.LastAnswer)
	return render("followup.tmpl", d)
}

func render(name string, data any) (string, error) {
	if err := load(); err != nil {
		return "", fmt.Errorf("load prompt templates: %w", err)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func stripTags(s string) string {
	return answerTagRegex.ReplaceAllString(s, "")
}

func sanitizeAnswer(answer string) string {
	answer = strings.TrimSpace(stripTags(answer))

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > MaxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:MaxAnswerRunes]) + "\n\n[Answer truncated due to length]"
	}

	return answer
}
