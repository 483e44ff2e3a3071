// Package scoring turns answers and proctoring counts into scores.
package scoring

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pavelanni/interviewer/internal/llm"
	"github.com/pavelanni/interviewer/internal/llm/prompts"
	"github.com/pavelanni/interviewer/internal/model"
)

// Source records which tier produced a score.
type Source string

const (
	SourceLLM     Source = "llm"
	SourceKeyword Source = "keyword_heuristic"
	SourceLength  Source = "length_heuristic"
)

// Heuristic scores used when the model reply is unusable.
const (
	KeywordScoreHit  = 65
	KeywordScoreMiss = 45
	LengthScoreLong  = 55
	LengthScoreShort = 40

	keywordMinWords = 20
	lengthMinChars  = 50
)

var (
	digitRun       = regexp.MustCompile(`\p{Nd}+`)
	reasonKeywords = []string{"because", "example", "method", "technique", "approach"}
)

// ScoreRequest is one answer to be scored.
type ScoreRequest struct {
	JobRole  string
	Question string
	Answer   string
	Level    model.Difficulty
}

// Result is a score in [0,100] and the tier that produced it.
type Result struct {
	Score  int
	Source Source
}

// Scorer rates answers with the language model, falling back to local
// heuristics. It always returns a score.
type Scorer struct {
	gen llm.Generator
}

// NewScorer creates a Scorer backed by gen.
func NewScorer(gen llm.Generator) *Scorer {
	return &Scorer{gen: gen}
}

// Score rates one answer.
func (s *Scorer) Score(ctx context.Context, req ScoreRequest) Result {
	prompt, err := prompts.BuildScorePrompt(prompts.ScoreData{
		JobRole:  req.JobRole,
		Question: req.Question,
		Answer:   req.Answer,
		Level:    req.Level,
	})
	if err != nil {
		slog.Error("build score prompt", "error", err)
		return lengthScore(req.Answer)
	}

	raw, err := s.gen.Generate(llm.WithPurpose(ctx, llm.PurposeScore), prompt)
	if err != nil {
		slog.Warn("scoring call failed, using length heuristic", "error", err)
		return lengthScore(req.Answer)
	}

	if score, ok := ParseScore(raw); ok {
		return Result{Score: score, Source: SourceLLM}
	}
	slog.Warn("unparsable score response, using keyword heuristic", "raw", raw)
	return keywordScore(req.Answer)
}

// ParseScore extracts the first standalone number of 1-3 decimal digits
// from raw and clamps it to [0,100]. Digits from any script count; a run
// touching a letter, another number or '_' is not standalone.
func ParseScore(raw string) (int, bool) {
	for _, loc := range digitRun.FindAllStringIndex(raw, -1) {
		run := raw[loc[0]:loc[1]]
		if utf8.RuneCountInString(run) > 3 {
			continue
		}
		if r, _ := utf8.DecodeLastRuneInString(raw[:loc[0]]); loc[0] > 0 && isWordRune(r) {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(raw[loc[1]:]); loc[1] < len(raw) && isWordRune(r) {
			continue
		}
		n := 0
		for _, d := range run {
			n = n*10 + digitValue(d)
		}
		return max(0, min(100, n)), true
	}
	return 0, false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}

// digitValue maps a decimal digit of any script to 0-9. Every Nd range
// starts at a zero and spans whole blocks of ten.
func digitValue(r rune) int {
	for _, rg := range unicode.Nd.R16 {
		if r >= rune(rg.Lo) && r <= rune(rg.Hi) {
			return int(r-rune(rg.Lo)) % 10
		}
	}
	for _, rg := range unicode.Nd.R32 {
		if r >= rune(rg.Lo) && r <= rune(rg.Hi) {
			return int(r-rune(rg.Lo)) % 10
		}
	}
	return 0
}

func keywordScore(answer string) Result {
	lower := strings.ToLower(answer)
	if len(strings.Fields(answer)) > keywordMinWords {
		for _, kw := range reasonKeywords {
			if strings.Contains(lower, kw) {
				return Result{Score: KeywordScoreHit, Source: SourceKeyword}
			}
		}
	}
	return Result{Score: KeywordScoreMiss, Source: SourceKeyword}
}

func lengthScore(answer string) Result {
	if utf8.RuneCountInString(answer) > lengthMinChars {
		return Result{Score: LengthScoreLong, Source: SourceLength}
	}
	return Result{Score: LengthScoreShort, Source: SourceLength}
}
