// Package level implements the adaptive difficulty ladder of an interview.
package level

import "github.com/pavelanni/interviewer/internal/model"

const (
	// PassThreshold is the lowest technical score counted as a correct answer.
	PassThreshold = 60
	// StreakToChange is how many same-direction answers move the level.
	StreakToChange = 2
)

// State is a snapshot of the tracker. Progression is a copy.
type State struct {
	Current              model.Difficulty   `json:"current_level"`
	ConsecutiveCorrect   int                `json:"consecutive_correct"`
	ConsecutiveIncorrect int                `json:"consecutive_incorrect"`
	LevelQuestionsAsked  int                `json:"level_questions_asked"`
	Progression          []model.Difficulty `json:"level_progression"`
}

// Transition describes the effect of one recorded score.
type Transition struct {
	From    model.Difficulty
	To      model.Difficulty
	Correct bool
}

// Changed reports whether the level moved.
func (t Transition) Changed() bool { return t.From != t.To }

// Tracker holds the per-session level state machine. It is not safe for
// concurrent use; callers serialise turns per session.
//
// Streak counters are not reset when the level changes, so a third
// consecutive correct answer right after a promotion promotes again.
type Tracker struct {
	state State
}

// NewTracker returns a tracker at the easy level.
func NewTracker() *Tracker {
	return &Tracker{state: State{
		Current:     model.DifficultyEasy,
		Progression: []model.Difficulty{model.DifficultyEasy},
	}}
}

// Restore rebuilds a tracker from a saved state.
func Restore(s State) *Tracker {
	if !s.Current.Valid() {
		s.Current = model.DifficultyEasy
	}
	s.Progression = append([]model.Difficulty(nil), s.Progression...)
	if len(s.Progression) == 0 {
		s.Progression = []model.Difficulty{s.Current}
	}
	return &Tracker{state: s}
}

// Current returns the active level.
func (t *Tracker) Current() model.Difficulty { return t.state.Current }

// State returns a copy of the tracker state.
func (t *Tracker) State() State {
	s := t.state
	s.Progression = append([]model.Difficulty(nil), t.state.Progression...)
	return s
}

// Record applies one technical score. The new state is computed in full
// before it replaces the old one.
func (t *Tracker) Record(score int) Transition {
	next := t.state
	correct := score >= PassThreshold
	if correct {
		next.ConsecutiveCorrect++
		next.ConsecutiveIncorrect = 0
	} else {
		next.ConsecutiveIncorrect++
		next.ConsecutiveCorrect = 0
	}
	next.LevelQuestionsAsked++

	from := next.Current
	switch {
	case next.ConsecutiveCorrect >= StreakToChange && from != model.DifficultyHard:
		next.Current = up(from)
	case next.ConsecutiveIncorrect >= StreakToChange && from != model.DifficultyEasy:
		next.Current = down(from)
	}
	if next.Current != from {
		next.LevelQuestionsAsked = 0
		next.Progression = append(append([]model.Difficulty(nil), t.state.Progression...), next.Current)
	}

	t.state = next
	return Transition{From: from, To: next.Current, Correct: correct}
}

func up(d model.Difficulty) model.Difficulty {
	if d == model.DifficultyEasy {
		return model.DifficultyMedium
	}
	return model.DifficultyHard
}

func down(d model.Difficulty) model.Difficulty {
	if d == model.DifficultyHard {
		return model.DifficultyMedium
	}
	return model.DifficultyEasy
}
