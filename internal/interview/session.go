package interview

import (
	"slices"
	"sync"

	"github.com/pavelanni/interviewer/internal/level"
	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/proctor"
	"github.com/pavelanni/interviewer/internal/roles"
	"github.com/pavelanni/interviewer/internal/scoring"
)

// Session is the in-memory state of one live interview. mu serialises
// turns; proctoring counters live outside the session and do not need it.
type Session struct {
	mu sync.Mutex

	info       model.InterviewSession
	role       roles.Role
	tracker    *level.Tracker
	ledger     *scoring.Ledger
	scores     []int
	history    []string // "Interviewer: ..." and "Candidate: ..." lines
	question   string
	lastAnswer string
	turns      int
	detector   *proctor.Detector

	done  bool
	final *Completion
}

// Snapshot returns a copy of the session record with the current level state.
func (s *Session) Snapshot() model.InterviewSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() model.InterviewSession {
	info := s.info
	st := s.tracker.State()
	info.CurrentLevel = st.Current
	info.ConsecutiveCorrect = st.ConsecutiveCorrect
	info.ConsecutiveIncorrect = st.ConsecutiveIncorrect
	info.LevelProgression = st.Progression
	return info
}

// CurrentQuestion returns the question the candidate is answering.
func (s *Session) CurrentQuestion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.question
}

// Scores returns the technical scores recorded so far.
func (s *Session) Scores() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.scores)
}

// LedgerSummary reports the running score ledger.
func (s *Session) LedgerSummary() scoring.LedgerSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Summary()
}
