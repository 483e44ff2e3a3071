package store

import (
	"fmt"

	"github.com/pavelanni/interviewer/internal/model"
)

// ExportAllSessions builds export-ready candidate results from all sessions.
func (s *Store) ExportAllSessions() ([]model.CandidateResult, error) {
	sessions, err := s.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var results []model.CandidateResult
	for _, sess := range sessions {
		view, err := s.GetSessionView(sess.ID)
		if err != nil {
			return nil, fmt.Errorf("get session %s: %w", sess.ID, err)
		}
		if view == nil {
			continue
		}

		var conv []model.ConversationMsg
		for _, t := range view.Turns {
			conv = append(conv, model.ConversationMsg{
				Role:    "interviewer",
				Content: t.Question,
				Level:   t.Level,
				At:      t.CreatedAt,
			})
			if !t.Skipped {
				conv = append(conv, model.ConversationMsg{
					Role:    "candidate",
					Content: t.Answer,
					Score:   t.TechnicalScore,
					At:      t.CreatedAt,
				})
			}
		}

		r := model.CandidateResult{
			SessionID:        sess.ID,
			CandidateName:    sess.CandidateName,
			JobRole:          sess.JobRole,
			Status:           sess.Status,
			StartedAt:        sess.StartedAt,
			EndedAt:          sess.EndedAt,
			FinalLevel:       sess.CurrentLevel,
			LevelProgression: sess.LevelProgression,
			Conversation:     conv,
		}
		if view.Evaluation != nil {
			overall := view.Evaluation.Evaluation.OverallScore
			r.OverallScore = &overall
			r.FinalLevel = view.Evaluation.Evaluation.FinalLevel
			r.Feedback = view.Evaluation.Feedback
		}
		results = append(results, r)
	}

	return results, nil
}
