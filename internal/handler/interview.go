package handler

import (
	"encoding/base64"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/interview"
	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/scoring"
)

type penaltyRule struct {
	Rate int `json:"rate"`
	Cap  int `json:"cap,omitempty"`
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	features := []string{
		"Adaptive difficulty levels",
		"Answer scoring with heuristic fallback",
		"Tab switching monitoring",
		"Proctoring penalty system",
	}
	if h.mgr.VisionEnabled() {
		features = append(features, "Face proctoring", "Multiple face detection",
			"Face covering detection", "Eye covering detection")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":       i18n.T(r.Context(), "ServiceName"),
		"version":       Version,
		"features":      features,
		"max_questions": h.mgr.MaxQuestions(),
		"penalty_system": map[string]any{
			"tab_switching":     penaltyRule{scoring.TabSwitchRate, scoring.TabSwitchCap},
			"multiple_people":   penaltyRule{Rate: scoring.MultipleFacesRate},
			"face_covered":      penaltyRule{scoring.FaceCoveredRate, scoring.FaceCoveredCap},
			"eyes_covered":      penaltyRule{scoring.EyesCoveredRate, scoring.EyesCoveredCap},
			"no_face":           penaltyRule{scoring.NoFaceRate, scoring.NoFaceCap},
			"total_alerts":      penaltyRule{scoring.AlertRate, scoring.AlertCap},
			"face_subtotal_cap": scoring.FaceSubtotalCap,
			"max_total_penalty": scoring.MaxPenalty,
		},
	})
}

type startRequest struct {
	JobRole       string `json:"job_role" validate:"required,max=100"`
	CandidateName string `json:"candidate_name" validate:"max=200"`
}

type startResponse struct {
	SessionID     string `json:"session_id"`
	Question      string `json:"question"`
	JobRole       string `json:"job_role"`
	CandidateName string `json:"candidate_name"`
	MaxQuestions  int    `json:"max_questions"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !bind(w, r, &req, false) {
		return
	}
	res, err := h.mgr.StartSession(r.Context(), req.JobRole, req.CandidateName)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, startResponse{
		SessionID:     res.Session.ID,
		Question:      res.Question,
		JobRole:       res.Session.JobRole,
		CandidateName: res.Session.CandidateName,
		MaxQuestions:  res.MaxQuestions,
	})
}

type nextRequest struct {
	Answer   string `json:"answer" validate:"max=10000"`
	Audio    string `json:"audio" validate:"omitempty,base64"`
	MIMEType string `json:"mime_type" validate:"required_with=Audio"`
}

type nextResponse struct {
	Success bool `json:"success"`
	*interview.TurnResult
	QuestionsRemaining string `json:"questions_remaining"`
}

type completedResponse struct {
	InterviewCompleted bool                  `json:"interview_completed"`
	FinalFeedback      string                `json:"final_feedback"`
	FinalScore         float64               `json:"final_score"`
	PenaltyDetails     model.PenaltyDetails  `json:"penalty_details"`
	ProctoringStats    model.ProctoringStats `json:"proctoring_stats"`
	Evaluation         model.FinalEvaluation `json:"final_score_details"`
	Message            string                `json:"message,omitempty"`
}

func completed(c *interview.Completion) completedResponse {
	return completedResponse{
		InterviewCompleted: true,
		FinalFeedback:      c.Feedback,
		FinalScore:         c.Evaluation.OverallScore,
		PenaltyDetails:     c.Evaluation.PenaltyDetails,
		ProctoringStats:    c.Stats,
		Evaluation:         c.Evaluation,
	}
}

func (h *Handler) handleNextQuestion(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	// An empty body is a skipped answer, not a bad request.
	var req nextRequest
	if !bind(w, r, &req, true) {
		return
	}
	ans := interview.Answer{Text: req.Answer, MIMEType: req.MIMEType}
	if req.Audio != "" {
		audio, err := base64.StdEncoding.DecodeString(req.Audio)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
			return
		}
		ans.Audio = audio
	}

	res, err := h.mgr.SubmitAnswer(r.Context(), sessionID, ans)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	if res.Completed() {
		resp := completed(res.Completion)
		resp.Message = i18n.T(r.Context(), "InterviewCompleted")
		writeJSON(w, http.StatusOK, resp)
		return
	}

	remaining := res.MaxQuestions - res.QuestionNumber + 1
	writeJSON(w, http.StatusOK, nextResponse{
		Success:            true,
		TurnResult:         res,
		QuestionsRemaining: i18n.Tp(r.Context(), "QuestionsRemaining", remaining),
	})
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	c, err := h.mgr.EndSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		completedResponse
	}{true, completed(c)})
}

type proctoringRequest struct {
	Event string `json:"event" validate:"required,oneof=tab_switch multiple_people face_covered eyes_covered no_face"`
}

func (h *Handler) handleProctoringEvent(w http.ResponseWriter, r *http.Request) {
	var req proctoringRequest
	if !bind(w, r, &req, false) {
		return
	}
	stats, err := h.mgr.RecordProctoringEvent(r.Context(), chi.URLParam(r, "sessionID"), model.EventKind(req.Event))
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"proctoring_stats": stats,
	})
}

type statsResponse struct {
	Success          bool                  `json:"success"`
	ProctoringStats  model.ProctoringStats `json:"proctoring_stats"`
	TabSwitches      int                   `json:"tab_switches"`
	EstimatedPenalty int                   `json:"estimated_penalty"`
	Breakdown        scoring.Penalty       `json:"current_penalty_breakdown"`
	CurrentLevel     model.Difficulty      `json:"current_level"`
	QuestionIndex    int                   `json:"question_index"`
}

func (h *Handler) handleProctoringStats(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sum, err := h.mgr.ProctoringSummary(r.Context(), sessionID)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	resp := statsResponse{
		Success:          true,
		ProctoringStats:  sum.Stats,
		TabSwitches:      sum.Stats.TabSwitchCount,
		EstimatedPenalty: sum.Penalty.Total,
		Breakdown:        sum.Penalty,
	}
	if s, err := h.mgr.Session(sessionID); err == nil {
		snap := s.Snapshot()
		resp.CurrentLevel = snap.CurrentLevel
		resp.QuestionIndex = snap.QuestionIndex
	}
	writeJSON(w, http.StatusOK, resp)
}
