package scoring

import (
	"fmt"

	"github.com/pavelanni/interviewer/internal/model"
)

// Penalty rates and caps, in points.
const (
	TabSwitchRate = 2
	TabSwitchCap  = 20

	MultipleFacesRate = 15

	FaceCoveredRate = 5
	FaceCoveredCap  = 25

	EyesCoveredRate = 5
	EyesCoveredCap  = 25

	NoFaceRate = 2
	NoFaceCap  = 15

	FaceSubtotalCap = 50

	AlertRate = 1
	AlertCap  = 10

	MaxPenalty = 70
)

// PenaltyItem is one nonzero category of the deduction.
type PenaltyItem struct {
	Category    string `json:"category"`
	Count       int    `json:"count"`
	Points      int    `json:"points"`
	Description string `json:"description"`
}

// String renders the human-readable line, e.g. "Tab switches: 15 (-20 points)".
func (p PenaltyItem) String() string { return p.Description }

// Penalty is the itemized proctoring deduction. Total is in [0,70].
type Penalty struct {
	Total        int           `json:"total"`
	TabSwitch    int           `json:"tab_switch"`
	FaceSubtotal int           `json:"face_subtotal"`
	Alerts       int           `json:"alerts"`
	Items        []PenaltyItem `json:"items"`
}

// Lines returns the itemized description of each nonzero category.
func (p Penalty) Lines() []string {
	out := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		out = append(out, it.String())
	}
	return out
}

// CalculatePenalty converts proctoring counts into a deduction.
func CalculatePenalty(stats model.ProctoringStats) Penalty {
	var p Penalty
	add := func(category string, count, points int, format string) {
		if count <= 0 {
			return
		}
		p.Items = append(p.Items, PenaltyItem{
			Category:    category,
			Count:       count,
			Points:      points,
			Description: fmt.Sprintf(format, count, points),
		})
	}

	tab := min(max(stats.TabSwitchCount, 0)*TabSwitchRate, TabSwitchCap)
	add("tab_switch", stats.TabSwitchCount, tab, "Tab switches: %d (-%d points)")

	multi := max(stats.MultipleFaces, 0) * MultipleFacesRate
	add("multiple_faces", stats.MultipleFaces, multi, "Multiple people detected: %d times (-%d points)")

	covered := min(max(stats.FaceCoverings, 0)*FaceCoveredRate, FaceCoveredCap)
	add("face_covered", stats.FaceCoverings, covered, "Face covered: %d times (-%d points)")

	eyes := min(max(stats.EyeCoverings, 0)*EyesCoveredRate, EyesCoveredCap)
	add("eyes_covered", stats.EyeCoverings, eyes, "Eyes covered: %d times (-%d points)")

	noFace := min(max(stats.NoFaceCount, 0)*NoFaceRate, NoFaceCap)
	add("no_face", stats.NoFaceCount, noFace, "No face detected: %d times (-%d points)")

	alerts := min(max(stats.TotalAlerts, 0)*AlertRate, AlertCap)
	add("total_alerts", stats.TotalAlerts, alerts, "Total alerts: %d (-%d points)")

	p.TabSwitch = tab
	p.FaceSubtotal = min(multi+covered+eyes+noFace, FaceSubtotalCap)
	p.Alerts = alerts
	p.Total = min(tab+p.FaceSubtotal+alerts, MaxPenalty)
	return p
}
