package scoring

import (
	"slices"
	"testing"

	"github.com/pavelanni/interviewer/internal/model"
)

func TestCalculatePenalty(t *testing.T) {
	tests := []struct {
		name      string
		stats     model.ProctoringStats
		wantTotal int
		wantLines []string
	}{
		{"clean", model.ProctoringStats{}, 0, []string{}},
		{"tab cap", model.ProctoringStats{TabSwitchCount: 15}, 20,
			[]string{"Tab switches: 15 (-20 points)"}},
		{"few tabs", model.ProctoringStats{TabSwitchCount: 3}, 6,
			[]string{"Tab switches: 3 (-6 points)"}},
		{"face subtotal cap", model.ProctoringStats{MultipleFaces: 4}, 50,
			[]string{"Multiple people detected: 4 times (-60 points)"}},
		{"covered caps", model.ProctoringStats{FaceCoverings: 9, EyeCoverings: 2}, 35,
			[]string{"Face covered: 9 times (-25 points)", "Eyes covered: 2 times (-10 points)"}},
		{"no face cap", model.ProctoringStats{NoFaceCount: 20}, 15,
			[]string{"No face detected: 20 times (-15 points)"}},
		{"alerts cap", model.ProctoringStats{TotalAlerts: 30}, 10,
			[]string{"Total alerts: 30 (-10 points)"}},
		{"grand total cap", model.ProctoringStats{TabSwitchCount: 50, MultipleFaces: 10, TotalAlerts: 50}, 70,
			[]string{
				"Tab switches: 50 (-20 points)",
				"Multiple people detected: 10 times (-150 points)",
				"Total alerts: 50 (-10 points)",
			}},
		{"mixed", model.ProctoringStats{TabSwitchCount: 2, MultipleFaces: 1, NoFaceCount: 3, TotalAlerts: 4}, 4 + 21 + 4,
			[]string{
				"Tab switches: 2 (-4 points)",
				"Multiple people detected: 1 times (-15 points)",
				"No face detected: 3 times (-6 points)",
				"Total alerts: 4 (-4 points)",
			}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := CalculatePenalty(tt.stats)
			if p.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", p.Total, tt.wantTotal)
			}
			if got := p.Lines(); !slices.Equal(got, tt.wantLines) {
				t.Errorf("Lines() = %q, want %q", got, tt.wantLines)
			}
			if p.Total < 0 || p.Total > MaxPenalty {
				t.Errorf("Total %d out of range", p.Total)
			}
			if p.FaceSubtotal > FaceSubtotalCap || p.TabSwitch > TabSwitchCap {
				t.Errorf("subtotal over cap: %+v", p)
			}
		})
	}
}

func TestPenaltyMonotonicInCounts(t *testing.T) {
	prev := 0
	for n := range 40 {
		p := CalculatePenalty(model.ProctoringStats{TabSwitchCount: n, FaceCoverings: n, TotalAlerts: n})
		if p.Total < prev {
			t.Fatalf("penalty decreased at n=%d: %d < %d", n, p.Total, prev)
		}
		prev = p.Total
	}
}
