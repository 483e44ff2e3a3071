// Package proctor tracks integrity events of an interview: counters for
// tab switches and face alerts, and the frame detector that emits alerts.
package proctor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pavelanni/interviewer/internal/model"
)

// Counters stores per-session proctoring counts. Add must be safe to call
// concurrently with itself and with Snapshot.
type Counters interface {
	// Add increments every field of delta for the session.
	Add(ctx context.Context, sessionID string, delta model.ProctoringStats) error
	Snapshot(ctx context.Context, sessionID string) (model.ProctoringStats, error)
	Delete(ctx context.Context, sessionID string) error
}

// DeltaForEvent is the counter increment for one out-of-band event. Tab
// switches do not count as alerts; every face event counts as one alert.
func DeltaForEvent(kind model.EventKind) (model.ProctoringStats, error) {
	var d model.ProctoringStats
	switch kind {
	case model.EventTabSwitch:
		d.TabSwitchCount = 1
		return d, nil
	case model.EventMultiplePeople:
		d.MultipleFaces = 1
	case model.EventFaceCovered:
		d.FaceCoverings = 1
	case model.EventEyesCovered:
		d.EyeCoverings = 1
	case model.EventNoFace:
		d.NoFaceCount = 1
	default:
		return d, fmt.Errorf("unknown proctoring event %q", kind)
	}
	d.TotalAlerts = 1
	return d, nil
}

// DeltaForAlerts is the counter increment for one analysed frame. Each
// known token bumps its category once and TotalAlerts grows by the number
// of tokens.
func DeltaForAlerts(alerts []model.AlertToken) model.ProctoringStats {
	var d model.ProctoringStats
	for _, a := range alerts {
		kind, ok := model.EventForAlert(a)
		if !ok {
			continue
		}
		switch kind {
		case model.EventMultiplePeople:
			d.MultipleFaces = 1
		case model.EventFaceCovered:
			d.FaceCoverings = 1
		case model.EventEyesCovered:
			d.EyeCoverings = 1
		case model.EventNoFace:
			d.NoFaceCount = 1
		}
	}
	d.TotalAlerts = len(alerts)
	return d
}

type memStats struct {
	tab, multi, face, eyes, noFace, total atomic.Int64
}

// MemoryCounters keeps counters in process memory.
type MemoryCounters struct {
	mu       sync.Mutex
	sessions map[string]*memStats
}

// NewMemoryCounters creates an empty in-memory counter store.
func NewMemoryCounters() *MemoryCounters {
	return &MemoryCounters{sessions: make(map[string]*memStats)}
}

// Len returns the number of sessions with counters.
func (m *MemoryCounters) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemoryCounters) get(id string) *memStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = &memStats{}
		m.sessions[id] = s
	}
	return s
}

func (m *MemoryCounters) Add(_ context.Context, sessionID string, d model.ProctoringStats) error {
	s := m.get(sessionID)
	s.tab.Add(int64(max(d.TabSwitchCount, 0)))
	s.multi.Add(int64(max(d.MultipleFaces, 0)))
	s.face.Add(int64(max(d.FaceCoverings, 0)))
	s.eyes.Add(int64(max(d.EyeCoverings, 0)))
	s.noFace.Add(int64(max(d.NoFaceCount, 0)))
	s.total.Add(int64(max(d.TotalAlerts, 0)))
	return nil
}

// Snapshot reads the counters. Unknown sessions report zeroes and are not
// created.
func (m *MemoryCounters) Snapshot(_ context.Context, sessionID string) (model.ProctoringStats, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return model.ProctoringStats{}, nil
	}
	return model.ProctoringStats{
		TabSwitchCount: int(s.tab.Load()),
		MultipleFaces:  int(s.multi.Load()),
		FaceCoverings:  int(s.face.Load()),
		EyeCoverings:   int(s.eyes.Load()),
		NoFaceCount:    int(s.noFace.Load()),
		TotalAlerts:    int(s.total.Load()),
	}, nil
}

func (m *MemoryCounters) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}
