package roles

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/pavelanni/interviewer/internal/model"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	for _, k := range []string{"data_scientist", "software_engineer", "product_manager", DefaultKey} {
		r, ok := c.Roles[k]
		if !ok {
			t.Fatalf("missing role %q", k)
		}
		for _, lvl := range model.Difficulties {
			if r.LevelContext[lvl] == "" {
				t.Errorf("role %q missing level context %q", k, lvl)
			}
		}
	}
	for _, lvl := range model.Difficulties {
		if n := len(c.Fallbacks[lvl]); n != 3 {
			t.Errorf("fallback pool %q has %d questions, want 3", lvl, n)
		}
	}
}

func TestLookup(t *testing.T) {
	c := Default()
	tests := []struct {
		jobRole string
		want    string
	}{
		{"Software Engineer", "Software Engineer role"},
		{"software_engineer", "Software Engineer role"},
		{"  Data Scientist ", "Data Scientist position"},
		{"Astronaut", "Please introduce yourself"},
	}
	for _, tt := range tests {
		if got := c.Lookup(tt.jobRole).Opening; !strings.Contains(got, tt.want) {
			t.Errorf("Lookup(%q).Opening = %q, want substring %q", tt.jobRole, got, tt.want)
		}
	}
}

func TestFallbackQuestions(t *testing.T) {
	c := Default()
	qs := c.FallbackQuestions(model.DifficultyEasy, "Software Engineer")
	if !slices.Contains(qs, "What interests you most about being a Software Engineer?") {
		t.Errorf("unexpected pool: %q", qs)
	}
	if !slices.Contains(qs, "Could you tell me more about your experience with software engineer?") {
		t.Errorf("unexpected pool: %q", qs)
	}

	for range 20 {
		q := c.FallbackQuestion(model.DifficultyHard, "PM")
		if !slices.Contains(c.FallbackQuestions(model.DifficultyHard, "PM"), q) {
			t.Fatalf("FallbackQuestion returned %q outside the pool", q)
		}
	}
}

func TestLoadMergesWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	data := `
roles:
  devops_engineer:
    opening: "Hi! Tell me about the systems you run."
    context: "DevOps interview."
    level_context:
      easy: "Ask about CI basics."
      medium: "Ask about deployment strategies."
      hard: "Ask about multi-region failover."
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.Lookup("DevOps Engineer").Opening; got != "Hi! Tell me about the systems you run." {
		t.Errorf("custom role opening = %q", got)
	}
	if _, ok := c.Roles["software_engineer"]; !ok {
		t.Error("built-in roles should be merged in")
	}
	if len(c.Fallbacks[model.DifficultyMedium]) != 3 {
		t.Error("built-in fallbacks should be merged in")
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []string{
		"roles:\n  x:\n    context: no opening\n",
		"roles:\n  x:\n    opening: hi\n    level_context:\n      expert: nope\n",
		"roles: [",
	}
	for _, in := range tests {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("Parse(%q) should fail", in)
		}
	}
}
