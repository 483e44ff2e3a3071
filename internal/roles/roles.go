// Package roles holds the per-role interview prompt sets.
package roles

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pavelanni/interviewer/internal/model"
)

// DefaultKey is the role used when a job role has no prompt set.
const DefaultKey = "default"

//go:embed roles.yaml
var builtin []byte

// Role is the prompt set for one job role.
type Role struct {
	Opening      string                      `yaml:"opening"`
	Context      string                      `yaml:"context"`
	LevelContext map[model.Difficulty]string `yaml:"level_context"`
}

// Catalog maps role keys to prompt sets and holds the fallback question pool.
type Catalog struct {
	Roles     map[string]Role               `yaml:"roles"`
	Fallbacks map[model.Difficulty][]string `yaml:"fallback_questions"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("embedded roles.yaml: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file. Roles and fallback levels missing
// from the file are taken from the embedded catalog.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roles file: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	base := Default()
	for k, r := range base.Roles {
		if _, ok := c.Roles[k]; !ok {
			c.Roles[k] = r
		}
	}
	for lvl, qs := range base.Fallbacks {
		if len(c.Fallbacks[lvl]) == 0 {
			c.Fallbacks[lvl] = qs
		}
	}
	return c, nil
}

// Parse decodes and validates a catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.Roles == nil {
		c.Roles = map[string]Role{}
	}
	if c.Fallbacks == nil {
		c.Fallbacks = map[model.Difficulty][]string{}
	}
	for k, r := range c.Roles {
		if strings.TrimSpace(r.Opening) == "" {
			return nil, fmt.Errorf("role %q: opening is required", k)
		}
		for lvl := range r.LevelContext {
			if !lvl.Valid() {
				return nil, fmt.Errorf("role %q: unknown level %q", k, lvl)
			}
		}
	}
	return &c, nil
}

// Key normalises a job role name to a catalog key.
func Key(jobRole string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(jobRole)), " ", "_")
}

// Lookup returns the prompt set for jobRole, or the default set.
func (c *Catalog) Lookup(jobRole string) Role {
	if r, ok := c.Roles[Key(jobRole)]; ok {
		return r
	}
	return c.Roles[DefaultKey]
}

// FallbackQuestions renders the fallback pool for level with jobRole filled in.
func (c *Catalog) FallbackQuestions(level model.Difficulty, jobRole string) []string {
	pool := c.Fallbacks[level]
	if len(pool) == 0 {
		pool = c.Fallbacks[model.DifficultyEasy]
	}
	r := strings.NewReplacer("{role}", strings.ToLower(jobRole), "{Role}", jobRole)
	out := make([]string, len(pool))
	for i, q := range pool {
		out[i] = r.Replace(q)
	}
	return out
}

// FallbackQuestion picks one question from the fallback pool at random.
func (c *Catalog) FallbackQuestion(level model.Difficulty, jobRole string) string {
	pool := c.FallbackQuestions(level, jobRole)
	if len(pool) == 0 {
		return "Could you tell me more about your professional experience?"
	}
	return pool[rand.IntN(len(pool))]
}
