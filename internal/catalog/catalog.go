// Package catalog loads the task template catalog from YAML. The catalog is
// a static, read-only lookup table: end users never edit templates, and
// every entry must resolve to a scoreable config before it is accepted.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/streakworks/tally/internal/scoring"
	"github.com/streakworks/tally/internal/types"
	"github.com/streakworks/tally/internal/validation"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// entry is the YAML shape of one template.
type entry struct {
	ID            string                    `yaml:"id"`
	Name          string                    `yaml:"name"`
	Category      types.Category            `yaml:"category"`
	Archetype     types.Archetype           `yaml:"archetype"`
	InputKind     types.InputKind           `yaml:"input_kind"`
	Unit          types.Unit                `yaml:"unit"`
	MinValue      *float64                  `yaml:"min_value"`
	MaxValue      *float64                  `yaml:"max_value"`
	DefaultConfig map[string]any            `yaml:"default_config"`
	Verification  *types.VerificationConfig `yaml:"verification"`
}

type file struct {
	Templates []entry `yaml:"templates"`
}

// Load returns the built-in template catalog.
func Load() ([]types.TaskTemplate, error) {
	return parse(defaultCatalog)
}

// LoadFile reads a catalog from a YAML file on disk, for deployments that
// ship their own template set.
func LoadFile(path string) ([]types.TaskTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) ([]types.TaskTemplate, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(f.Templates) == 0 {
		return nil, fmt.Errorf("catalog contains no templates")
	}

	templates := make([]types.TaskTemplate, 0, len(f.Templates))
	seen := make(map[string]bool, len(f.Templates))
	for _, e := range f.Templates {
		t, err := e.toTemplate()
		if err != nil {
			return nil, err
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("catalog template %q: duplicate id", t.ID)
		}
		seen[t.ID] = true
		templates = append(templates, t)
	}
	return templates, nil
}

func (e entry) toTemplate() (types.TaskTemplate, error) {
	t := types.TaskTemplate{
		ID:            e.ID,
		Name:          e.Name,
		Category:      e.Category,
		Archetype:     e.Archetype,
		InputKind:     e.InputKind,
		Unit:          e.Unit,
		MinValue:      e.MinValue,
		MaxValue:      e.MaxValue,
		DefaultConfig: normalizeConfig(e.DefaultConfig),
		Verification:  e.Verification,
	}

	var c validation.Collector
	c.Add(validation.ValidateRequired("id", t.ID))
	c.Add(validation.ValidateRequired("name", t.Name))
	c.Add(validation.ValidateEnum("category", t.Category, types.Categories))
	c.Add(validation.ValidateEnum("archetype", t.Archetype, types.Archetypes))
	c.Add(validation.ValidateEnum("input_kind", t.InputKind, types.InputKinds))
	c.Add(validation.ValidateEnum("unit", t.Unit, types.Units))
	if c.HasErrors() {
		errs := c.Errors()
		return t, fmt.Errorf("catalog template %q: %s %s", e.ID, errs[0].Field, errs[0].Message)
	}

	// Every catalog entry must resolve; a template that cannot be scored is
	// a seeding bug, not something to discover at check-in time.
	if _, err := scoring.Resolve(t, nil, nil); err != nil {
		return t, fmt.Errorf("catalog template %q: %w", e.ID, err)
	}

	return t, nil
}

// normalizeConfig rewrites nested YAML maps (map[string]any is guaranteed by
// yaml.v3 for string keys, but nested lists arrive as []any of
// map[string]any) so the config matches what JSON decoding produces and the
// resolver can treat both alike.
func normalizeConfig(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		return normalizeConfig(vv)
	case []any:
		list := make([]any, len(vv))
		for i, item := range vv {
			list[i] = normalizeValue(item)
		}
		return list
	default:
		return v
	}
}
