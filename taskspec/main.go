package taskspec

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Nooom01/automl-agent-system/types"
)

const (
	defaultTargetAccuracy  = 0.9
	defaultSamplesPerClass = 50
)

// Spec is one optimization run described in YAML
type Spec struct {
	Description     string    `yaml:"description"`
	Categories      []string  `yaml:"categories"`
	TargetAccuracy  float64   `yaml:"target_accuracy"`
	SamplesPerClass int       `yaml:"samples_per_class"`
	Execution       Execution `yaml:"execution"`
}

// Execution overrides the run's scheduling knobs. Zero values defer to the
// server configuration
type Execution struct {
	MaxConcurrent int    `yaml:"max_concurrent"`
	Timeout       string `yaml:"timeout"`
	EarlyStop     bool   `yaml:"early_stop"`
}

// Parse decodes and validates a YAML spec, filling defaults for omitted
// fields
func Parse(data []byte) (*Spec, error) {
	spec := &Spec{}
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("failed to parse spec: %w", err)
	}

	spec.Description = strings.TrimSpace(spec.Description)
	if spec.Description == "" {
		return nil, fmt.Errorf("spec has no description")
	}
	if spec.TargetAccuracy == 0 {
		spec.TargetAccuracy = defaultTargetAccuracy
	}
	if spec.TargetAccuracy < 0 || spec.TargetAccuracy > 1 {
		return nil, fmt.Errorf("target accuracy %v outside (0, 1]", spec.TargetAccuracy)
	}
	if spec.SamplesPerClass == 0 {
		spec.SamplesPerClass = defaultSamplesPerClass
	}
	if spec.SamplesPerClass < 0 {
		return nil, fmt.Errorf("samples per class must be positive, got %d", spec.SamplesPerClass)
	}
	if spec.Execution.MaxConcurrent < 0 {
		return nil, fmt.Errorf("max concurrent must not be negative, got %d", spec.Execution.MaxConcurrent)
	}
	if spec.Execution.Timeout != "" {
		if _, err := time.ParseDuration(spec.Execution.Timeout); err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", spec.Execution.Timeout, err)
		}
	}
	return spec, nil
}

// ParseFile loads a spec from disk
func ParseFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}
	return Parse(data)
}

// Timeout returns the parsed per strategy timeout, zero when unset. Parse
// already rejected malformed values
func (s *Spec) Timeout() time.Duration {
	if s.Execution.Timeout == "" {
		return 0
	}
	d, _ := time.ParseDuration(s.Execution.Timeout)
	return d
}

// Task converts the spec into the structured task the planner consumes
func (s *Spec) Task() *types.Task {
	return &types.Task{
		Kind:            types.TaskImageClassification,
		Description:     s.Description,
		Categories:      s.Categories,
		TargetAccuracy:  s.TargetAccuracy,
		SamplesPerClass: s.SamplesPerClass,
	}
}
