package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// JobStatus tracks the lifecycle of a single merge job.
type JobStatus string

const (
	JobStatusIdle    JobStatus = "idle"
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusSuccess JobStatus = "success"
	JobStatusFailed  JobStatus = "failed"
)

// LogType classifies one merge log line.
type LogType string

const (
	LogTypeInfo LogType = "info"
	LogTypeOut  LogType = "out"
	LogTypeErr  LogType = "err"
)

// Settings contains user-selectable runtime configuration.
type Settings struct {
	WorkDir       string            `json:"workDir" toml:"work_dir"`
	LastOutputDir string            `json:"lastOutputDir" toml:"last_output_dir"`
	ToolPath      string            `json:"toolPath" toml:"tool_path"`
	LogLevel      string            `json:"logLevel" toml:"log_level"`
	HistoryPath   string            `json:"historyPath" toml:"history_path"`
	Prefs         map[string]string `json:"prefs,omitempty" toml:"prefs,omitempty"`
}

// JobDescriptor is one merge request submitted by the caller.
type JobDescriptor struct {
	ID         string          `json:"id" yaml:"id"`
	Files      []string        `json:"files" yaml:"files"`
	OutputDir  string          `json:"outputDir" yaml:"outputDir"`
	OutputName string          `json:"outputName,omitempty" yaml:"outputName,omitempty"`
	Transforms []TransformSpec `json:"transforms,omitempty" yaml:"transforms,omitempty"`
}

// Job is the observable state of one job within the active batch.
type Job struct {
	ID         string    `json:"id"`
	Status     JobStatus `json:"status"`
	OutputPath string    `json:"outputPath,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// DefaultTransforms is applied when a job names no transforms.
func DefaultTransforms() []TransformSpec {
	return []TransformSpec{{Kind: "dedup"}, {Kind: "prune"}}
}

var transformKindPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// TransformSpec names one gltf-transform command plus extra arguments.
type TransformSpec struct {
	Kind string   `json:"kind" yaml:"kind"`
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
}

// ParseTransform tokenizes free text such as "resample --tolerance 0.001".
// It reports false when the text holds no command name.
func ParseTransform(raw string) (TransformSpec, bool) {
	tokens := strings.Fields(raw)
	if len(tokens) == 0 {
		return TransformSpec{}, false
	}
	spec := TransformSpec{Kind: tokens[0]}
	if len(tokens) > 1 {
		spec.Args = tokens[1:]
	}
	return spec, true
}

// Validate rejects kinds that are not plain command names.
func (s TransformSpec) Validate() error {
	if !transformKindPattern.MatchString(s.Kind) {
		return fmt.Errorf("invalid transform %q: command name must match %s", s.String(), transformKindPattern)
	}
	for _, arg := range s.Args {
		if strings.TrimSpace(arg) == "" {
			return fmt.Errorf("invalid transform %q: empty argument", s.Kind)
		}
	}
	return nil
}

// String renders the spec the way a user would type it.
func (s TransformSpec) String() string {
	return strings.TrimSpace(strings.Join(append([]string{s.Kind}, s.Args...), " "))
}

// UnmarshalJSON accepts either a string or a {kind, args} object.
func (s *TransformSpec) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*s, _ = ParseTransform(raw)
		return nil
	}

	type plain TransformSpec
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("transform must be a string or object: %w", err)
	}
	*s = TransformSpec(obj)
	s.Kind = strings.TrimSpace(s.Kind)
	return nil
}

// UnmarshalYAML accepts either a scalar or a {kind, args} mapping.
func (s *TransformSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*s, _ = ParseTransform(node.Value)
		return nil
	}

	type plain TransformSpec
	var obj plain
	if err := node.Decode(&obj); err != nil {
		return fmt.Errorf("transform must be a string or mapping: %w", err)
	}
	*s = TransformSpec(obj)
	s.Kind = strings.TrimSpace(s.Kind)
	return nil
}
