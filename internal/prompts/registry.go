package prompts

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Instruction names known to the registry.
const (
	TriageExtraction = "triage_extraction"
	ExamAnalysis     = "exam_analysis"
	TriageSynthesis  = "triage_synthesis"
	InsightAnalysis  = "insight_analysis"
	Assistant        = "assistant"
	SOAP             = "soap"
)

// Registry holds the system instructions sent with each inference call.
// Instructions live in embedded YAML so prompt tuning never touches Go
// code.
type Registry struct {
	instructions map[string]string
	mu           sync.RWMutex
}

// NewRegistry creates a registry and loads the embedded instruction file.
func NewRegistry() (*Registry, error) {
	r := &Registry{
		instructions: make(map[string]string),
	}

	if err := r.loadFile("instructions"); err != nil {
		return nil, fmt.Errorf("failed to load instructions: %w", err)
	}

	for _, name := range []string{
		TriageExtraction, ExamAnalysis, TriageSynthesis,
		InsightAnalysis, Assistant, SOAP,
	} {
		if _, err := r.Get(name); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// loadFile loads one embedded YAML file into the registry
func (r *Registry) loadFile(name string) error {
	filename := fmt.Sprintf("config/%s.yaml", name)
	data, err := configFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	var loaded map[string]string
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filename, err)
	}

	r.mu.Lock()
	for k, v := range loaded {
		r.instructions[k] = strings.TrimSpace(v)
	}
	r.mu.Unlock()

	return nil
}

// Get returns the instruction registered under name.
func (r *Registry) Get(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instruction, ok := r.instructions[name]
	if !ok || instruction == "" {
		return "", fmt.Errorf("no instruction registered under %q", name)
	}
	return instruction, nil
}

// MustGet returns the instruction or panics. Registry construction
// already verified every known name, so panics here indicate a typo in a
// call site, not missing data.
func (r *Registry) MustGet(name string) string {
	instruction, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return instruction
}
