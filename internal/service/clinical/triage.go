package clinical

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"clinsight/internal/domain"
	"clinsight/internal/domain/models/clinical"
	genaiModels "clinsight/internal/domain/models/genai"
	genaiSvc "clinsight/internal/domain/services/genai"
	"clinsight/internal/prompts"
	genaiParse "clinsight/internal/service/genai"
	"clinsight/internal/service/imaging"
)

// Pipeline stage labels, reachable only in this order. Stages whose
// inputs are absent are skipped, never reordered.
const (
	StageIdle           = "idle"
	StageExtracting     = "extracting-triage"
	StageAnalyzingExams = "analyzing-exams"
	StageSynthesizing   = "synthesizing"
	StageDone           = "done"
	StageFailed         = "failed"
)

// Upload is one raw image handed to the pipeline by the UI layer.
type Upload struct {
	Data     []byte
	Filename string
}

// TriageStatus is a point-in-time snapshot of a run. Progress is
// advisory telemetry for the UI, not a correctness contract.
type TriageStatus struct {
	Stage    string                   `json:"stage"`
	Progress int                      `json:"progress"`
	Error    string                   `json:"error,omitempty"`
	Analysis *clinical.TriageAnalysis `json:"analysis,omitempty"`
}

// Triage runs the staged document pipeline for one session: literal
// extraction of the triage sheet, clinical analysis of exam images, then
// a text-only synthesis call that folds both intermediates into one
// TriageAnalysis. Stage N is never issued before stage N-1 has settled.
type Triage struct {
	generator    genaiSvc.Generator
	preprocessor *imaging.Preprocessor
	prompts      *prompts.Registry
	logger       *slog.Logger

	mu       sync.Mutex
	running  bool
	stage    string
	progress int
	lastErr  string
	analysis *clinical.TriageAnalysis
}

// NewTriage creates an idle pipeline.
func NewTriage(generator genaiSvc.Generator, preprocessor *imaging.Preprocessor, registry *prompts.Registry, logger *slog.Logger) *Triage {
	return &Triage{
		generator:    generator,
		preprocessor: preprocessor,
		prompts:      registry,
		logger:       logger,
		stage:        StageIdle,
	}
}

// Run executes one pipeline pass. It validates input and acquires the
// single-flight guard before any preprocessing or network work; a run
// already in flight yields domain.ErrBusy. On failure the last
// successful analysis from a previous run is left untouched.
func (t *Triage) Run(ctx context.Context, triageImages, examImages []Upload) error {
	if len(triageImages) == 0 && len(examImages) == 0 {
		return &domain.ValidationError{Message: "at least one triage or exam image is required"}
	}

	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return &domain.BusyError{Message: "triage pipeline already running"}
	}
	t.running = true
	t.stage = StageIdle
	t.progress = 5
	t.lastErr = ""
	t.mu.Unlock()

	err := t.run(ctx, triageImages, examImages)

	t.mu.Lock()
	t.running = false
	if err != nil {
		t.stage = StageFailed
		t.lastErr = err.Error()
	} else {
		t.stage = StageDone
		t.progress = 100
	}
	t.mu.Unlock()

	if err != nil {
		t.logger.Error("triage pipeline failed", "error", err)
	}
	return err
}

func (t *Triage) run(ctx context.Context, triageImages, examImages []Upload) error {
	triageURIs, err := t.prepareAll(triageImages)
	if err != nil {
		return err
	}
	examURIs, err := t.prepareAll(examImages)
	if err != nil {
		return err
	}

	// Stage 1: literal extraction of the triage sheet. A failed or
	// missing extraction does not abort the run.
	var extracted map[string]any
	if len(triageURIs) > 0 {
		t.setStage(StageExtracting, 20)

		parts := append([]string{"Fichas de triagem anexadas:"}, triageURIs...)
		resp, err := t.generator.Generate(ctx, &genaiModels.GenerateRequest{
			Messages:          genaiModels.UserTurn(parts...),
			SystemInstruction: t.prompts.MustGet(prompts.TriageExtraction),
			JSONMode:          true,
		})
		if err != nil {
			return err
		}
		if parsed, ok := genaiParse.Parse[map[string]any](resp.Text); ok {
			extracted = *parsed
		} else {
			t.logger.Warn("triage extraction unparseable, continuing without it")
		}
	}

	// Stage 2: exam analysis, with the extracted sheet as textual context.
	var examAnalysis map[string]any
	if len(examURIs) > 0 {
		t.setStage(StageAnalyzingExams, 50)

		parts := []string{"Exames complementares anexados:"}
		if block := contextBlock("Dados extraidos da triagem", extracted); block != "" {
			parts = append(parts, block)
		}
		parts = append(parts, examURIs...)

		resp, err := t.generator.Generate(ctx, &genaiModels.GenerateRequest{
			Messages:          genaiModels.UserTurn(parts...),
			SystemInstruction: t.prompts.MustGet(prompts.ExamAnalysis),
			JSONMode:          true,
		})
		if err != nil {
			return err
		}
		if parsed, ok := genaiParse.Parse[map[string]any](resp.Text); ok {
			examAnalysis = *parsed
		} else {
			t.logger.Warn("exam analysis unparseable, continuing without it")
		}
	}

	// Stage 3: text-only synthesis over whichever intermediates exist.
	t.setStage(StageSynthesizing, 80)

	parts := []string{"Monte o painel de triagem a partir do contexto abaixo."}
	if block := contextBlock("Dados extraidos da triagem", extracted); block != "" {
		parts = append(parts, block)
	}
	if block := contextBlock("Analise dos exames", examAnalysis); block != "" {
		parts = append(parts, block)
	}

	resp, err := t.generator.Generate(ctx, &genaiModels.GenerateRequest{
		Messages:          genaiModels.UserTurn(parts...),
		SystemInstruction: t.prompts.MustGet(prompts.TriageSynthesis),
		JSONMode:          true,
	})
	if err != nil {
		return err
	}

	analysis, ok := genaiParse.Parse[clinical.TriageAnalysis](resp.Text)
	if !ok {
		return fmt.Errorf("%w: synthesis reply was not a triage panel", domain.ErrProvider)
	}

	t.mu.Lock()
	t.analysis = analysis
	t.mu.Unlock()

	t.logger.Info("triage pipeline completed",
		"status", analysis.Status,
		"findings", len(analysis.ExamFindings),
		"hypotheses", len(analysis.Hypotheses),
	)
	return nil
}

// prepareAll preprocesses every upload before any inference call.
func (t *Triage) prepareAll(uploads []Upload) ([]string, error) {
	uris := make([]string, 0, len(uploads))
	for _, u := range uploads {
		uri, err := t.preprocessor.Prepare(u.Data, u.Filename)
		if err != nil {
			return nil, err
		}
		uris = append(uris, uri)
	}
	return uris, nil
}

func (t *Triage) setStage(stage string, progress int) {
	t.mu.Lock()
	t.stage = stage
	t.progress = progress
	t.mu.Unlock()
}

// Status returns a snapshot of the pipeline, including the last
// successful analysis if any.
func (t *Triage) Status() TriageStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	return TriageStatus{
		Stage:    t.stage,
		Progress: t.progress,
		Error:    t.lastErr,
		Analysis: t.analysis,
	}
}

// Running reports whether a run is in flight.
func (t *Triage) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// contextBlock renders an intermediate stage result as a labelled JSON
// text block for the next stage's prompt. Nil intermediates render as
// nothing.
func contextBlock(label string, value map[string]any) string {
	if len(value) == 0 {
		return ""
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s:\n%s", label, encoded)
}
