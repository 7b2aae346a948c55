package clinical

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"clinsight/internal/config"
	"clinsight/internal/domain"
	"clinsight/internal/domain/models/clinical"
	genaiModels "clinsight/internal/domain/models/genai"
	genaiSvc "clinsight/internal/domain/services/genai"
	"clinsight/internal/prompts"
	genaiParse "clinsight/internal/service/genai"
)

// SOAPService converts a transcript into a four-section SOAP note in one
// request/response round trip. Unlike the analysis loop and the triage
// pipeline, a parse or validation failure here is fatal to the caller: no
// document is better than an incomplete one.
type SOAPService struct {
	generator genaiSvc.Generator
	prompts   *prompts.Registry
	logger    *slog.Logger
}

// NewSOAPService creates a SOAP document generator.
func NewSOAPService(generator genaiSvc.Generator, registry *prompts.Registry, logger *slog.Logger) *SOAPService {
	return &SOAPService{
		generator: generator,
		prompts:   registry,
		logger:    logger,
	}
}

// Generate produces a validated SOAP note from the transcript. The
// transcript must meet the minimum length before any network call is
// made. Every returned note has all four sections non-empty; there is no
// partial-document path.
func (s *SOAPService) Generate(ctx context.Context, transcript string, patient clinical.Patient) (*clinical.SOAPContent, error) {
	transcript = strings.TrimSpace(transcript)
	if len(transcript) < config.MinTranscriptLength {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("transcript too short for a SOAP note (minimum %d characters)", config.MinTranscriptLength),
		}
	}

	var b strings.Builder
	if patient.Name != "" {
		fmt.Fprintf(&b, "Paciente: %s", patient.Name)
		if patient.Age != "" {
			fmt.Fprintf(&b, ", %s anos", patient.Age)
		}
		b.WriteString("\n\n")
	}
	b.WriteString("Transcricao da consulta:\n")
	b.WriteString(transcript)

	resp, err := s.generator.Generate(ctx, &genaiModels.GenerateRequest{
		Messages:          genaiModels.UserTurn(b.String()),
		SystemInstruction: s.prompts.MustGet(prompts.SOAP),
		JSONMode:          true,
	})
	if err != nil {
		return nil, err
	}

	note, ok := genaiParse.Parse[clinical.SOAPContent](resp.Text)
	if !ok {
		return nil, fmt.Errorf("%w: SOAP reply was not a JSON document", domain.ErrProvider)
	}

	if err := note.Validate(); err != nil {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("incomplete SOAP note: %v", err)}
	}

	s.logger.Info("soap note generated", "transcript_bytes", len(transcript))
	return note, nil
}
