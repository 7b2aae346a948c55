package clinical

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"clinsight/internal/config"
	"clinsight/internal/domain"
	"clinsight/internal/domain/models/clinical"
	genaiModels "clinsight/internal/domain/models/genai"
	genaiSvc "clinsight/internal/domain/services/genai"
	"clinsight/internal/prompts"
)

// AskContext is the ambient context assembled by the session at call
// time. The assistant reads it as a snapshot; it never holds references
// into other components' state.
type AskContext struct {
	Patient    clinical.Patient
	Transcript string
	Insights   []clinical.Insight
}

// Assistant answers ad hoc questions during a consultation, keeping a
// rolling conversation log. History is appended in question/answer pairs
// only after a successful exchange.
type Assistant struct {
	generator genaiSvc.Generator
	prompts   *prompts.Registry
	logger    *slog.Logger

	mu        sync.Mutex
	busy      bool
	history   []clinical.ConversationMessage
	lastError string
}

// NewAssistant creates an assistant with an empty history.
func NewAssistant(generator genaiSvc.Generator, registry *prompts.Registry, logger *slog.Logger) *Assistant {
	return &Assistant{
		generator: generator,
		prompts:   registry,
		logger:    logger,
	}
}

// Ask answers one question with the supplied ambient context. A question
// while another is in flight yields domain.ErrBusy. On failure the
// history is left untouched and the error is recorded and returned.
func (a *Assistant) Ask(ctx context.Context, question string, actx AskContext) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", &domain.ValidationError{Message: "question is required"}
	}

	a.mu.Lock()
	if a.busy {
		a.mu.Unlock()
		return "", &domain.BusyError{Message: "assistant already answering"}
	}
	a.busy = true
	recent := a.recentHistoryLocked()
	a.mu.Unlock()

	prompt := buildAssistantPrompt(question, actx, recent)

	resp, err := a.generator.Generate(ctx, &genaiModels.GenerateRequest{
		Messages:          genaiModels.UserTurn(prompt),
		SystemInstruction: a.prompts.MustGet(prompts.Assistant),
	})

	a.mu.Lock()
	defer a.mu.Unlock()

	a.busy = false
	if err != nil {
		a.lastError = err.Error()
		a.logger.Error("assistant exchange failed", "error", err)
		return "", err
	}

	now := time.Now()
	answer := strings.TrimSpace(resp.Text)
	a.lastError = ""
	a.history = append(a.history,
		clinical.ConversationMessage{Role: clinical.RoleUser, Content: question, Timestamp: now},
		clinical.ConversationMessage{Role: clinical.RoleAssistant, Content: answer, Timestamp: now},
	)

	return answer, nil
}

// recentHistoryLocked returns the capped trailing window of prior turns.
// Caller must hold a.mu.
func (a *Assistant) recentHistoryLocked() []clinical.ConversationMessage {
	window := config.AssistantHistoryWindow
	if len(a.history) <= window {
		out := make([]clinical.ConversationMessage, len(a.history))
		copy(out, a.history)
		return out
	}
	out := make([]clinical.ConversationMessage, window)
	copy(out, a.history[len(a.history)-window:])
	return out
}

// buildAssistantPrompt assembles the composite prompt section by
// section, omitting each block whose source is empty.
func buildAssistantPrompt(question string, actx AskContext, recent []clinical.ConversationMessage) string {
	var b strings.Builder

	if actx.Patient.Name != "" || actx.Patient.Age != "" {
		b.WriteString("Paciente: ")
		b.WriteString(actx.Patient.Name)
		if actx.Patient.Age != "" {
			fmt.Fprintf(&b, ", %s anos", actx.Patient.Age)
		}
		b.WriteString("\n\n")
	}

	if actx.Transcript != "" {
		b.WriteString("Transcricao da consulta:\n")
		b.WriteString(actx.Transcript)
		b.WriteString("\n\n")
	}

	if len(actx.Insights) > 0 {
		b.WriteString("Insights ja identificados:\n")
		for _, insight := range actx.Insights {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", insight.Type, insight.Title, insight.Content)
		}
		b.WriteString("\n")
	}

	if len(recent) > 0 {
		b.WriteString("Conversa recente:\n")
		for _, msg := range recent {
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("Pergunta: ")
	b.WriteString(question)
	return b.String()
}

// History returns a copy of the conversation log.
func (a *Assistant) History() []clinical.ConversationMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]clinical.ConversationMessage, len(a.history))
	copy(out, a.history)
	return out
}

// ClearHistory empties the conversation log.
func (a *Assistant) ClearHistory() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.history = nil
	a.lastError = ""
}
