package clinical

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"clinsight/internal/config"
	"clinsight/internal/domain"
	"clinsight/internal/domain/models/clinical"
	genaiSvc "clinsight/internal/domain/services/genai"
	"clinsight/internal/prompts"
	"clinsight/internal/service/imaging"
)

// Session owns every piece of consultation-scoped state: the analysis
// loop with its debounce timer, the triage pipeline with its last
// analysis, and the assistant's conversation log. Constructing and
// tearing sessions down explicitly keeps timers from leaking across
// consultations.
type Session struct {
	ID        string           `json:"id"`
	Patient   clinical.Patient `json:"patient"`
	CreatedAt time.Time        `json:"created_at"`

	Monitor   *Monitor   `json:"-"`
	Triage    *Triage    `json:"-"`
	Assistant *Assistant `json:"-"`
}

// Ask forwards a question to the assistant with the session's ambient
// context assembled at call time: patient identity, current transcript
// and a read-only snapshot of the accumulated insights.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	return s.Assistant.Ask(ctx, question, AskContext{
		Patient:    s.Patient,
		Transcript: s.Monitor.Transcript(),
		Insights:   s.Monitor.Insights(),
	})
}

// Close releases session-owned resources. Idempotent.
func (s *Session) Close() {
	s.Monitor.Close()
}

// Registry is the uuid-keyed, in-memory home of active sessions. Nothing
// here is persisted: a session lives exactly as long as one consultation.
type Registry struct {
	generator    genaiSvc.Generator
	preprocessor *imaging.Preprocessor
	prompts      *prompts.Registry
	cfg          *config.Config
	logger       *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry(generator genaiSvc.Generator, preprocessor *imaging.Preprocessor, promptRegistry *prompts.Registry, cfg *config.Config, logger *slog.Logger) *Registry {
	return &Registry{
		generator:    generator,
		preprocessor: preprocessor,
		prompts:      promptRegistry,
		cfg:          cfg,
		logger:       logger,
		sessions:     make(map[string]*Session),
	}
}

// Create starts a new consultation session for the given patient.
func (r *Registry) Create(patient clinical.Patient) *Session {
	session := &Session{
		ID:        uuid.NewString(),
		Patient:   patient,
		CreatedAt: time.Now(),
		Monitor:   NewMonitor(r.generator, r.prompts, r.cfg.AnalysisInterval, r.logger),
		Triage:    NewTriage(r.generator, r.preprocessor, r.prompts, r.logger),
		Assistant: NewAssistant(r.generator, r.prompts, r.logger),
	}

	r.mu.Lock()
	r.sessions[session.ID] = session
	r.mu.Unlock()

	r.logger.Info("session created", "id", session.ID, "patient", patient.Name)
	return session
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: "session not found"}
	}
	return session, nil
}

// Delete tears a session down, stopping its timers.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	session, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return &domain.NotFoundError{Message: "session not found"}
	}

	session.Close()
	r.logger.Info("session closed", "id", id)
	return nil
}

// Len reports how many sessions are active.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
