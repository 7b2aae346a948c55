package clinical

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"clinsight/internal/config"
	"clinsight/internal/domain/models/clinical"
	genaiModels "clinsight/internal/domain/models/genai"
	genaiSvc "clinsight/internal/domain/services/genai"
	"clinsight/internal/prompts"
	genaiParse "clinsight/internal/service/genai"
)

// insightPayload is the loosely-typed wire shape the insight instruction
// asks the model for.
type insightPayload struct {
	Insights []struct {
		Type    string   `json:"type"`
		Title   string   `json:"title"`
		Content string   `json:"content"`
		Tags    []string `json:"tags"`
	} `json:"insights"`
}

// MonitorStatus is a point-in-time snapshot of the loop's state.
type MonitorStatus struct {
	Enabled      bool   `json:"enabled"`
	Analyzing    bool   `json:"analyzing"`
	InsightCount int    `json:"insight_count"`
	LastError    string `json:"last_error,omitempty"`
}

// Monitor watches a growing consultation transcript, debounces
// re-analysis and accumulates deduplicated insights. One Monitor belongs
// to exactly one session; its timer and "last analyzed" memory die with
// the session instead of leaking across consultations.
type Monitor struct {
	generator genaiSvc.Generator
	prompts   *prompts.Registry
	logger    *slog.Logger

	interval  time.Duration
	minLength int

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	enabled      bool
	transcript   string
	lastAnalyzed string
	analyzing    bool
	insights     []clinical.Insight
	lastError    string
	timer        *time.Timer
}

// NewMonitor creates an enabled monitor with the given debounce interval.
func NewMonitor(generator genaiSvc.Generator, registry *prompts.Registry, interval time.Duration, logger *slog.Logger) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		generator: generator,
		prompts:   registry,
		logger:    logger,
		interval:  interval,
		minLength: config.MinTranscriptLength,
		ctx:       ctx,
		cancel:    cancel,
		enabled:   true,
	}
}

// SetTranscript feeds the current transcript to the loop. While the
// monitor is enabled, each change re-arms a single debounce timer for the
// configured interval; only the most recent change's timer ever fires.
func (m *Monitor) SetTranscript(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transcript = text

	if !m.enabled || m.ctx.Err() != nil {
		return
	}

	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.interval, func() {
		m.Analyze(m.ctx)
	})
}

// SetEnabled toggles the loop. Disabling cancels any pending timer; it
// does not interrupt a pass already in flight.
func (m *Monitor) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = enabled
	if !enabled && m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Analyze attempts one analysis pass over the current transcript. The
// pass is skipped, with no side effect, when the transcript is below the
// minimum length, identical to the last transcript already covered, or
// when another pass is still in flight.
func (m *Monitor) Analyze(ctx context.Context) {
	m.mu.Lock()
	transcript := m.transcript
	if len(transcript) < m.minLength || transcript == m.lastAnalyzed || m.analyzing {
		m.mu.Unlock()
		return
	}
	m.analyzing = true
	m.mu.Unlock()

	insights, covered, err := m.runPass(ctx, transcript)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.analyzing = false
	if err != nil {
		// The transcript stays un-covered: it will be retried on the next
		// debounce window after the next change, never immediately.
		m.lastError = err.Error()
		m.logger.Error("analysis pass failed", "error", err)
		return
	}

	m.lastError = ""
	if covered {
		m.lastAnalyzed = transcript
	}
	if len(insights) > 0 {
		m.insights = append(m.insights, insights...)
		m.logger.Info("insights recorded",
			"new", len(insights),
			"total", len(m.insights),
		)
	}
}

// runPass issues the inference call and converts the reply into typed
// insights. covered=true means the transcript counts as analyzed even
// when nothing usable came back: an unparseable or empty reply must not
// be retried for the same text.
func (m *Monitor) runPass(ctx context.Context, transcript string) (insights []clinical.Insight, covered bool, err error) {
	resp, err := m.generator.Generate(ctx, &genaiModels.GenerateRequest{
		Messages:          genaiModels.UserTurn("Transcricao da consulta:\n\n" + transcript),
		SystemInstruction: m.prompts.MustGet(prompts.InsightAnalysis),
		JSONMode:          true,
	})
	if err != nil {
		return nil, false, err
	}

	payload, ok := genaiParse.Parse[insightPayload](resp.Text)
	if !ok || len(payload.Insights) == 0 {
		return nil, true, nil
	}

	now := time.Now()
	for _, item := range payload.Insights {
		if !clinical.ValidInsightType(item.Type) {
			m.logger.Warn("discarding insight with unknown type", "type", item.Type)
			continue
		}
		insights = append(insights, clinical.Insight{
			ID:        uuid.NewString(),
			Type:      item.Type,
			Title:     item.Title,
			Content:   item.Content,
			Tags:      item.Tags,
			Timestamp: now,
		})
	}
	return insights, true, nil
}

// Insights returns a copy of the accumulated insight list in arrival
// order.
func (m *Monitor) Insights() []clinical.Insight {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]clinical.Insight, len(m.insights))
	copy(out, m.insights)
	return out
}

// Transcript returns the most recently supplied transcript.
func (m *Monitor) Transcript() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transcript
}

// Status returns a snapshot of the loop's state.
func (m *Monitor) Status() MonitorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	return MonitorStatus{
		Enabled:      m.enabled,
		Analyzing:    m.analyzing,
		InsightCount: len(m.insights),
		LastError:    m.lastError,
	}
}

// Clear empties the insight list and resets the coverage memory, so a
// previously seen transcript becomes analyzable again.
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.insights = nil
	m.lastAnalyzed = ""
	m.lastError = ""
}

// Close stops the debounce timer and cancels any pass started by it.
// Idempotent.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.cancel()
}
