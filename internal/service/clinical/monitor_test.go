package clinical

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

const longTranscript = "Paciente relata dor toracica ha duas horas, irradiando para o braco esquerdo, com sudorese."

func insightReply(titles ...string) string {
	var b strings.Builder
	b.WriteString(`{"insights":[`)
	for i, title := range titles {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"type":"alert","title":"` + title + `","content":"c","tags":["t"]}`)
	}
	b.WriteString(`]}`)
	return b.String()
}

func newTestMonitor(gen *fakeGenerator, t *testing.T) *Monitor {
	m := NewMonitor(gen, testPrompts(t), time.Hour, testLogger())
	t.Cleanup(m.Close)
	return m
}

func TestMonitorSkipsShortTranscript(t *testing.T) {
	gen := &fakeGenerator{}
	m := newTestMonitor(gen, t)

	m.SetTranscript(strings.Repeat("a", 40))
	m.Analyze(context.Background())

	if gen.callCount() != 0 {
		t.Errorf("call count = %d, want 0 for transcript under minimum length", gen.callCount())
	}
}

func TestMonitorIdempotentSkip(t *testing.T) {
	gen := &fakeGenerator{replies: []fakeReply{{text: insightReply("dor toracica")}}}
	m := newTestMonitor(gen, t)

	m.SetTranscript(longTranscript)
	m.Analyze(context.Background())
	m.Analyze(context.Background())

	if gen.callCount() != 1 {
		t.Errorf("call count = %d, want 1 (second pass on unchanged transcript is a no-op)", gen.callCount())
	}
}

func TestMonitorSingleFlight(t *testing.T) {
	gate := make(chan struct{})
	gen := &fakeGenerator{
		replies: []fakeReply{{text: insightReply("x")}},
		gate:    gate,
	}
	m := newTestMonitor(gen, t)
	m.SetTranscript(longTranscript)

	done := make(chan struct{})
	go func() {
		m.Analyze(context.Background())
		close(done)
	}()

	// Wait for the first pass to reach the provider
	for i := 0; i < 100 && gen.callCount() == 0; i++ {
		time.Sleep(time.Millisecond)
	}
	if gen.callCount() != 1 {
		t.Fatalf("first pass never reached the provider")
	}

	// Second pass while the first is in flight must be skipped
	m.Analyze(context.Background())
	if gen.callCount() != 1 {
		t.Errorf("call count = %d, want 1 while a pass is in flight", gen.callCount())
	}

	close(gate)
	<-done
}

func TestMonitorAccumulatesInsights(t *testing.T) {
	gen := &fakeGenerator{replies: []fakeReply{
		{text: insightReply("a1", "a2")},
		{text: insightReply("b1", "b2")},
		{text: insightReply("c1", "c2")},
	}}
	m := newTestMonitor(gen, t)

	for _, suffix := range []string{" um", " dois", " tres"} {
		m.SetTranscript(longTranscript + suffix)
		m.Analyze(context.Background())
	}

	insights := m.Insights()
	if len(insights) != 6 {
		t.Fatalf("insight count = %d, want 6", len(insights))
	}

	wantTitles := []string{"a1", "a2", "b1", "b2", "c1", "c2"}
	seen := make(map[string]bool)
	for i, insight := range insights {
		if insight.Title != wantTitles[i] {
			t.Errorf("insight[%d].Title = %q, want %q (arrival order)", i, insight.Title, wantTitles[i])
		}
		if insight.ID == "" || seen[insight.ID] {
			t.Errorf("insight[%d].ID = %q, want unique non-empty id", i, insight.ID)
		}
		seen[insight.ID] = true
	}
}

func TestMonitorParseFailureCoversTranscript(t *testing.T) {
	gen := &fakeGenerator{replies: []fakeReply{{text: "not json at all"}}}
	m := newTestMonitor(gen, t)

	m.SetTranscript(longTranscript)
	m.Analyze(context.Background())
	m.Analyze(context.Background())

	if gen.callCount() != 1 {
		t.Errorf("call count = %d, want 1 (unparseable reply still covers the transcript)", gen.callCount())
	}
	if len(m.Insights()) != 0 {
		t.Errorf("insights = %d, want 0", len(m.Insights()))
	}
}

func TestMonitorEmptyListCoversTranscript(t *testing.T) {
	gen := &fakeGenerator{replies: []fakeReply{{text: `{"insights":[]}`}}}
	m := newTestMonitor(gen, t)

	m.SetTranscript(longTranscript)
	m.Analyze(context.Background())
	m.Analyze(context.Background())

	if gen.callCount() != 1 {
		t.Errorf("call count = %d, want 1 (empty insight list still covers the transcript)", gen.callCount())
	}
}

func TestMonitorProviderErrorDoesNotCover(t *testing.T) {
	gen := &fakeGenerator{replies: []fakeReply{
		{err: errors.New("socket closed")},
		{text: insightReply("retry worked")},
	}}
	m := newTestMonitor(gen, t)

	m.SetTranscript(longTranscript)
	m.Analyze(context.Background())

	if status := m.Status(); status.LastError == "" {
		t.Error("Status().LastError should surface the failure")
	}

	// The same transcript is retried on the next pass
	m.Analyze(context.Background())

	if gen.callCount() != 2 {
		t.Errorf("call count = %d, want 2 (failed transcript stays uncovered)", gen.callCount())
	}
	if len(m.Insights()) != 1 {
		t.Errorf("insights = %d, want 1 after recovery", len(m.Insights()))
	}
	if status := m.Status(); status.LastError != "" {
		t.Errorf("Status().LastError = %q, want cleared after success", status.LastError)
	}
}

func TestMonitorClearResetsCoverage(t *testing.T) {
	gen := &fakeGenerator{replies: []fakeReply{{text: insightReply("first")}}}
	m := newTestMonitor(gen, t)

	m.SetTranscript(longTranscript)
	m.Analyze(context.Background())

	if len(m.Insights()) != 1 {
		t.Fatalf("insights = %d, want 1", len(m.Insights()))
	}

	m.Clear()

	if len(m.Insights()) != 0 {
		t.Errorf("insights after Clear() = %d, want 0", len(m.Insights()))
	}

	// A previously seen transcript is analyzable again
	m.Analyze(context.Background())
	if gen.callCount() != 2 {
		t.Errorf("call count = %d, want 2 after Clear()", gen.callCount())
	}
}

func TestMonitorDebounce(t *testing.T) {
	gen := &fakeGenerator{replies: []fakeReply{{text: `{"insights":[]}`}}}
	m := NewMonitor(gen, testPrompts(t), 30*time.Millisecond, testLogger())
	t.Cleanup(m.Close)

	// A burst of changes arms only the last change's timer
	m.SetTranscript(longTranscript + " a")
	m.SetTranscript(longTranscript + " b")
	m.SetTranscript(longTranscript + " c")

	time.Sleep(150 * time.Millisecond)

	if gen.callCount() != 1 {
		t.Errorf("call count = %d, want 1 pass after the burst settles", gen.callCount())
	}
}

func TestMonitorDisabledArmsNoTimer(t *testing.T) {
	gen := &fakeGenerator{}
	m := NewMonitor(gen, testPrompts(t), 10*time.Millisecond, testLogger())
	t.Cleanup(m.Close)

	m.SetEnabled(false)
	m.SetTranscript(longTranscript)

	time.Sleep(50 * time.Millisecond)

	if gen.callCount() != 0 {
		t.Errorf("call count = %d, want 0 while disabled", gen.callCount())
	}
}
