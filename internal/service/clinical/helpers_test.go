package clinical

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"

	genaiModels "clinsight/internal/domain/models/genai"
	"clinsight/internal/prompts"
)

// fakeGenerator scripts inference replies for the clinical services.
// Replies are consumed in order; the last one repeats. A non-nil gate
// makes Generate block until the gate is closed, to exercise the
// single-flight guards.
type fakeGenerator struct {
	mu      sync.Mutex
	replies []fakeReply
	calls   []*genaiModels.GenerateRequest
	gate    chan struct{}
}

type fakeReply struct {
	text string
	err  error
}

func (f *fakeGenerator) Generate(ctx context.Context, req *genaiModels.GenerateRequest) (*genaiModels.GenerateResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	var reply fakeReply
	if len(f.replies) > 0 {
		reply = f.replies[0]
		if len(f.replies) > 1 {
			f.replies = f.replies[1:]
		}
	}
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	if reply.err != nil {
		return nil, reply.err
	}
	return &genaiModels.GenerateResponse{Text: reply.text}, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeGenerator) call(i int) *genaiModels.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPrompts(t *testing.T) *prompts.Registry {
	t.Helper()

	registry, err := prompts.NewRegistry()
	if err != nil {
		t.Fatalf("load prompt registry: %v", err)
	}
	return registry
}

// smallPNG returns a decodable image that takes the preprocessor's
// fast path.
func smallPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	img.Set(3, 3, color.RGBA{R: 200, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}
