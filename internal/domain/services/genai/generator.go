package genai

import (
	"context"

	"clinsight/internal/domain/models/genai"
)

// Generator is the single chokepoint through which every clinical
// component talks to the inference service. One network call per
// invocation; no caching, no retry. Implementations must honor the
// context deadline.
type Generator interface {
	// Generate sends one request and returns the extracted text of the
	// first candidate. Fails with domain.ErrProvider on a non-2xx reply
	// and domain.ErrEmptyResponse when the reply carries no text.
	Generate(ctx context.Context, req *genai.GenerateRequest) (*genai.GenerateResponse, error)
}
