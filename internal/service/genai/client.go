package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"clinsight/internal/config"
	"clinsight/internal/domain"
	genaiModels "clinsight/internal/domain/models/genai"
	genaiSvc "clinsight/internal/domain/services/genai"
)

// dataURIPattern splits an inline image reference into MIME type and
// base64 payload.
var dataURIPattern = regexp.MustCompile(`^data:([a-zA-Z0-9.+/-]+);base64,(.+)$`)

// Client talks to the Gemini generateContent REST endpoint. It is the
// only component that issues network calls: one POST per Generate, no
// caching, no retry.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Gemini client from configuration. The HTTP client
// carries its own timeout so a hung provider call settles even when the
// caller's context has no deadline.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		endpoint: strings.TrimRight(cfg.GeminiEndpoint, "/"),
		model:    cfg.GeminiModel,
		apiKey:   cfg.GeminiAPIKey,
		httpClient: &http.Client{
			Timeout: cfg.InferenceTimeout,
		},
		logger: logger,
	}
}

// --- Wire types (Gemini v1beta generateContent) ---

type wirePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *wireInlineData `json:"inlineData,omitempty"`
}

type wireInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wireGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type wireRequest struct {
	Contents          []wireContent        `json:"contents"`
	SystemInstruction *wireContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  wireGenerationConfig `json:"generationConfig"`
}

type wireResponse struct {
	Candidates []struct {
		Content struct {
			Parts []wirePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type wireError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate implements the Generator interface.
func (c *Client) Generate(ctx context.Context, req *genaiModels.GenerateRequest) (*genaiModels.GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	body, dropped := c.buildRequest(req)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.endpoint, c.model, c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrProvider, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, c.providerError(httpResp.StatusCode, respBody)
	}

	text, ok := extractText(respBody)
	if !ok {
		return nil, domain.ErrEmptyResponse
	}

	if req.JSONMode {
		text = StripFence(text)
	}

	c.logger.Debug("inference call completed",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"json_mode", req.JSONMode,
		"dropped_image_refs", dropped,
	)

	return &genaiModels.GenerateResponse{
		Text:             text,
		DroppedImageRefs: dropped,
	}, nil
}

// buildRequest converts domain messages into wire contents. String parts
// beginning with "data:" are treated as inline image references and split
// by dataURIPattern; references that fail the pattern are excluded and
// counted so the caller can surface the loss.
func (c *Client) buildRequest(req *genaiModels.GenerateRequest) (*wireRequest, int) {
	dropped := 0

	contents := make([]wireContent, 0, len(req.Messages))
	for _, msg := range req.Messages {
		parts := make([]wirePart, 0, len(msg.Parts))
		for _, part := range msg.Parts {
			if strings.HasPrefix(part, "data:") {
				m := dataURIPattern.FindStringSubmatch(part)
				if m == nil {
					dropped++
					c.logger.Warn("dropping malformed inline image reference",
						"prefix", truncate(part, 40),
					)
					continue
				}
				parts = append(parts, wirePart{
					InlineData: &wireInlineData{MIMEType: m[1], Data: m[2]},
				})
				continue
			}
			parts = append(parts, wirePart{Text: part})
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, wireContent{Role: msg.Role, Parts: parts})
	}

	temperature := config.DefaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := req.MaxOutputTokens
	if maxTokens == 0 {
		maxTokens = config.DefaultMaxOutputTokens
	}

	body := &wireRequest{
		Contents: contents,
		GenerationConfig: wireGenerationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}
	if req.SystemInstruction != "" {
		body.SystemInstruction = &wireContent{
			Parts: []wirePart{{Text: req.SystemInstruction}},
		}
	}
	if req.JSONMode {
		body.GenerationConfig.ResponseMIMEType = "application/json"
	}

	return body, dropped
}

// providerError decodes the provider's error body when possible, falling
// back to the HTTP status text.
func (c *Client) providerError(status int, body []byte) error {
	var we wireError
	if err := json.Unmarshal(body, &we); err == nil && we.Error.Message != "" {
		return &domain.ProviderError{HTTPStatus: status, Message: we.Error.Message}
	}
	return &domain.ProviderError{HTTPStatus: status}
}

// extractText pulls the first candidate's first text part out of a 2xx
// response body.
func extractText(body []byte) (string, bool) {
	var resp wireResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", false
	}
	if len(resp.Candidates) == 0 {
		return "", false
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			return part.Text, true
		}
	}
	return "", false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ genaiSvc.Generator = (*Client)(nil)
