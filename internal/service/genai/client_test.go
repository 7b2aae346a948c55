package genai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinsight/internal/config"
	"clinsight/internal/domain"
	genaiModels "clinsight/internal/domain/models/genai"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		GeminiEndpoint:   server.URL,
		GeminiModel:      "gemini-2.0-flash",
		GeminiAPIKey:     "test-key",
		InferenceTimeout: 5 * time.Second,
	}
	return NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func candidateReply(text string) string {
	reply := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	}
	encoded, _ := json.Marshal(reply)
	return string(encoded)
}

func TestGenerateExtractsFirstCandidateText(t *testing.T) {
	var gotPath, gotKey string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		io.WriteString(w, candidateReply("ok then"))
	})

	resp, err := client.Generate(context.Background(), &genaiModels.GenerateRequest{
		Messages: genaiModels.UserTurn("hello"),
	})
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if resp.Text != "ok then" {
		t.Errorf("Generate() text = %q, want %q", resp.Text, "ok then")
	}
	if gotPath != "/v1beta/models/gemini-2.0-flash:generateContent" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key query param = %q, want %q", gotKey, "test-key")
	}
}

func TestGenerateJSONModeStripsFence(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		gc := body["generationConfig"].(map[string]any)
		if gc["responseMimeType"] != "application/json" {
			t.Errorf("responseMimeType = %v, want application/json", gc["responseMimeType"])
		}
		io.WriteString(w, candidateReply("```json\n{\"a\":1}\n```"))
	})

	resp, err := client.Generate(context.Background(), &genaiModels.GenerateRequest{
		Messages: genaiModels.UserTurn("hello"),
		JSONMode: true,
	})
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if resp.Text != `{"a":1}` {
		t.Errorf("Generate() text = %q, want stripped JSON", resp.Text)
	}
}

func TestGenerateProviderError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{
			name:        "provider message decoded",
			status:      http.StatusBadRequest,
			body:        `{"error":{"message":"API key not valid"}}`,
			wantMessage: "provider: API key not valid",
		},
		{
			name:        "undecodable body falls back to status text",
			status:      http.StatusServiceUnavailable,
			body:        "upstream exploded",
			wantMessage: "provider: Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := client.Generate(context.Background(), &genaiModels.GenerateRequest{
				Messages: genaiModels.UserTurn("hello"),
			})
			if err == nil {
				t.Fatal("Generate() expected error, got nil")
			}
			if !errors.Is(err, domain.ErrProvider) {
				t.Errorf("Generate() error = %v, want ErrProvider", err)
			}
			if err.Error() != tt.wantMessage {
				t.Errorf("Generate() error = %q, want %q", err.Error(), tt.wantMessage)
			}
		})
	}
}

func TestGenerateEmptyResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no candidates", `{"candidates":[]}`},
		{"no text parts", `{"candidates":[{"content":{"parts":[]}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			})

			_, err := client.Generate(context.Background(), &genaiModels.GenerateRequest{
				Messages: genaiModels.UserTurn("hello"),
			})
			if !errors.Is(err, domain.ErrEmptyResponse) {
				t.Errorf("Generate() error = %v, want ErrEmptyResponse", err)
			}
		})
	}
}

func TestGenerateConvertsImageParts(t *testing.T) {
	var gotBody struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text       string `json:"text"`
				InlineData *struct {
					MIMEType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"contents"`
	}

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		io.WriteString(w, candidateReply("done"))
	})

	resp, err := client.Generate(context.Background(), &genaiModels.GenerateRequest{
		Messages: genaiModels.UserTurn(
			"describe this",
			"data:image/png;base64,aGVsbG8=",
			"data:borked",
		),
	})
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}

	if resp.DroppedImageRefs != 1 {
		t.Errorf("DroppedImageRefs = %d, want 1", resp.DroppedImageRefs)
	}

	if len(gotBody.Contents) != 1 {
		t.Fatalf("contents length = %d, want 1", len(gotBody.Contents))
	}
	parts := gotBody.Contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("parts length = %d, want 2 (malformed ref excluded)", len(parts))
	}
	if parts[0].Text != "describe this" {
		t.Errorf("first part text = %q", parts[0].Text)
	}
	if parts[1].InlineData == nil {
		t.Fatal("second part should be inline data")
	}
	if parts[1].InlineData.MIMEType != "image/png" {
		t.Errorf("inline data mime = %q, want image/png", parts[1].InlineData.MIMEType)
	}
	if parts[1].InlineData.Data != "aGVsbG8=" {
		t.Errorf("inline data payload = %q", parts[1].InlineData.Data)
	}
}

func TestGenerateValidation(t *testing.T) {
	badTemp := 3.5

	tests := []struct {
		name string
		req  *genaiModels.GenerateRequest
	}{
		{"no messages", &genaiModels.GenerateRequest{}},
		{"empty message", &genaiModels.GenerateRequest{
			Messages: []genaiModels.Message{{Role: genaiModels.RoleUser}},
		}},
		{"bad role", &genaiModels.GenerateRequest{
			Messages: []genaiModels.Message{{Role: "system", Parts: []string{"x"}}},
		}},
		{"temperature out of range", &genaiModels.GenerateRequest{
			Messages:    genaiModels.UserTurn("x"),
			Temperature: &badTemp,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				called = true
			})

			_, err := client.Generate(context.Background(), tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Generate() error = %v, want ErrValidation", err)
			}
			if called {
				t.Error("invalid request must not reach the network")
			}
		})
	}
}
