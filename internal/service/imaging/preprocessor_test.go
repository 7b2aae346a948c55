package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"testing"

	"clinsight/internal/domain"
)

func testPreprocessor() *Preprocessor {
	return NewPreprocessor(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x += 7 {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func decodeDataURI(t *testing.T, uri string) (string, []byte) {
	t.Helper()

	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		t.Fatalf("not a data URI: %q", uri[:min(len(uri), 30)])
	}
	mimeType, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		t.Fatalf("missing base64 marker in %q", uri[:min(len(uri), 30)])
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return mimeType, data
}

func TestPrepareSkipsSmallImages(t *testing.T) {
	original := pngBytes(t, 800, 600)
	if len(original) >= 500*1024 {
		t.Fatalf("test image unexpectedly large: %d bytes", len(original))
	}

	uri, err := testPreprocessor().Prepare(original, "wound.png")
	if err != nil {
		t.Fatalf("Prepare() unexpected error: %v", err)
	}

	mimeType, data := decodeDataURI(t, uri)
	if mimeType != "image/png" {
		t.Errorf("mime = %q, want image/png (no transcoding)", mimeType)
	}
	if !bytes.Equal(data, original) {
		t.Error("small image must be returned byte-identical")
	}
}

func TestPrepareDownscalesLargeImages(t *testing.T) {
	tests := []struct {
		name       string
		width      int
		height     int
		wantWidth  int
		wantHeight int
	}{
		{"landscape", 2000, 1500, 1024, 768},
		{"portrait", 1500, 2000, 768, 1024},
		{"square", 4096, 4096, 1024, 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uri, err := testPreprocessor().Prepare(pngBytes(t, tt.width, tt.height), "photo.png")
			if err != nil {
				t.Fatalf("Prepare() unexpected error: %v", err)
			}

			mimeType, data := decodeDataURI(t, uri)
			if mimeType != "image/jpeg" {
				t.Errorf("mime = %q, want image/jpeg after re-encode", mimeType)
			}

			cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("decode result: %v", err)
			}
			if cfg.Width != tt.wantWidth || cfg.Height != tt.wantHeight {
				t.Errorf("result = %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestPrepareUndecodableInput(t *testing.T) {
	_, err := testPreprocessor().Prepare([]byte("not an image at all"), "chart.pdf")
	if err == nil {
		t.Fatal("Prepare() expected error for undecodable input")
	}

	var decodeErr *domain.ImageDecodeError
	if !errors.As(err, &decodeErr) {
		t.Errorf("Prepare() error = %T, want *domain.ImageDecodeError", err)
	}
	if decodeErr.Filename != "chart.pdf" {
		t.Errorf("error filename = %q, want chart.pdf", decodeErr.Filename)
	}
}

func TestScaledBounds(t *testing.T) {
	tests := []struct {
		name       string
		w, h, max  int
		wantW, wantH int
	}{
		{"within bound untouched", 800, 600, 1024, 800, 600},
		{"wide", 2048, 1024, 1024, 1024, 512},
		{"tall", 100, 4000, 1024, 25, 1024},
		{"never below one pixel", 1, 9000, 1024, 1, 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotW, gotH := scaledBounds(tt.w, tt.h, tt.max)
			if gotW != tt.wantW || gotH != tt.wantH {
				t.Errorf("scaledBounds(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.w, tt.h, tt.max, gotW, gotH, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestIsDocumentName(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"triagem.pdf", true},
		{"laudo.DOCX", true},
		{"notas.txt", true},
		{"ferida.jpg", false},
		{"IMG_2041.png", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := isDocumentName(tt.filename); got != tt.want {
				t.Errorf("isDocumentName(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}
