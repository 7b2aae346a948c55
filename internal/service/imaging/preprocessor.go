package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"strings"

	// Register decoders for the formats uploads arrive in.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	"clinsight/internal/config"
	"clinsight/internal/domain"
)

// Preprocessor converts arbitrary uploaded images into size- and
// quality-bounded inline data URIs accepted by the inference provider.
type Preprocessor struct {
	maxDimension int
	maxBytes     int
	logger       *slog.Logger
}

// NewPreprocessor creates a preprocessor with the configured bounds.
func NewPreprocessor(logger *slog.Logger) *Preprocessor {
	return &Preprocessor{
		maxDimension: config.MaxImageDimension,
		maxBytes:     config.MaxInlineImageBytes,
		logger:       logger,
	}
}

// Prepare returns a "data:<mime>;base64,<payload>" URI for the given
// image bytes. Images already within the pixel and byte bounds are
// encoded as-is, byte for byte, so small inputs lose no quality. Larger
// images are downscaled so the longer axis equals the pixel bound and
// re-encoded as JPEG, at a higher quality for document scans than for
// photos. There is no partial-success path: an undecodable input fails
// the whole call.
func (p *Preprocessor) Prepare(data []byte, filename string) (string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", &domain.ImageDecodeError{Filename: filename, Err: err}
	}

	if cfg.Width <= p.maxDimension && cfg.Height <= p.maxDimension && len(data) < p.maxBytes {
		return dataURI(mimeForFormat(format), data), nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", &domain.ImageDecodeError{Filename: filename, Err: err}
	}

	width, height := scaledBounds(cfg.Width, cfg.Height, p.maxDimension)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	quality := config.PhotoJPEGQuality
	if isDocumentName(filename) {
		quality = config.DocumentJPEGQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("encode %q: %w", filename, err)
	}

	p.logger.Debug("image downscaled",
		"filename", filename,
		"from", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"to", fmt.Sprintf("%dx%d", width, height),
		"quality", quality,
	)

	return dataURI("image/jpeg", buf.Bytes()), nil
}

// scaledBounds shrinks (w, h) proportionally so the longer axis equals
// max. Inputs already within the bound are returned unchanged.
func scaledBounds(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		return max, scaleAxis(h, w, max)
	}
	return scaleAxis(w, h, max), max
}

// scaleAxis scales the shorter axis by the same factor as the longer one,
// never collapsing it below one pixel.
func scaleAxis(short, long, max int) int {
	scaled := short * max / long
	if scaled < 1 {
		return 1
	}
	return scaled
}

// isDocumentName reports whether the filename suggests a scanned document
// rather than a photograph.
func isDocumentName(filename string) bool {
	lower := strings.ToLower(filename)
	for _, hint := range []string{"pdf", "doc", "docx", "txt"} {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func mimeForFormat(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

func dataURI(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}
