package config

const (
	// MaxImageDimension is the longest axis, in pixels, accepted by the
	// inference provider without excessive token cost. Images larger on
	// either axis are downscaled proportionally to this bound.
	MaxImageDimension = 1024

	// MaxInlineImageBytes is the size under which an image is inlined
	// without re-encoding. Small inputs skip transcoding entirely so they
	// lose no quality.
	MaxInlineImageBytes = 500 * 1024

	// DocumentJPEGQuality is used when re-encoding scanned documents
	// (triage sheets, lab reports). Text survives compression poorly, so
	// documents get a higher quality factor than photos.
	DocumentJPEGQuality = 92

	// PhotoJPEGQuality is used when re-encoding photographic images.
	PhotoJPEGQuality = 85

	// MinTranscriptLength is the minimum transcript size, in bytes, before
	// any analysis pass or document generation is attempted. Shorter
	// transcripts carry too little signal to be worth a provider call.
	MinTranscriptLength = 50

	// MaxInsightsPerPass caps how many insights one analysis pass may
	// emit. The instruction asks the model for at most this many.
	MaxInsightsPerPass = 3

	// AssistantHistoryWindow is how many trailing conversation messages
	// are replayed as context on each assistant question.
	AssistantHistoryWindow = 4

	// DefaultTemperature keeps clinical output deterministic.
	DefaultTemperature = 0.1

	// DefaultMaxOutputTokens bounds a single inference response.
	DefaultMaxOutputTokens = 2048
)
