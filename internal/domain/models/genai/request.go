package genai

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// GenerateRequest contains the parameters for one inference call.
// Zero-valued options are filled with defaults by the client
// (temperature 0.1, 2048 output tokens, plain-text mode).
type GenerateRequest struct {
	// Messages is the ordered conversation to send. Must contain at least
	// one message, each with at least one part.
	Messages []Message

	// SystemInstruction steers the model; empty means none.
	SystemInstruction string

	// Temperature in [0, 2]. Nil selects the default.
	Temperature *float64

	// MaxOutputTokens bounds the response length. Zero selects the default.
	MaxOutputTokens int

	// JSONMode constrains the response to a single JSON value and enables
	// fence cleanup on the returned text.
	JSONMode bool
}

// Validate checks the request invariants before any network call.
func (r *GenerateRequest) Validate() error {
	if err := validation.ValidateStruct(r,
		validation.Field(&r.Messages, validation.Required),
		validation.Field(&r.MaxOutputTokens, validation.Min(0)),
	); err != nil {
		return err
	}
	if r.Temperature != nil {
		if err := validation.Validate(*r.Temperature, validation.Min(0.0), validation.Max(2.0)); err != nil {
			return err
		}
	}
	for _, m := range r.Messages {
		if len(m.Parts) == 0 {
			return validation.NewError("validation_empty_message", "message has no parts")
		}
		if m.Role != RoleUser && m.Role != RoleModel {
			return validation.NewError("validation_bad_role", "message role must be user or model")
		}
	}
	return nil
}

// GenerateResponse is the text outcome of one inference call.
type GenerateResponse struct {
	// Text is the first candidate's text, fence-cleaned when JSONMode was set.
	Text string

	// DroppedImageRefs counts parts that looked like image references but
	// did not match the data-URI pattern and were excluded from the
	// request. Always report this to the caller; losing an attachment
	// silently hides real clinical content.
	DroppedImageRefs int
}
