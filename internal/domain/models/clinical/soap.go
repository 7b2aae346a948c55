package clinical

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// SOAPContent is a structured consultation note. The wire keys are the
// Portuguese section names used by the provider contract. All four
// sections are mandatory: a note missing any of them is discarded whole,
// never returned partially.
type SOAPContent struct {
	Subjective string `json:"subjetivo"`
	Objective  string `json:"objetivo"`
	Assessment string `json:"avaliacao"`
	Plan       string `json:"plano"`
}

// Validate enforces that every section is a non-empty string. The first
// missing section is named in the returned error.
func (s *SOAPContent) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Subjective, validation.Required.Error("campo subjetivo ausente")),
		validation.Field(&s.Objective, validation.Required.Error("campo objetivo ausente")),
		validation.Field(&s.Assessment, validation.Required.Error("campo avaliacao ausente")),
		validation.Field(&s.Plan, validation.Required.Error("campo plano ausente")),
	)
}
