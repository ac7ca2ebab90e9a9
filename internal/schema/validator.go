// Package schema defines the REST/MCP request payloads and validates them
// with go-playground/validator.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"transcript-search-service/internal/service/segment"
)

// SegmentPayload is one caller-supplied segment.
type SegmentPayload struct {
	Start float64 `json:"start" validate:"gte=0"`
	End   float64 `json:"end" validate:"gtefield=Start"`
	Text  string  `json:"text" validate:"max=10000"`
}

// ImportRequest stores a transcript produced elsewhere. Either Text or
// Segments must be given.
type ImportRequest struct {
	Text     string           `json:"text" validate:"required_without=Segments,max=1000000"`
	Language string           `json:"language" validate:"omitempty,max=16"`
	Segments []SegmentPayload `json:"segments" validate:"omitempty,max=20000,dive"`
}

// ToSegments converts the payload segments.
func (r ImportRequest) ToSegments() []segment.Segment {
	out := make([]segment.Segment, len(r.Segments))
	for i, s := range r.Segments {
		out[i] = segment.Segment{Start: s.Start, End: s.End, Text: s.Text}
	}
	return out
}

// CorrectRequest starts a correction job. Zero values use the service
// defaults.
type CorrectRequest struct {
	Strategy    string `json:"strategy" validate:"omitempty,oneof=wordcount batched"`
	BatchSize   int    `json:"batchSize" validate:"omitempty,min=1,max=200"`
	Separator   string `json:"separator" validate:"omitempty,max=16"`
	Parallelism int    `json:"parallelism" validate:"omitempty,min=1,max=32"`
}

// SearchRequest runs a query. Context and Threshold are pointers so that an
// explicit zero can be told apart from "use the default".
type SearchRequest struct {
	Query     string   `json:"query" validate:"max=500"`
	Context   *int     `json:"context" validate:"omitempty,min=0,max=20"`
	Threshold *float64 `json:"threshold" validate:"omitempty,min=0,max=1"`
}

// ChatRequest asks a question about the transcript.
type ChatRequest struct {
	Question string `json:"question" validate:"required,max=4000"`
}

// ValidationError lists every failed field constraint.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Details, "; ")
}

// Validator validates request payloads.
type Validator struct {
	validate *validator.Validate
}

// New creates a validator.
func New() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate returns a *ValidationError describing every violated constraint,
// or nil.
func (v *Validator) Validate(payload any) error {
	err := v.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	return &ValidationError{Details: FormatValidationErrors(verrs)}
}

// FormatValidationErrors renders validator errors as readable messages.
func FormatValidationErrors(verrs validator.ValidationErrors) []string {
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("field '%s' failed on the '%s' tag", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s (param: %s)", msg, fe.Param())
		}
		out = append(out, msg)
	}
	return out
}
