package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/hlog"

	"transcript-search-service/internal/schema"
	"transcript-search-service/internal/service/correction"
	"transcript-search-service/internal/service/segment"
	"transcript-search-service/internal/service/session"
	"transcript-search-service/internal/service/stt"
)

const maxJSONBody = 32 << 20

type errorBody struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	body := errorBody{Status: "error", Message: err.Error()}
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		body.Message = "validation failed"
		body.Details = verr.Details
	}
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Int("status", status).Msg("Request failed")
	}
	writeJSON(w, status, body)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var verr *schema.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoTranscript),
		errors.Is(err, session.ErrCorrectionRunning),
		errors.Is(err, session.ErrTranscriptChanged):
		return http.StatusConflict
	case errors.Is(err, session.ErrStoreFull),
		errors.Is(err, session.ErrNoTranscriber),
		errors.Is(err, session.ErrNoCorrector),
		errors.Is(err, session.ErrNoChat):
		return http.StatusServiceUnavailable
	case errors.Is(err, stt.ErrEmptyTranscript):
		return http.StatusUnprocessableEntity
	case errors.Is(err, segment.ErrNegativeStart),
		errors.Is(err, segment.ErrEndBeforeStart),
		errors.Is(err, segment.ErrOutOfOrder),
		errors.Is(err, segment.ErrInvalidTime):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON body into v and validates it.
func (h *handlers) decodeJSON(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		return err
	}
	if len(data) > 0 {
		if err := sonic.Unmarshal(data, v); err != nil {
			return &schema.ValidationError{Details: []string{"malformed JSON body: " + err.Error()}}
		}
	}
	return h.validator.Validate(v)
}

// reportView is the JSON shape of a correction report.
type reportView struct {
	*correction.Report
	DurationMs int64 `json:"durationMs"`
}

func viewReport(r *correction.Report) *reportView {
	if r == nil {
		return nil
	}
	return &reportView{Report: r, DurationMs: r.Duration.Milliseconds()}
}
