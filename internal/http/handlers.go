package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"transcript-search-service/internal/schema"
	"transcript-search-service/internal/service/correction"
	"transcript-search-service/internal/service/search"
	"transcript-search-service/internal/service/segment"
	"transcript-search-service/internal/service/session"
)

type handlers struct {
	store     *session.Store
	pipeline  *session.Pipeline
	validator *schema.Validator
	maxUpload int64
}

type transcriptView struct {
	SessionID string            `json:"sessionId"`
	Version   string            `json:"version"`
	Text      string            `json:"text"`
	Duration  float64           `json:"duration"`
	Segments  []segment.Segment `json:"segments"`
}

func newTranscriptView(id, version string, idx *segment.Index) transcriptView {
	segs := idx.Segments()
	if segs == nil {
		segs = []segment.Segment{}
	}
	return transcriptView{
		SessionID: id,
		Version:   version,
		Text:      idx.FullText(),
		Duration:  idx.Duration(),
		Segments:  segs,
	}
}

func (h *handlers) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.store.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return nil, false
	}
	return sess, true
}

func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Create()
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Info())
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

func (h *handlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// transcribe accepts a multipart upload with the audio in the "audio" field.
func (h *handlers) transcribe(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("audio upload: %w", err))
		return
	}
	defer file.Close()

	path, cleanup, err := saveUpload(file, header.Filename)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("audio upload: %w", err))
		return
	}
	defer cleanup()

	idx, err := h.pipeline.Transcribe(r.Context(), sess, path)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			// ASR collaborator failures.
			status = http.StatusBadGateway
		}
		writeError(w, r, status, err)
		return
	}
	hlog.FromRequest(r).Info().
		Str("sessionId", sess.ID()).
		Str("file", header.Filename).
		Int("segments", idx.Len()).
		Msg("Audio transcribed")
	writeJSON(w, http.StatusOK, newTranscriptView(sess.ID(), "raw", idx))
}

// saveUpload writes the upload into a private temp dir under the caller's
// base file name, which the session keeps as its source.
func saveUpload(src io.Reader, filename string) (string, func(), error) {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		name = "audio"
	}
	dir, err := os.MkdirTemp("", "upload-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		cleanup()
		return "", nil, err
	}
	if err := dst.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}

func (h *handlers) importTranscript(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req schema.ImportRequest
	if err := h.decodeJSON(r, &req); err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	idx, err := h.pipeline.Import(r.Context(), sess, req.Text, req.Language, req.ToSegments())
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, newTranscriptView(sess.ID(), "raw", idx))
}

// getTranscript returns ?version=raw|corrected|current (default current).
func (h *handlers) getTranscript(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	version := r.URL.Query().Get("version")
	var idx *segment.Index
	switch version {
	case "raw":
		idx = sess.Raw()
	case "corrected":
		idx = sess.Corrected()
	case "", "current":
		version = "current"
		idx, _ = sess.Current()
	default:
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("unknown version %q", version))
		return
	}
	if idx == nil {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("no %s transcript", version))
		return
	}
	writeJSON(w, http.StatusOK, newTranscriptView(sess.ID(), version, idx))
}

type correctResponse struct {
	Report     *reportView    `json:"report"`
	Transcript transcriptView `json:"transcript"`
}

func (h *handlers) correct(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req schema.CorrectRequest
	if err := h.decodeJSON(r, &req); err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	opts := session.CorrectOptions{
		Strategy:    correction.Strategy(req.Strategy),
		BatchSize:   req.BatchSize,
		Separator:   req.Separator,
		Parallelism: req.Parallelism,
	}

	out, report, err := h.pipeline.Correct(r.Context(), sess, opts)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, correctResponse{
		Report:     viewReport(report),
		Transcript: newTranscriptView(sess.ID(), "corrected", out),
	})
}

type searchResponse struct {
	Query   string          `json:"query"`
	Count   int             `json:"count"`
	Results []search.Result `json:"results"`
}

// search handles ?q=...&context=N&threshold=F.
func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	req := schema.SearchRequest{Query: q.Get("q")}
	if v := q.Get("context"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("context: %w", err))
			return
		}
		req.Context = &n
	}
	if v := q.Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("threshold: %w", err))
			return
		}
		req.Threshold = &f
	}
	if err := h.validator.Validate(req); err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}

	opts := h.pipeline.SearchDefaults()
	if req.Context != nil {
		opts.ContextWindow = *req.Context
	}
	if req.Threshold != nil {
		opts.FuzzyThreshold = *req.Threshold
	}

	results, err := h.pipeline.Search(sess, req.Query, &opts)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: req.Query, Count: len(results), Results: results})
}

type chatDelta struct {
	Delta string `json:"delta"`
}

// chat streams the answer as server-sent events: one "data: {delta}" event
// per chunk, then "data: [DONE]". Failures after the stream started are sent
// as an "error" event.
func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if !h.pipeline.ChatEnabled() {
		writeError(w, r, http.StatusServiceUnavailable, session.ErrNoChat)
		return
	}
	var req schema.ChatRequest
	if err := h.decodeJSON(r, &req); err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	if _, err := sess.Current(); err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	_, err := h.pipeline.Chat(r.Context(), sess, req.Question, func(delta string) error {
		data, err := sonic.Marshal(chatDelta{Delta: delta})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		msg, _ := sonic.Marshal(errorBody{Status: "error", Message: err.Error()})
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", msg)
		flusher.Flush()
		return
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func (h *handlers) clearHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}
