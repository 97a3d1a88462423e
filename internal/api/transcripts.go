package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"github.com/snarg/captiond/internal/artifact"
	"github.com/snarg/captiond/internal/database"
	"github.com/snarg/captiond/internal/export"
	"github.com/snarg/captiond/internal/metrics"
	"github.com/snarg/captiond/internal/transcript"
)

// TranscriptStore is the slice of the database layer the handlers use.
// nil when the service runs stateless.
type TranscriptStore interface {
	SaveTranscript(ctx context.Context, lane, title string, segs []transcript.Segment) (int64, error)
	GetTranscript(ctx context.Context, id int64) (*database.TranscriptRow, error)
	ListTranscripts(ctx context.Context, lane string, limit, offset int) ([]database.TranscriptRow, error)
	DeleteTranscript(ctx context.Context, id int64) (bool, error)
}

// TranscriptsHandler serves the repair/export/resolve operations and the
// stored-transcript CRUD around them.
type TranscriptsHandler struct {
	store      TranscriptStore
	artifacts  artifact.Store
	defaultGap float64
}

func NewTranscriptsHandler(store TranscriptStore, artifacts artifact.Store, defaultGap float64) *TranscriptsHandler {
	return &TranscriptsHandler{store: store, artifacts: artifacts, defaultGap: defaultGap}
}

func (h *TranscriptsHandler) Routes(r chi.Router) {
	// Stateless pipeline operations.
	r.Post("/repair", h.RepairBlob)
	r.Post("/export", h.ExportSegments)
	r.Post("/resolve", h.ResolveActive)

	// Stored transcripts.
	r.Post("/transcripts", h.CreateTranscript)
	r.Get("/transcripts", h.ListTranscripts)
	r.Get("/transcripts/{id}", h.GetTranscript)
	r.Delete("/transcripts/{id}", h.DeleteTranscript)
	r.Get("/transcripts/{id}/export", h.ExportTranscript)
}

// segmentView is a canonical segment plus its display timestamps.
type segmentView struct {
	transcript.Segment
	StartDisplay string `json:"startDisplay"`
	EndDisplay   string `json:"endDisplay"`
}

func viewOf(segs []transcript.Segment) []segmentView {
	out := make([]segmentView, len(segs))
	for i, s := range segs {
		out[i] = segmentView{
			Segment:      s,
			StartDisplay: transcript.FormatTimestamp(s.Start),
			EndDisplay:   transcript.FormatTimestamp(s.End),
		}
	}
	return out
}

// RepairBlob runs the repair cascade and normalization on a raw blob without
// storing anything.
func (h *TranscriptsHandler) RepairBlob(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Raw string `json:"raw"`
	}
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	segs, ok := h.repair(w, body.Raw)
	if !ok {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"segments": viewOf(segs),
		"total":    len(segs),
	})
}

// repair maps the two fatal repair conditions to their HTTP shape. A zero
// return with ok=false means the response has been written.
func (h *TranscriptsHandler) repair(w http.ResponseWriter, raw string) ([]transcript.Segment, bool) {
	records, stage, err := transcript.Repair(raw)
	if err != nil {
		switch {
		case errors.Is(err, transcript.ErrEmptyResponse):
			metrics.RepairFailuresTotal.WithLabelValues("empty").Inc()
			WriteError(w, http.StatusUnprocessableEntity, transcript.ErrEmptyResponse.Error())
		case errors.Is(err, transcript.ErrUnrecoverable):
			metrics.RepairFailuresTotal.WithLabelValues("unrecoverable").Inc()
			WriteError(w, http.StatusUnprocessableEntity, transcript.ErrUnrecoverable.Error())
		default:
			WriteError(w, http.StatusInternalServerError, "repair failed")
		}
		return nil, false
	}

	metrics.RepairsTotal.WithLabelValues(string(stage)).Inc()
	segs := transcript.Normalize(records)
	metrics.SegmentsRecoveredTotal.Add(float64(len(segs)))
	return segs, true
}

type exportRequest struct {
	Segments []transcript.Segment `json:"segments"`
	Format   string               `json:"format"`
	Variant  string               `json:"variant,omitempty"`
	Gap      float64              `json:"gapSeconds,omitempty"`
	Duration float64              `json:"duration,omitempty"`
}

// ExportSegments renders a segment list handed in by the caller.
func (h *TranscriptsHandler) ExportSegments(w http.ResponseWriter, r *http.Request) {
	var body exportRequest
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.render(w, r, body.Segments, body.Format, body.Variant, body.Gap, body.Duration, nil)
}

// render validates the selectors and writes the rendered document. row is
// non-nil when rendering a stored transcript and save=true should persist
// the artifact.
func (h *TranscriptsHandler) render(w http.ResponseWriter, r *http.Request,
	segs []transcript.Segment, format, variant string, gap, duration float64,
	row *database.TranscriptRow,
) {
	f := export.Format(format)
	if !validFormat(f) {
		WriteErrorDetail(w, http.StatusBadRequest, "unsupported format", format)
		return
	}

	v := transcript.VariantOriginal
	if variant == string(transcript.VariantTranslated) {
		v = transcript.VariantTranslated
	} else if variant != "" && variant != string(transcript.VariantOriginal) {
		WriteErrorDetail(w, http.StatusBadRequest, "unsupported variant", variant)
		return
	}

	if gap <= 0 {
		gap = h.defaultGap
	}

	doc, err := export.Export(segs, f, v, export.Options{GapSeconds: gap, TotalDuration: duration})
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.ExportsTotal.WithLabelValues(string(f)).Inc()

	if row != nil && r.URL.Query().Get("save") == "true" && h.artifacts != nil {
		key := artifact.Key(row.Lane, row.CreatedAt, row.ID, f.Extension())
		if err := h.artifacts.Save(r.Context(), key, []byte(doc), f.ContentType()); err != nil {
			hlog.FromRequest(r).Error().Err(err).Str("key", key).Msg("artifact save failed")
		} else {
			w.Header().Set("X-Artifact-Key", key)
			if url, err := h.artifacts.URL(r.Context(), key); err == nil && url != "" {
				w.Header().Set("X-Artifact-URL", url)
			}
		}
	}

	w.Header().Set("Content-Type", f.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc))
}

func validFormat(f export.Format) bool {
	for _, known := range export.Formats() {
		if f == known {
			return true
		}
	}
	return false
}

// ResolveActive returns the active segment index for a playhead position.
func (h *TranscriptsHandler) ResolveActive(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Segments []transcript.Segment `json:"segments"`
		Playhead float64              `json:"playhead"`
	}
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res := transcript.NewResolver(body.Segments)
	WriteJSON(w, http.StatusOK, map[string]any{
		"index": res.Active(body.Playhead),
	})
}

// CreateTranscript repairs a raw blob and stores the normalized result.
func (h *TranscriptsHandler) CreateTranscript(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		WriteError(w, http.StatusServiceUnavailable, "transcript store not configured")
		return
	}

	var body struct {
		Raw   string `json:"raw"`
		Lane  string `json:"lane,omitempty"`
		Title string `json:"title,omitempty"`
	}
	if err := DecodeJSON(r, &body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	segs, ok := h.repair(w, body.Raw)
	if !ok {
		return
	}
	metrics.IngestMessagesTotal.WithLabelValues("http").Inc()

	id, err := h.store.SaveTranscript(r.Context(), body.Lane, body.Title, segs)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("save transcript failed")
		WriteError(w, http.StatusInternalServerError, "failed to store transcript")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"id":       id,
		"segments": viewOf(segs),
		"total":    len(segs),
	})
}

func (h *TranscriptsHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		WriteError(w, http.StatusServiceUnavailable, "transcript store not configured")
		return
	}
	id, err := PathInt64(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid transcript ID")
		return
	}

	row, err := h.store.GetTranscript(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "transcript not found")
		return
	}
	WriteJSON(w, http.StatusOK, row)
}

func (h *TranscriptsHandler) ListTranscripts(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		WriteError(w, http.StatusServiceUnavailable, "transcript store not configured")
		return
	}

	p := ParsePagination(r)
	rows, err := h.store.ListTranscripts(r.Context(), r.URL.Query().Get("lane"), p.Limit, p.Offset)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("list transcripts failed")
		WriteError(w, http.StatusInternalServerError, "failed to list transcripts")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"transcripts": rows,
		"total":       len(rows),
	})
}

func (h *TranscriptsHandler) DeleteTranscript(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		WriteError(w, http.StatusServiceUnavailable, "transcript store not configured")
		return
	}
	id, err := PathInt64(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid transcript ID")
		return
	}

	deleted, err := h.store.DeleteTranscript(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to delete transcript")
		return
	}
	if !deleted {
		WriteError(w, http.StatusNotFound, "transcript not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportTranscript renders a stored transcript. Query params: format
// (required), variant, gap, duration, save.
func (h *TranscriptsHandler) ExportTranscript(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		WriteError(w, http.StatusServiceUnavailable, "transcript store not configured")
		return
	}
	id, err := PathInt64(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid transcript ID")
		return
	}

	row, err := h.store.GetTranscript(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "transcript not found")
		return
	}

	// The stored duration is only a lower bound from segment ends, so it
	// cannot stand in for the real audio duration: absent an explicit
	// duration the lyric renderer must treat it as unknown.
	q := r.URL.Query()
	h.render(w, r, row.Segments, q.Get("format"), q.Get("variant"),
		queryFloat(q.Get("gap")), queryFloat(q.Get("duration")), row)
}

func queryFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
