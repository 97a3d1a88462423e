// Package ingest feeds raw generation output into the repair pipeline from
// sources other than the HTTP API: MQTT lanes and a drop folder. Each blob
// runs through the same repair, normalize, store path the API uses.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/snarg/captiond/internal/metrics"
	"github.com/snarg/captiond/internal/transcript"
)

// TranscriptStore is the slice of the database layer the pipeline needs.
type TranscriptStore interface {
	SaveTranscript(ctx context.Context, lane, title string, segs []transcript.Segment) (int64, error)
}

// Pipeline repairs and stores raw transcript blobs. It is safe for
// concurrent use: both lanes of a dual-model comparison can push blobs at
// once, since the repair and normalize steps share no state.
type Pipeline struct {
	db  TranscriptStore
	log zerolog.Logger

	ingested atomic.Int64
	rejected atomic.Int64
}

func NewPipeline(db TranscriptStore, log zerolog.Logger) *Pipeline {
	return &Pipeline{db: db, log: log}
}

// Ingest repairs one blob and stores the result under the given lane.
// source labels the arrival path for metrics ("mqtt", "drop", "http").
// Partial recovery is success; only zero-record blobs are rejected.
func (p *Pipeline) Ingest(ctx context.Context, source, lane, title string, blob []byte) (int64, error) {
	records, stage, err := transcript.Repair(string(blob))
	if err != nil {
		p.rejected.Add(1)
		reason := "unrecoverable"
		if errors.Is(err, transcript.ErrEmptyResponse) {
			reason = "empty"
		}
		metrics.RepairFailuresTotal.WithLabelValues(reason).Inc()
		return 0, fmt.Errorf("repair blob from %s lane %q: %w", source, lane, err)
	}
	metrics.RepairsTotal.WithLabelValues(string(stage)).Inc()

	segs := transcript.Normalize(records)
	metrics.SegmentsRecoveredTotal.Add(float64(len(segs)))
	metrics.IngestMessagesTotal.WithLabelValues(source).Inc()

	id, err := p.db.SaveTranscript(ctx, lane, title, segs)
	if err != nil {
		return 0, fmt.Errorf("store transcript: %w", err)
	}

	p.ingested.Add(1)
	p.log.Info().
		Str("source", source).
		Str("lane", lane).
		Int64("transcript_id", id).
		Int("segments", len(segs)).
		Msg("transcript ingested")
	return id, nil
}

// Stats reports lifetime pipeline counts.
func (p *Pipeline) Stats() (ingested, rejected int64) {
	return p.ingested.Load(), p.rejected.Load()
}

// HandleMQTT adapts the pipeline to the mqtt client's message callback.
// The lane is the topic's final level: transcripts/<lane>.
func (p *Pipeline) HandleMQTT(topic string, payload []byte) {
	lane := topic
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		lane = topic[i+1:]
	}
	if _, err := p.Ingest(context.Background(), "mqtt", lane, "", payload); err != nil {
		p.log.Warn().Err(err).Str("topic", topic).Msg("mqtt blob rejected")
	}
}
