package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/snarg/captiond/internal/transcript"
)

// TranscriptRow is a stored transcript. Segments are kept as one JSONB value;
// individual segments are never queried relationally, only rendered together.
type TranscriptRow struct {
	ID           int64                `json:"id"`
	Lane         string               `json:"lane,omitempty"`
	Title        string               `json:"title,omitempty"`
	Segments     []transcript.Segment `json:"segments"`
	SegmentCount int                  `json:"segment_count"`
	Duration     float64              `json:"duration"`
	CreatedAt    time.Time            `json:"created_at"`
}

// SaveTranscript inserts a repaired, normalized transcript and returns its ID.
// Duration is taken as the latest segment end, a lower bound on the real
// audio length.
func (db *DB) SaveTranscript(ctx context.Context, lane, title string, segs []transcript.Segment) (int64, error) {
	payload, err := json.Marshal(segs)
	if err != nil {
		return 0, fmt.Errorf("marshal segments: %w", err)
	}

	var duration float64
	for _, s := range segs {
		if s.End > duration {
			duration = s.End
		}
	}

	var id int64
	err = db.Pool.QueryRow(ctx,
		`INSERT INTO transcripts (lane, title, segments, segment_count, duration)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		lane, title, payload, len(segs), duration,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transcript: %w", err)
	}
	return id, nil
}

// GetTranscript loads one transcript by ID.
func (db *DB) GetTranscript(ctx context.Context, id int64) (*TranscriptRow, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, lane, title, segments, segment_count, duration, created_at
		 FROM transcripts WHERE id = $1`, id)

	var t TranscriptRow
	var payload []byte
	if err := row.Scan(&t.ID, &t.Lane, &t.Title, &payload, &t.SegmentCount, &t.Duration, &t.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &t.Segments); err != nil {
		return nil, fmt.Errorf("decode segments for transcript %d: %w", id, err)
	}
	return &t, nil
}

// ListTranscripts returns transcripts newest first, optionally filtered by
// lane. Segment payloads are omitted from list responses.
func (db *DB) ListTranscripts(ctx context.Context, lane string, limit, offset int) ([]TranscriptRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, lane, title, segment_count, duration, created_at
		 FROM transcripts
		 WHERE ($1 = '' OR lane = $1)
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		lane, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TranscriptRow
	for rows.Next() {
		var t TranscriptRow
		if err := rows.Scan(&t.ID, &t.Lane, &t.Title, &t.SegmentCount, &t.Duration, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTranscript removes a transcript. Returns false if it did not exist.
func (db *DB) DeleteTranscript(ctx context.Context, id int64) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM transcripts WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
