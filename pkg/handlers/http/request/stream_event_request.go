package request

import (
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/app/ingest"
)

type StreamEventRequest struct {
	SubjectID     *int64     `json:"subject_id,omitempty"`
	OriginAddress string     `json:"origin_address"`
	Score         float64    `json:"score,omitempty"`
	OccurredAt    *time.Time `json:"occurred_at,omitempty"`
}

func (r *StreamEventRequest) ToEvent() ingest.Event {
	ev := ingest.Event{
		SubjectID:     r.SubjectID,
		OriginAddress: r.OriginAddress,
		Score:         r.Score,
	}
	if r.OccurredAt != nil {
		ev.OccurredAt = r.OccurredAt.UTC()
	}
	return ev
}
