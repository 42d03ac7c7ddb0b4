package request

import (
	"errors"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain/signal"
)

type RecordSignalRequest struct {
	SubjectID     *int64     `json:"subject_id,omitempty"`
	OriginAddress string     `json:"origin_address"`
	Category      string     `json:"category"`
	OccurredAt    *time.Time `json:"occurred_at,omitempty"`
}

func (r *RecordSignalRequest) Validate() error {
	if r.Category == "" {
		return errors.New("category is required")
	}
	if r.SubjectID == nil && r.OriginAddress == "" {
		return errors.New("subject_id or origin_address is required")
	}
	return nil
}

func (r *RecordSignalRequest) ToSignal() *signal.ThreatSignal {
	s := &signal.ThreatSignal{
		SubjectID:     r.SubjectID,
		OriginAddress: r.OriginAddress,
		Category:      signal.AttackCategory(r.Category),
	}
	if r.OccurredAt != nil {
		s.OccurredAt = r.OccurredAt.UTC()
	}
	return s
}
