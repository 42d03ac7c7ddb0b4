package signal

import (
	"time"

	"github.com/google/uuid"
)

// AttackCategory is the kind of attack reported by an upstream detector.
type AttackCategory string

const (
	CrossSiteScript    AttackCategory = "xss"
	SqlInjection       AttackCategory = "sql_injection"
	CommandInjection   AttackCategory = "command_injection"
	BruteForce         AttackCategory = "brute_force"
	UnauthorizedAccess AttackCategory = "unauthorized_access"
	ApiAbuse           AttackCategory = "api_abuse"
	RateLimitExceeded  AttackCategory = "rate_limit_exceeded"
	PenetrationTest    AttackCategory = "penetration_test"
)

var closedAttackTypes = map[AttackCategory]struct{}{
	CrossSiteScript:    {},
	SqlInjection:       {},
	CommandInjection:   {},
	BruteForce:         {},
	UnauthorizedAccess: {},
	ApiAbuse:           {},
	RateLimitExceeded:  {},
	PenetrationTest:    {},
}

// Qualifies reports whether the category counts toward escalation.
func (c AttackCategory) Qualifies() bool {
	_, ok := closedAttackTypes[c]
	return ok
}

// ThreatSignal is one reported attack attempt. Rows are append-only.
type ThreatSignal struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	SubjectID      *int64         `json:"subject_id,omitempty" gorm:"index"`
	OriginAddress  string         `json:"origin_address" gorm:"index"`
	Category       AttackCategory `json:"category"`
	OccurredAt     time.Time      `json:"occurred_at" gorm:"index"`
	RelatedAlertID *uuid.UUID     `json:"related_alert_id,omitempty" gorm:"type:uuid"`
}

func (ThreatSignal) TableName() string {
	return "public.threat_signals"
}

// Authenticated reports whether the signal is attributed to a subject.
func (s *ThreatSignal) Authenticated() bool {
	return s.SubjectID != nil
}

// Stream names a raw signal stream queried by the correlation engine.
type Stream string

const (
	StreamFailedLogin        Stream = "failed_login"
	StreamHighRiskScore      Stream = "high_risk_score"
	StreamRateLimitViolation Stream = "rate_limit_violation"
)

func (s Stream) Valid() bool {
	switch s {
	case StreamFailedLogin, StreamHighRiskScore, StreamRateLimitViolation:
		return true
	default:
		return false
	}
}

// StreamEvent is a single raw event on one of the correlation streams.
type StreamEvent struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Stream        Stream    `json:"stream" gorm:"index:idx_stream_events_stream_time,priority:1"`
	SubjectID     *int64    `json:"subject_id,omitempty"`
	OriginAddress string    `json:"origin_address"`
	Score         float64   `json:"score,omitempty"`
	OccurredAt    time.Time `json:"occurred_at" gorm:"index:idx_stream_events_stream_time,priority:2"`
}

func (StreamEvent) TableName() string {
	return "public.stream_events"
}
