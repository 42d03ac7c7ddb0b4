package alert

import (
	"context"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain"
	"github.com/google/uuid"
)

type Alert struct {
	ID            uuid.UUID           `json:"alert_id" gorm:"type:uuid;primaryKey"`
	RuleName      string              `json:"rule_name" gorm:"index"`
	MetricKey     string              `json:"metric_key"`
	ObservedValue float64             `json:"observed_value"`
	Threshold     float64             `json:"threshold"`
	Severity      domain.Severity     `json:"severity"`
	Message       string              `json:"message"`
	OccurredAt    time.Time           `json:"occurred_at" gorm:"index"`
	Metadata      domain.MetadataJSON `json:"metadata" gorm:"type:jsonb"`
}

func (Alert) TableName() string {
	return "public.alerts"
}

type Repository interface {
	Save(ctx context.Context, a *Alert) error
}
