package correlation

import (
	"context"
	"fmt"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain"
	"github.com/NeuralTrust/TrustShield/pkg/infra/database/types"
	"github.com/google/uuid"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// findingNamespace seeds deterministic finding IDs.
var findingNamespace = uuid.MustParse("6f1c1f0e-6a51-4c4a-9d0b-5c1b7f2e9a10")

type Finding struct {
	ID                uuid.UUID           `json:"finding_id" gorm:"type:uuid;primaryKey"`
	RuleName          string              `json:"rule_name" gorm:"index"`
	Severity          domain.Severity     `json:"severity"`
	MatchedEntities   domain.EntitiesJSON `json:"matched_entities" gorm:"type:jsonb"`
	MatchCount        int                 `json:"match_count"`
	RecommendedAction domain.Remediation  `json:"recommended_action"`
	Status            Status              `json:"status" gorm:"index"`
	Bucket            time.Time           `json:"bucket"`
	SignalIDs         types.UUIDArray     `json:"signal_ids" gorm:"column:signal_ids;type:uuid[]"`
	Metadata          domain.MetadataJSON `json:"metadata" gorm:"type:jsonb"`
	CreatedAt         time.Time           `json:"created_at"`
}

func (Finding) TableName() string {
	return "public.correlation_findings"
}

// FindingID derives the finding identity from rule, entity and firing bucket,
// so repeated scans of the same bucket address the same row.
func FindingID(ruleName, entity string, bucket time.Time) uuid.UUID {
	return uuid.NewSHA1(findingNamespace, []byte(fmt.Sprintf("%s|%s|%d", ruleName, entity, bucket.Unix())))
}

// Bucket truncates the firing time to the rule window.
func Bucket(firedAt time.Time, window time.Duration) time.Time {
	if window <= 0 {
		return firedAt.UTC()
	}
	return firedAt.UTC().Truncate(window)
}

func (f *Finding) Origin() string {
	return f.MatchedEntities[domain.EntityOrigin]
}

func (f *Finding) Subject() string {
	return f.MatchedEntities[domain.EntitySubject]
}

type Repository interface {
	// SaveIfAbsent inserts the finding keyed by its ID and reports whether it was new.
	SaveIfAbsent(ctx context.Context, f *Finding) (bool, error)
	ListOpen(ctx context.Context, limit int) ([]Finding, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
}
