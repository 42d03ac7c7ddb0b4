package response

import (
	"time"

	"github.com/google/uuid"
)

type ActionType string

const (
	ActionBlockOrigin    ActionType = "BlockOrigin"
	ActionFlagSubject    ActionType = "FlagSubject"
	ActionThrottleOrigin ActionType = "ThrottleOrigin"
	ActionNotifyOperator ActionType = "NotifyOperator"
)

type SourceKind string

const (
	SourceAlert   SourceKind = "alert"
	SourceFinding SourceKind = "finding"
)

// ActionLog is the audit entry for one executed playbook step. Entries are
// append-only and may repeat for the same source.
type ActionLog struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ActionType  ActionType `json:"action_type"`
	Description string     `json:"description"`
	SourceKind  SourceKind `json:"source_kind"`
	SourceID    uuid.UUID  `json:"source_id" gorm:"type:uuid;index"`
	ExecutedAt  time.Time  `json:"executed_at"`
}

func (ActionLog) TableName() string {
	return "public.response_action_logs"
}

type BlockedOrigin struct {
	OriginAddress string    `json:"origin_address" gorm:"primaryKey"`
	Reason        string    `json:"reason"`
	SourceID      uuid.UUID `json:"source_id" gorm:"type:uuid"`
	CreatedAt     time.Time `json:"created_at"`
}

func (BlockedOrigin) TableName() string {
	return "public.origin_blocklist"
}

type FlaggedSubject struct {
	SubjectID int64     `json:"subject_id" gorm:"primaryKey"`
	Reason    string    `json:"reason"`
	SourceID  uuid.UUID `json:"source_id" gorm:"type:uuid"`
	CreatedAt time.Time `json:"created_at"`
}

func (FlaggedSubject) TableName() string {
	return "public.flagged_subjects"
}
