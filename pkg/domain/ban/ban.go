package ban

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

type SubjectType string

const (
	SubjectAccount SubjectType = "account"
	SubjectOrigin  SubjectType = "origin"
	SubjectBoth    SubjectType = "both"
)

type Duration string

const (
	DurationPermanent Duration = "permanent"
	DurationTemporary Duration = "temporary"
)

// Record is a ban against an account, an origin, or both. At most one active
// record exists per (SubjectType, BanKey).
type Record struct {
	ID            uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	SubjectType   SubjectType `json:"subject_type"`
	BanKey        string      `json:"-"`
	SubjectID     *int64      `json:"subject_id,omitempty"`
	OriginAddress *string     `json:"origin_address,omitempty"`
	Reason        string      `json:"reason"`
	Duration      Duration    `json:"duration"`
	ExpiresAt     *time.Time  `json:"expires_at,omitempty"`
	IsActive      bool        `json:"is_active"`
	CreatedAt     time.Time   `json:"created_at"`
}

func (Record) TableName() string {
	return "public.ban_records"
}

// InEffect reports whether the ban blocks its subject at the given instant.
func (r *Record) InEffect(now time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.ExpiresAt != nil && !now.Before(*r.ExpiresAt) {
		return false
	}
	return true
}

func AccountKey(subjectID int64) string {
	return strconv.FormatInt(subjectID, 10)
}

func OriginKey(origin string) string {
	return origin
}

func NewPermanentAccountBan(subjectID int64, reason string, now time.Time) *Record {
	return &Record{
		ID:          uuid.New(),
		SubjectType: SubjectAccount,
		BanKey:      AccountKey(subjectID),
		SubjectID:   &subjectID,
		Reason:      reason,
		Duration:    DurationPermanent,
		IsActive:    true,
		CreatedAt:   now,
	}
}

func NewPermanentOriginBan(origin string, reason string, now time.Time) *Record {
	return &Record{
		ID:            uuid.New(),
		SubjectType:   SubjectOrigin,
		BanKey:        OriginKey(origin),
		OriginAddress: &origin,
		Reason:        reason,
		Duration:      DurationPermanent,
		IsActive:      true,
		CreatedAt:     now,
	}
}
