package response

import (
	"context"
	"time"
)

type ActionLogRepository interface {
	Append(ctx context.Context, entry *ActionLog) error
}

type BlocklistRepository interface {
	// InsertIfAbsent reports whether the origin was newly blocked.
	InsertIfAbsent(ctx context.Context, entry *BlockedOrigin) (bool, error)
	IsBlocked(ctx context.Context, origin string) (bool, error)
}

type FlaggedSubjectRepository interface {
	InsertIfAbsent(ctx context.Context, entry *FlaggedSubject) (bool, error)
	IsFlagged(ctx context.Context, subjectID int64) (bool, error)
}

// ThrottleRepository holds time-bounded flags that tighten admission limits.
type ThrottleRepository interface {
	// SetIfAbsent reports whether a new flag was set; an existing flag keeps its expiry.
	SetIfAbsent(ctx context.Context, identifier string, ttl time.Duration) (bool, error)
	IsThrottled(ctx context.Context, identifier string) (bool, error)
}
