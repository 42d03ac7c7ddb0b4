package remediation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain"
	"github.com/NeuralTrust/TrustShield/pkg/domain/response"
	"github.com/NeuralTrust/TrustShield/pkg/infra/notifier"
	"github.com/google/uuid"
)

var ErrMissingEntity = errors.New("item carries no entity for this playbook")

// Target is what a playbook acts on, resolved from an alert or finding.
type Target struct {
	SourceKind response.SourceKind
	SourceID   uuid.UUID
	RuleName   string
	Severity   domain.Severity
	Origin     string
	Subject    string
	Summary    string
}

// Outcome reports whether a playbook changed shared state.
type Outcome struct {
	Changed     bool
	Description string
}

//go:generate mockery --name=Playbook --dir=. --output=./mocks --filename=playbook_mock.go --case=underscore --with-expecter
type Playbook interface {
	Action() response.ActionType
	Execute(ctx context.Context, t Target) (Outcome, error)
}

type blockOrigin struct {
	blocklist response.BlocklistRepository
	now       func() time.Time
}

func NewBlockOriginPlaybook(blocklist response.BlocklistRepository, now func() time.Time) Playbook {
	return &blockOrigin{blocklist: blocklist, now: now}
}

func (p *blockOrigin) Action() response.ActionType { return response.ActionBlockOrigin }

func (p *blockOrigin) Execute(ctx context.Context, t Target) (Outcome, error) {
	if t.Origin == "" {
		return Outcome{}, fmt.Errorf("%w: %s", ErrMissingEntity, domain.EntityOrigin)
	}
	inserted, err := p.blocklist.InsertIfAbsent(ctx, &response.BlockedOrigin{
		OriginAddress: t.Origin,
		Reason:        t.Summary,
		SourceID:      t.SourceID,
		CreatedAt:     p.now(),
	})
	if err != nil {
		return Outcome{}, err
	}
	if !inserted {
		return Outcome{Description: fmt.Sprintf("origin %s already blocked (%s)", t.Origin, t.Summary)}, nil
	}
	return Outcome{Changed: true, Description: fmt.Sprintf("blocked origin %s: %s", t.Origin, t.Summary)}, nil
}

type flagSubject struct {
	flags response.FlaggedSubjectRepository
	now   func() time.Time
}

func NewFlagSubjectPlaybook(flags response.FlaggedSubjectRepository, now func() time.Time) Playbook {
	return &flagSubject{flags: flags, now: now}
}

func (p *flagSubject) Action() response.ActionType { return response.ActionFlagSubject }

func (p *flagSubject) Execute(ctx context.Context, t Target) (Outcome, error) {
	if t.Subject == "" {
		return Outcome{}, fmt.Errorf("%w: %s", ErrMissingEntity, domain.EntitySubject)
	}
	subjectID, err := strconv.ParseInt(t.Subject, 10, 64)
	if err != nil {
		return Outcome{}, fmt.Errorf("invalid subject id %q: %w", t.Subject, err)
	}
	inserted, err := p.flags.InsertIfAbsent(ctx, &response.FlaggedSubject{
		SubjectID: subjectID,
		Reason:    t.Summary,
		SourceID:  t.SourceID,
		CreatedAt: p.now(),
	})
	if err != nil {
		return Outcome{}, err
	}
	if !inserted {
		return Outcome{Description: fmt.Sprintf("subject %d already flagged (%s)", subjectID, t.Summary)}, nil
	}
	return Outcome{Changed: true, Description: fmt.Sprintf("flagged subject %d: %s", subjectID, t.Summary)}, nil
}

type throttleOrigin struct {
	throttles response.ThrottleRepository
	duration  time.Duration
}

func NewThrottleOriginPlaybook(throttles response.ThrottleRepository, duration time.Duration) Playbook {
	return &throttleOrigin{throttles: throttles, duration: duration}
}

func (p *throttleOrigin) Action() response.ActionType { return response.ActionThrottleOrigin }

func (p *throttleOrigin) Execute(ctx context.Context, t Target) (Outcome, error) {
	if t.Origin == "" {
		return Outcome{}, fmt.Errorf("%w: %s", ErrMissingEntity, domain.EntityOrigin)
	}
	set, err := p.throttles.SetIfAbsent(ctx, t.Origin, p.duration)
	if err != nil {
		return Outcome{}, err
	}
	if !set {
		return Outcome{Description: fmt.Sprintf("origin %s already throttled (%s)", t.Origin, t.Summary)}, nil
	}
	return Outcome{
		Changed:     true,
		Description: fmt.Sprintf("throttled origin %s for %s: %s", t.Origin, p.duration, t.Summary),
	}, nil
}

type notifyOperator struct {
	notifier notifier.Notifier
	now      func() time.Time
}

// NewNotifyOperatorPlaybook never mutates state. A failed delivery is
// recorded in the outcome description.
func NewNotifyOperatorPlaybook(n notifier.Notifier, now func() time.Time) Playbook {
	return &notifyOperator{notifier: n, now: now}
}

func (p *notifyOperator) Action() response.ActionType { return response.ActionNotifyOperator }

func (p *notifyOperator) Execute(ctx context.Context, t Target) (Outcome, error) {
	err := p.notifier.Notify(ctx, notifier.Notification{
		Title:      t.RuleName,
		Severity:   string(t.Severity),
		SourceKind: string(t.SourceKind),
		SourceID:   t.SourceID.String(),
		Message:    t.Summary,
		SentAt:     p.now(),
	})
	if err != nil {
		return Outcome{Description: fmt.Sprintf("operator notification failed (%v): %s", err, t.Summary)}, nil
	}
	return Outcome{Description: fmt.Sprintf("operator notified: %s", t.Summary)}, nil
}
