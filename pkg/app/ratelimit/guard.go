package ratelimit

import (
	"context"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/domain/ban"
	"github.com/NeuralTrust/TrustShield/pkg/domain/response"
	"github.com/NeuralTrust/TrustShield/pkg/infra/cache"
	"github.com/sirupsen/logrus"
)

const guardCacheTTL = 15 * time.Second

// Guard answers whether an origin is rejected outright, either by the
// remediation blocklist or by an active origin ban.
//
//go:generate mockery --name=Guard --dir=. --output=./mocks --filename=ratelimit_guard_mock.go --case=underscore --with-expecter
type Guard interface {
	IsDenied(ctx context.Context, origin string) (bool, error)
}

type guard struct {
	blocklist   response.BlocklistRepository
	bans        ban.Repository
	memoryCache *cache.TTLMap[bool]
	logger      *logrus.Logger
	now         func() time.Time
}

func NewGuard(
	blocklist response.BlocklistRepository,
	bans ban.Repository,
	logger *logrus.Logger,
) Guard {
	return &guard{
		blocklist:   blocklist,
		bans:        bans,
		memoryCache: cache.NewTTLMap[bool](guardCacheTTL),
		logger:      logger,
		now:         time.Now,
	}
}

func (g *guard) IsDenied(ctx context.Context, origin string) (bool, error) {
	if origin == "" {
		return false, nil
	}
	if denied, found := g.memoryCache.Get(origin); found {
		return denied, nil
	}

	blocked, err := g.blocklist.IsBlocked(ctx, origin)
	if err != nil {
		g.logger.WithError(err).WithField("origin", origin).Warn("blocklist lookup failed")
		return false, err
	}
	if blocked {
		g.memoryCache.Set(origin, true)
		return true, nil
	}

	record, err := g.bans.FindActive(ctx, ban.SubjectOrigin, ban.OriginKey(origin), g.now())
	if err != nil {
		g.logger.WithError(err).WithField("origin", origin).Warn("origin ban lookup failed")
		return false, err
	}
	denied := record != nil
	g.memoryCache.Set(origin, denied)
	return denied, nil
}
