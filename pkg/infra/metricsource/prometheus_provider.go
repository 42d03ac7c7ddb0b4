package metricsource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/infra/httpx"
	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/sirupsen/logrus"
)

var ErrNoSample = errors.New("query returned no sample")

type prometheusProvider struct {
	api     v1.API
	queries map[string]string
	breaker httpx.CircuitBreaker
	logger  *logrus.Logger
	now     func() time.Time
}

// NewPrometheusProvider evaluates one instant PromQL query per metric key.
func NewPrometheusProvider(
	address string,
	queries map[string]string,
	breaker httpx.CircuitBreaker,
	logger *logrus.Logger,
) (Provider, error) {
	client, err := api.NewClient(api.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}
	return newPrometheusProvider(v1.NewAPI(client), queries, breaker, logger), nil
}

func newPrometheusProvider(promAPI v1.API, queries map[string]string, breaker httpx.CircuitBreaker, logger *logrus.Logger) *prometheusProvider {
	return &prometheusProvider{
		api:     promAPI,
		queries: queries,
		breaker: breaker,
		logger:  logger,
		now:     time.Now,
	}
}

// Snapshot leaves out metrics whose query failed, so their rules are skipped.
// It errors only when every query failed.
func (p *prometheusProvider) Snapshot(ctx context.Context) (map[string]float64, error) {
	out := make(map[string]float64, len(p.queries))
	var lastErr error
	for key, query := range p.queries {
		var value float64
		err := p.breaker.Execute(func() error {
			v, err := p.query(ctx, query)
			value = v
			return err
		})
		if err != nil {
			lastErr = err
			p.logger.WithError(err).WithField("metric", key).Warn("metric query failed")
			continue
		}
		out[key] = value
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func (p *prometheusProvider) query(ctx context.Context, query string) (float64, error) {
	result, warnings, err := p.api.Query(ctx, query, p.now())
	if err != nil {
		return 0, err
	}
	if len(warnings) > 0 {
		p.logger.WithField("warnings", warnings).Debug("prometheus query warnings")
	}
	switch v := result.(type) {
	case model.Vector:
		if len(v) == 0 {
			return 0, ErrNoSample
		}
		return float64(v[0].Value), nil
	case *model.Scalar:
		return float64(v.Value), nil
	default:
		return 0, fmt.Errorf("unsupported result type %s", result.Type())
	}
}
