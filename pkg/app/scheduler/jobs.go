package scheduler

import (
	"context"
	"time"

	"github.com/NeuralTrust/TrustShield/pkg/app/alerting"
	"github.com/NeuralTrust/TrustShield/pkg/app/correlator"
	"github.com/NeuralTrust/TrustShield/pkg/app/remediation"
)

// AlertingJob evaluates the alert rules and dispatches what fired.
func AlertingJob(engine alerting.Engine, orchestrator remediation.Orchestrator, interval, timeout time.Duration) Job {
	return Job{
		Name:     JobAlerting,
		Interval: interval,
		Timeout:  timeout,
		Run: func(ctx context.Context) error {
			alerts, err := engine.RunCycle(ctx)
			if err != nil {
				return err
			}
			orchestrator.HandleAlerts(ctx, alerts)
			return nil
		},
	}
}

// CorrelationJob scans the signal streams and dispatches new findings.
func CorrelationJob(engine correlator.Engine, orchestrator remediation.Orchestrator, interval, timeout time.Duration) Job {
	return Job{
		Name:     JobCorrelation,
		Interval: interval,
		Timeout:  timeout,
		Run: func(ctx context.Context) error {
			findings, err := engine.RunCycle(ctx)
			orchestrator.HandleFindings(ctx, findings)
			return err
		},
	}
}

// DrainJob retries findings left open by earlier dispatch failures.
func DrainJob(orchestrator remediation.Orchestrator, interval, timeout time.Duration) Job {
	return Job{
		Name:     JobResponseDrain,
		Interval: interval,
		Timeout:  timeout,
		Run: func(ctx context.Context) error {
			_, err := orchestrator.DrainOpen(ctx)
			return err
		},
	}
}
