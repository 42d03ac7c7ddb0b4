package migrations

import (
	"github.com/NeuralTrust/TrustShield/pkg/infra/database"
	"gorm.io/gorm"
)

// Tables: threat_signals, stream_events, ban_records, alerts,
// correlation_findings, response_action_logs, origin_blocklist, flagged_subjects
func init() {
	database.RegisterMigration(database.Migration{
		ID:   "20261001_security_schema",
		Name: "Create signal, ban, alert, finding and response tables",

		Up: func(db *gorm.DB) error {
			statements := []string{
				`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,

				`CREATE TABLE IF NOT EXISTS threat_signals (
					id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					subject_id       BIGINT,
					origin_address   TEXT NOT NULL,
					category         TEXT NOT NULL,
					occurred_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					related_alert_id UUID
				);`,
				`CREATE INDEX IF NOT EXISTS idx_threat_signals_subject
				ON threat_signals (subject_id) WHERE subject_id IS NOT NULL;`,
				`CREATE INDEX IF NOT EXISTS idx_threat_signals_origin_time
				ON threat_signals (origin_address, occurred_at) WHERE subject_id IS NULL;`,

				`CREATE TABLE IF NOT EXISTS stream_events (
					id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					stream         TEXT NOT NULL,
					subject_id     BIGINT,
					origin_address TEXT NOT NULL DEFAULT '',
					score          DOUBLE PRECISION NOT NULL DEFAULT 0,
					occurred_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);`,
				`CREATE INDEX IF NOT EXISTS idx_stream_events_stream_time
				ON stream_events (stream, occurred_at);`,

				`CREATE TABLE IF NOT EXISTS ban_records (
					id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					subject_type   TEXT NOT NULL,
					ban_key        TEXT NOT NULL,
					subject_id     BIGINT,
					origin_address TEXT,
					reason         TEXT NOT NULL,
					duration       TEXT NOT NULL,
					expires_at     TIMESTAMPTZ,
					is_active      BOOLEAN NOT NULL DEFAULT TRUE,
					created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);`,
				`CREATE UNIQUE INDEX IF NOT EXISTS ux_ban_records_active
				ON ban_records (subject_type, ban_key) WHERE is_active;`,

				`CREATE TABLE IF NOT EXISTS alerts (
					id             UUID PRIMARY KEY,
					rule_name      TEXT NOT NULL,
					metric_key     TEXT NOT NULL,
					observed_value DOUBLE PRECISION NOT NULL,
					threshold      DOUBLE PRECISION NOT NULL,
					severity       TEXT NOT NULL,
					message        TEXT NOT NULL,
					occurred_at    TIMESTAMPTZ NOT NULL,
					metadata       JSONB
				);`,
				`CREATE INDEX IF NOT EXISTS idx_alerts_rule_time ON alerts (rule_name, occurred_at);`,

				`CREATE TABLE IF NOT EXISTS correlation_findings (
					id                 UUID PRIMARY KEY,
					rule_name          TEXT NOT NULL,
					severity           TEXT NOT NULL,
					matched_entities   JSONB NOT NULL,
					match_count        INTEGER NOT NULL,
					recommended_action TEXT NOT NULL,
					status             TEXT NOT NULL DEFAULT 'open',
					bucket             TIMESTAMPTZ NOT NULL,
					signal_ids         UUID[] NOT NULL DEFAULT '{}',
					metadata           JSONB,
					created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);`,
				`CREATE INDEX IF NOT EXISTS idx_correlation_findings_open
				ON correlation_findings (created_at) WHERE status = 'open';`,

				`CREATE TABLE IF NOT EXISTS response_action_logs (
					id          UUID PRIMARY KEY,
					action_type TEXT NOT NULL,
					description TEXT NOT NULL,
					source_kind TEXT NOT NULL,
					source_id   UUID NOT NULL,
					executed_at TIMESTAMPTZ NOT NULL
				);`,
				`CREATE INDEX IF NOT EXISTS idx_response_action_logs_source
				ON response_action_logs (source_id);`,

				`CREATE TABLE IF NOT EXISTS origin_blocklist (
					origin_address TEXT PRIMARY KEY,
					reason         TEXT NOT NULL,
					source_id      UUID NOT NULL,
					created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);`,

				`CREATE TABLE IF NOT EXISTS flagged_subjects (
					subject_id BIGINT PRIMARY KEY,
					reason     TEXT NOT NULL,
					source_id  UUID NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);`,
			}
			for _, stmt := range statements {
				if err := db.Exec(stmt).Error; err != nil {
					return err
				}
			}
			return nil
		},

		Down: func(db *gorm.DB) error {
			tables := []string{
				"flagged_subjects",
				"origin_blocklist",
				"response_action_logs",
				"correlation_findings",
				"alerts",
				"ban_records",
				"stream_events",
				"threat_signals",
			}
			for _, table := range tables {
				if err := db.Exec(`DROP TABLE IF EXISTS ` + table + `;`).Error; err != nil {
					return err
				}
			}
			return nil
		},
	})
}
