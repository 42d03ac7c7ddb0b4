package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Severity orders alerts and findings from Low to Critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// AtLeast reports whether s is as severe as min.
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() >= min.Rank()
}

// EntityKind names the key a correlation groups signals by.
type EntityKind string

const (
	EntityOrigin  EntityKind = "origin_address"
	EntitySubject EntityKind = "subject_id"
)

func (k EntityKind) Valid() bool {
	return k == EntityOrigin || k == EntitySubject
}

// MetadataKey is the closed set of keys attached to alerts and findings.
//
// Alert metadata:   comparator, metric_source, cooldown.
// Finding metadata: stream, window, bucket.
type MetadataKey string

const (
	MetaComparator   MetadataKey = "comparator"
	MetaMetricSource MetadataKey = "metric_source"
	MetaCooldown     MetadataKey = "cooldown"
	MetaStream       MetadataKey = "stream"
	MetaWindow       MetadataKey = "window"
	MetaBucket       MetadataKey = "bucket"
)

type (
	MetadataJSON map[MetadataKey]string
	EntitiesJSON map[EntityKind]string
)

func (m MetadataJSON) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *MetadataJSON) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, m)
}

func (e EntitiesJSON) Value() (driver.Value, error) {
	if e == nil {
		return nil, nil
	}
	return json.Marshal(e)
}

func (e *EntitiesJSON) Scan(value interface{}) error {
	if value == nil {
		*e = nil
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, e)
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("expected []byte, got %T", value)
	}
}

// Remediation is the recommended response for an alert or finding.
type Remediation string

const (
	RemediationBlockOrigin        Remediation = "block_origin"
	RemediationFlagSubject        Remediation = "flag_subject"
	RemediationTightenAdmission   Remediation = "tighten_admission_limits"
	RemediationEscalateToOperator Remediation = "escalate_to_operator"
)

func (r Remediation) Valid() bool {
	switch r {
	case RemediationBlockOrigin, RemediationFlagSubject, RemediationTightenAdmission, RemediationEscalateToOperator:
		return true
	default:
		return false
	}
}
