package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/NeuralTrust/TrustShield/pkg/domain"
	"github.com/NeuralTrust/TrustShield/pkg/domain/alert"
	"github.com/NeuralTrust/TrustShield/pkg/domain/correlation"
	"github.com/NeuralTrust/TrustShield/pkg/domain/response"
	"gopkg.in/yaml.v3"
)

// RuleSet is the alert, correlation and routing definitions loaded at startup.
type RuleSet struct {
	AlertRules       []alert.Rule       `yaml:"alert_rules"`
	CorrelationRules []correlation.Rule `yaml:"correlation_rules"`
	AlertRoutes      []response.Route   `yaml:"alert_routes"`
}

// DefaultRuleSet returns the built-in rules.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		AlertRules:       alert.DefaultRules(),
		CorrelationRules: correlation.DefaultRules(),
		AlertRoutes:      response.DefaultRoutes(),
	}
}

// LoadRules reads a rules file. An empty path yields the built-in rules. A
// section missing from the file falls back to its built-in rules.
func LoadRules(path string) (RuleSet, error) {
	if path == "" {
		return DefaultRuleSet(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (RuleSet, error) {
	var set RuleSet
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&set); err != nil && !errors.Is(err, io.EOF) {
		return RuleSet{}, fmt.Errorf("%w: %w", domain.ErrInvalidRule, err)
	}
	if set.AlertRules == nil {
		set.AlertRules = alert.DefaultRules()
	}
	if set.CorrelationRules == nil {
		set.CorrelationRules = correlation.DefaultRules()
	}
	if set.AlertRoutes == nil {
		set.AlertRoutes = response.DefaultRoutes()
	}
	if err := set.Validate(); err != nil {
		return RuleSet{}, err
	}
	return set, nil
}

func (s RuleSet) Validate() error {
	seen := make(map[string]struct{}, len(s.AlertRules))
	for _, r := range s.AlertRules {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("%w: duplicate alert rule %s", domain.ErrInvalidRule, r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	seen = make(map[string]struct{}, len(s.CorrelationRules))
	for _, r := range s.CorrelationRules {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("%w: duplicate correlation rule %s", domain.ErrInvalidRule, r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	for _, r := range s.AlertRoutes {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}
