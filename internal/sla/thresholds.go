package sla

import (
	"fmt"
	"os"
	"sort"

	"trade_portal_backend/internal/orders/domain"

	"gopkg.in/yaml.v3"
)

// Threshold is the number of whole days an order may sit in a status
// before it is at risk and before it is breached.
type Threshold struct {
	AtRiskDays int `yaml:"at_risk_days" json:"atRiskDays"`
	BreachDays int `yaml:"breach_days" json:"breachDays"`
}

// Thresholds maps a status to its threshold. Statuses without an entry are always on track.
type Thresholds map[domain.Status]Threshold

// DefaultThresholds returns the built-in table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		domain.StatusOrderConfirmed:   {AtRiskDays: 1, BreachDays: 2},
		domain.StatusPendingPayment:   {AtRiskDays: 3, BreachDays: 7},
		domain.StatusPaymentReceived:  {AtRiskDays: 1, BreachDays: 2},
		domain.StatusPaymentConfirmed: {AtRiskDays: 1, BreachDays: 2},
		domain.StatusProcessing:       {AtRiskDays: 3, BreachDays: 5},
		domain.StatusReadyToShip:      {AtRiskDays: 1, BreachDays: 3},
		domain.StatusShipped:          {AtRiskDays: 5, BreachDays: 10},
		domain.StatusOutForDelivery:   {AtRiskDays: 1, BreachDays: 2},
		domain.StatusOnHold:           {AtRiskDays: 3, BreachDays: 7},
		domain.StatusFailedDelivery:   {AtRiskDays: 1, BreachDays: 3},
	}
}

// Validate rejects unknown statuses, negative values and breach < at-risk.
func (t Thresholds) Validate() error {
	statuses := make([]string, 0, len(t))
	for s := range t {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)

	for _, name := range statuses {
		s := domain.Status(name)
		th := t[s]
		if !s.Valid() {
			return fmt.Errorf("sla thresholds: unknown status %q", name)
		}
		if s.IsTerminal() {
			return fmt.Errorf("sla thresholds: terminal status %q cannot have a threshold", name)
		}
		if th.AtRiskDays < 0 || th.BreachDays < 0 {
			return fmt.Errorf("sla thresholds: %q has a negative value", name)
		}
		if th.BreachDays < th.AtRiskDays {
			return fmt.Errorf("sla thresholds: %q breach_days (%d) is below at_risk_days (%d)", name, th.BreachDays, th.AtRiskDays)
		}
	}
	return nil
}

type thresholdsFile struct {
	Thresholds map[string]Threshold `yaml:"thresholds"`
}

// ParseThresholds decodes a YAML override table and layers it over the defaults.
//
//	thresholds:
//	  processing: {at_risk_days: 2, breach_days: 4}
func ParseThresholds(data []byte) (Thresholds, error) {
	var file thresholdsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("sla thresholds: decode yaml: %w", err)
	}

	merged := DefaultThresholds()
	for name, th := range file.Thresholds {
		merged[domain.Status(name)] = th
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// LoadThresholds reads path, or returns the defaults when path is empty.
func LoadThresholds(path string) (Thresholds, error) {
	if path == "" {
		return DefaultThresholds(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sla thresholds: read %s: %w", path, err)
	}
	return ParseThresholds(data)
}
