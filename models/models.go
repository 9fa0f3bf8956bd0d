package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Label is the classification returned by the fraud service
type Label string

const (
	LabelFraud    Label = "Fraud"
	LabelNotFraud Label = "Not Fraud"
)

// ProbabilityTolerance is how far FraudProb+NotFraudProb may drift from 100
const ProbabilityTolerance = 0.5

// ParseLabel accepts the spellings the classification service is known to use
func ParseLabel(s string) (Label, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(normalized)

	switch normalized {
	case "fraud":
		return LabelFraud, nil
	case "notfraud":
		return LabelNotFraud, nil
	}
	return "", fmt.Errorf("unknown label %q", s)
}

func (l Label) IsFraud() bool {
	return l == LabelFraud
}

func (l Label) String() string {
	return string(l)
}

// UnmarshalJSON normalizes the label so "NotFraud" and "Not Fraud" compare equal
func (l *Label) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseLabel(raw)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// PredictionResult represents the response of the classification service
type PredictionResult struct {
	Label        Label   `json:"label"`
	Confidence   float64 `json:"confidence"`     // percent, 0..100
	FraudProb    float64 `json:"fraud_prob"`     // percent, 0..100
	NotFraudProb float64 `json:"not_fraud_prob"` // percent, 0..100
}

// Validate reports percentages outside [0, 100] or probabilities that do not add up to 100.
// The client only logs these; the service's numbers are taken as given.
func (r PredictionResult) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"confidence", r.Confidence},
		{"fraud_prob", r.FraudProb},
		{"not_fraud_prob", r.NotFraudProb},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || f.value < 0 || f.value > 100 {
			return fmt.Errorf("%s out of range: %v", f.name, f.value)
		}
	}

	if sum := r.FraudProb + r.NotFraudProb; math.Abs(sum-100) > ProbabilityTolerance {
		return fmt.Errorf("probabilities sum to %.2f, expected 100", sum)
	}
	return nil
}

// HistoryRecord pairs a submitted conversation with its classification
type HistoryRecord struct {
	ID           string           `json:"id"`
	Conversation string           `json:"conversation"`
	Result       PredictionResult `json:"result"`
	CreatedAt    time.Time        `json:"timestamp"`
}
