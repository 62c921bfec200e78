package domain

import "time"

// Reading is one sensor sample as persisted. Immutable once created.
type Reading struct {
	ID             string    `json:"id"`
	SIAverage      float64   `json:"siAverage"`
	SIMinimum      float64   `json:"siMinimum"`
	SIMaximum      float64   `json:"siMaximum"`
	Battery        float64   `json:"battery"` // percent, 0..100
	SignalStrength string    `json:"signalStrength"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Fields are the caller-supplied values for a new reading; ID and CreatedAt are assigned on insert.
type Fields struct {
	SIAverage      float64
	SIMinimum      float64
	SIMaximum      float64
	Battery        float64
	SignalStrength string
}

// Risk classifies the reading by its peak intensity.
func (r Reading) Risk() RiskAssessment {
	return Classify(r.SIMaximum)
}

// Assessed is a reading together with its derived risk, as returned to callers.
type Assessed struct {
	Reading
	RiskAssessment
}

// Assess attaches the risk assessment to r.
func Assess(r Reading) Assessed {
	return Assessed{Reading: r, RiskAssessment: r.Risk()}
}
