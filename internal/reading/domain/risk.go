package domain

// RiskLevel is the coarse severity label derived from a reading's maximum SI.
type RiskLevel string

const (
	RiskNormal     RiskLevel = "normal"
	RiskElevated   RiskLevel = "elevated"
	RiskConcerning RiskLevel = "concerning"
)

// Thresholds on siMaximum. Elevated is the closed interval [ElevatedThreshold, ConcerningThreshold].
const (
	ElevatedThreshold   = 0.5
	ConcerningThreshold = 1.0
	// SafeBelow: a reading is safe iff siMaximum < SafeBelow.
	SafeBelow = 1.0
)

// RiskAssessment is derived at read time and never persisted.
type RiskAssessment struct {
	RiskLevel RiskLevel `json:"riskLevel"`
	IsSafe    bool      `json:"isSafe"`
}

// Classify maps a peak SI value to its risk assessment. Every surface that labels
// readings (ingest response, lists, bucketed queries) goes through this function.
func Classify(siMaximum float64) RiskAssessment {
	level := RiskNormal
	switch {
	case siMaximum > ConcerningThreshold:
		level = RiskConcerning
	case siMaximum >= ElevatedThreshold:
		level = RiskElevated
	}
	return RiskAssessment{RiskLevel: level, IsSafe: siMaximum < SafeBelow}
}
