package models

// RiskLevel represents the severity tier of an app's permission risk
type RiskLevel string

const (
	RiskLevelNone   RiskLevel = "NONE"
	RiskLevelLow    RiskLevel = "LOW"
	RiskLevelMedium RiskLevel = "MEDIUM"
	RiskLevelHigh   RiskLevel = "HIGH"
)

// Score thresholds, inclusive at the lower bound of each tier
const (
	MaxRiskScore        = 100
	HighRiskThreshold   = 70
	MediumRiskThreshold = 35
)

// Rank orders tiers from NONE (0) to HIGH (3). Unknown levels rank -1.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskLevelNone:
		return 0
	case RiskLevelLow:
		return 1
	case RiskLevelMedium:
		return 2
	case RiskLevelHigh:
		return 3
	default:
		return -1
	}
}

// IsValid reports whether l is one of the four known tiers
func (l RiskLevel) IsValid() bool {
	return l.Rank() >= 0
}

func (l RiskLevel) String() string {
	return string(l)
}

// LevelForScore maps a clamped score to its tier
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= HighRiskThreshold:
		return RiskLevelHigh
	case score >= MediumRiskThreshold:
		return RiskLevelMedium
	case score > 0:
		return RiskLevelLow
	default:
		return RiskLevelNone
	}
}

// RiskResult is the scorer's output for one app
type RiskResult struct {
	Score                int       `json:"score"`
	Level                RiskLevel `json:"level"`
	DangerousPermissions []string  `json:"dangerousPermissions"`
}

// DangerousPermission is one entry of the dangerous-permission catalogue
type DangerousPermission struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Weight int    `json:"weight"`
}
