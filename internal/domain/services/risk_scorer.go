package services

import (
	"permguard-lab/internal/domain/models"
)

// RiskScorer turns an app's declared permissions into a risk result
type RiskScorer interface {
	Score(permissions []string) models.RiskResult
}

// PermissionScorer is the default RiskScorer backed by the dangerous-permission table
type PermissionScorer struct{}

// Score implements RiskScorer
func (PermissionScorer) Score(permissions []string) models.RiskResult {
	return ScorePermissions(permissions)
}

// ScorePermissions sums the weight of every dangerous permission in the
// input, clamps the total to 100 and assigns a tier. Flagged permissions
// keep input order; a repeated permission is counted and flagged each time.
func ScorePermissions(permissions []string) models.RiskResult {
	raw := 0
	flagged := make([]string, 0, len(permissions))

	for _, perm := range permissions {
		weight, ok := dangerousPermissionWeights[perm]
		if !ok {
			continue
		}
		raw += weight
		flagged = append(flagged, perm)
	}

	score := min(raw, models.MaxRiskScore)

	return models.RiskResult{
		Score:                score,
		Level:                models.LevelForScore(score),
		DangerousPermissions: flagged,
	}
}
