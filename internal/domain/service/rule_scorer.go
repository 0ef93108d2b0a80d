package service

import (
	"math"

	"github.com/underwritex/riskd/internal/config"
	"github.com/underwritex/riskd/internal/domain/models"
)

// RuleScorer is the deterministic fallback scorer: a weighted sum of feature
// contributions, each individually capped, with explicit bonuses for
// dangerous co-occurrences and a final clamp to [0,1]. It is the system's
// correctness floor when the registry endpoint is unreachable, so its weights
// live in configuration rather than as hidden constants.
type RuleScorer struct {
	w config.ScorerConfig
}

// NewRuleScorer creates a RuleScorer with the given weights.
func NewRuleScorer(weights config.ScorerConfig) *RuleScorer {
	return &RuleScorer{w: weights}
}

// Score is total and side-effect-free. An all-defaults vector scores exactly 0.
func (s *RuleScorer) Score(fv *models.FeatureVector) float64 {
	score := 0.0

	// MIB contributions.
	score += float64(fv.MIB.HitCount) * s.w.MIBHitWeight
	score += math.Min(s.w.MIBCodeCap, float64(fv.MIB.CodeCount)*s.w.MIBCodeWeight)
	if fv.MIB.BMIOver35 {
		score += s.w.MIBBMIOver35Weight
	}
	if fv.MIB.HasCardiacCode {
		score += s.w.MIBCardiacWeight
	}
	if fv.MIB.HasCancerCode {
		score += s.w.MIBCancerWeight
	}
	if fv.MIB.HasSubstanceAbuseCode {
		score += s.w.MIBSubstanceWeight
	}

	// RX contributions.
	score += math.Min(s.w.RXFillCap, float64(fv.RX.TotalFills)*s.w.RXFillWeight)
	score += math.Min(s.w.RXDrugCap, float64(fv.RX.UniqueDrugs)*s.w.RXDrugWeight)
	if fv.RX.DrugOpioid {
		score += s.w.RXOpioidWeight
	}
	if fv.RX.DrugBenzo {
		score += s.w.RXBenzoWeight
	}
	if fv.RX.DrugInsulin {
		score += s.w.RXInsulinWeight
	}

	// Co-occurrence bonuses.
	if fv.RX.FlagOpioidAndBenzo {
		score += s.w.ComboOpioidBenzoBonus
	}
	if fv.RX.FlagHighRiskCombo {
		score += s.w.ComboHighRiskBonus
	}
	if fv.RX.FlagPolypharmacy10 {
		score += s.w.ComboPolypharmacy10Bonus
	}

	return clamp01(score)
}
