// Package models defines the request-scoped domain entities of the riskd
// inference pipeline: feature vectors, inference results, and prediction
// records.
package models

// FeatureVector is the fixed-shape set of features derived from the two XML
// payloads of a scoring request. It is produced fresh per request and never
// mutated after extraction. The zero value of every field is its documented
// default: counts 0, aggregates 0.0, flags false. An empty or malformed
// document therefore yields a valid all-defaults vector.
type FeatureVector struct {
	MIB MIBFeatures
	RX  RXFeatures

	// Cross-document combination flags: a flag from each document ANDed
	// together. These exist because the co-occurrence carries more signal
	// than either flag alone.

	// ComboDiabetesConfirmed is set when the MIB report carries a diabetes
	// condition code and the RX history shows insulin or metformin fills.
	ComboDiabetesConfirmed bool

	// ComboSubstanceRisk is set when the MIB report carries a substance-abuse
	// code and the RX history shows opioid fills.
	ComboSubstanceRisk bool
}

// MIBFeatures are derived from the MIB (Medical Information Bureau) XML.
type MIBFeatures struct {
	// Core metrics.
	CodeCount    int
	TotalRecords int
	HitCount     int
	HasHit       bool

	// BMI aggregates over all <BMI> values in the document.
	AvgBMI    float64
	MaxBMI    float64
	MinBMI    float64
	BMIOver30 bool
	BMIOver35 bool

	// Condition code category flags.
	HasCardiacCode        bool
	HasDiabetesCode       bool
	HasCancerCode         bool
	HasRespiratoryCode    bool
	HasMentalHealthCode   bool
	HasSubstanceAbuseCode bool

	// Derived indicators.
	HighRiskCodeCount int
	RiskScore         float64
}

// RXFeatures are derived from the prescription-history XML.
type RXFeatures struct {
	// Core metrics.
	TotalFills        int
	UniqueDrugs       int
	UniqueSpecialties int

	// Drug class flags.
	DrugStatin         bool
	DrugMetformin      bool
	DrugInsulin        bool
	DrugOpioid         bool
	DrugBenzo          bool
	DrugAntidepressant bool
	DrugAntipsychotic  bool
	DrugBloodThinner   bool
	DrugGabapentin     bool
	DrugSuboxone       bool

	// Risk co-occurrence flags.
	FlagOpioidAndBenzo bool
	FlagPolypharmacy5  bool
	FlagPolypharmacy10 bool
	FlagHighRiskCombo  bool

	// Derived sub-scores.
	PainRiskScore   float64
	ComplexityScore float64
	RiskScore       float64
}

// ModelInput serializes the vector into the fixed key set the model registry
// endpoint was trained on. The key names and set are an external contract;
// booleans are encoded as 0/1.
func (fv *FeatureVector) ModelInput() map[string]float64 {
	return map[string]float64{
		"MIB_TOTAL_RECORDS":   float64(fv.MIB.TotalRecords),
		"MIB_HIT_COUNT":       float64(fv.MIB.HitCount),
		"MIB_HAS_HIT":         boolToFloat(fv.MIB.HasHit),
		"MIB_AVG_BMI":         fv.MIB.AvgBMI,
		"RX_TOTAL_FILLS":      float64(fv.RX.TotalFills),
		"RX_UNIQUE_DRUGS":     float64(fv.RX.UniqueDrugs),
		"RX_DRUG_OPIOID":      boolToFloat(fv.RX.DrugOpioid),
		"HAS_MIB_EVIDENCE":    boolToFloat(fv.MIB.TotalRecords > 0),
		"HAS_RX_EVIDENCE":     boolToFloat(fv.RX.TotalFills > 0),
		"COMBINED_RISK_SCORE": 0,
	}
}

// Snapshot returns the full feature mapping persisted for audit and
// reproducibility. Keys follow the feature-store naming convention.
func (fv *FeatureVector) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"mib_code_count":               fv.MIB.CodeCount,
		"mib_total_records":            fv.MIB.TotalRecords,
		"mib_hit_count":                fv.MIB.HitCount,
		"mib_has_hit":                  fv.MIB.HasHit,
		"mib_avg_bmi":                  fv.MIB.AvgBMI,
		"mib_max_bmi":                  fv.MIB.MaxBMI,
		"mib_min_bmi":                  fv.MIB.MinBMI,
		"mib_bmi_over_30":              fv.MIB.BMIOver30,
		"mib_bmi_over_35":              fv.MIB.BMIOver35,
		"mib_has_cardiac_code":         fv.MIB.HasCardiacCode,
		"mib_has_diabetes_code":        fv.MIB.HasDiabetesCode,
		"mib_has_cancer_code":          fv.MIB.HasCancerCode,
		"mib_has_respiratory_code":     fv.MIB.HasRespiratoryCode,
		"mib_has_mental_health_code":   fv.MIB.HasMentalHealthCode,
		"mib_has_substance_abuse_code": fv.MIB.HasSubstanceAbuseCode,
		"mib_high_risk_code_count":     fv.MIB.HighRiskCodeCount,
		"mib_risk_score":               fv.MIB.RiskScore,
		"rx_total_fills":               fv.RX.TotalFills,
		"rx_unique_drugs":              fv.RX.UniqueDrugs,
		"rx_unique_specialties":        fv.RX.UniqueSpecialties,
		"rx_drug_statin":               fv.RX.DrugStatin,
		"rx_drug_metformin":            fv.RX.DrugMetformin,
		"rx_drug_insulin":              fv.RX.DrugInsulin,
		"rx_drug_opioid":               fv.RX.DrugOpioid,
		"rx_drug_benzo":                fv.RX.DrugBenzo,
		"rx_drug_antidepressant":       fv.RX.DrugAntidepressant,
		"rx_drug_antipsychotic":        fv.RX.DrugAntipsychotic,
		"rx_drug_blood_thinner":        fv.RX.DrugBloodThinner,
		"rx_drug_gabapentin":           fv.RX.DrugGabapentin,
		"rx_drug_suboxone":             fv.RX.DrugSuboxone,
		"flag_opioid_and_benzo":        fv.RX.FlagOpioidAndBenzo,
		"flag_polypharmacy_5":          fv.RX.FlagPolypharmacy5,
		"flag_polypharmacy_10":         fv.RX.FlagPolypharmacy10,
		"flag_high_risk_combo":         fv.RX.FlagHighRiskCombo,
		"rx_pain_risk_score":           fv.RX.PainRiskScore,
		"rx_complexity_score":          fv.RX.ComplexityScore,
		"rx_risk_score":                fv.RX.RiskScore,
		"combo_diabetes_confirmed":     fv.ComboDiabetesConfirmed,
		"combo_substance_risk":         fv.ComboSubstanceRisk,
	}
}

// FeatureCount is the number of features in a snapshot. Reported on every
// response so consumers can detect contract drift.
func (fv *FeatureVector) FeatureCount() int {
	return len(fv.Snapshot())
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
