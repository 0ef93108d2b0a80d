// Package service contains the pure domain services of the inference
// pipeline: feature extraction and rule-based scoring. Both are deterministic
// functions with no I/O, which keeps them trivially testable and safe to run
// concurrently across requests.
package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/underwritex/riskd/internal/domain/models"
)

// Markers scanned out of the two documents. Extraction deliberately does not
// run a strict XML parse: garbage input must degrade to default features, not
// fail, and the documents arrive from upstream systems with inconsistent
// envelopes. Scanning for the marker set is total over arbitrary strings.
var (
	reResponseData = regexp.MustCompile(`<ResponseData>([^<]+)</ResponseData>`)
	reBMI          = regexp.MustCompile(`<BMI>(\d+\.?\d*)</BMI>`)
	reDrugFill     = regexp.MustCompile(`<DrugFill>`)
	reDrugName     = regexp.MustCompile(`<DrugGenericName>([^<]+)</DrugGenericName>`)
	reSpecialty    = regexp.MustCompile(`<PhysicianSpecialty>([^<]+)</PhysicianSpecialty>`)
)

// Condition-code category keywords checked against the joined MIB codes.
var (
	cardiacKeywords     = []string{"CARDIAC", "HEART", "CVD"}
	diabetesKeywords    = []string{"DIABETES", "DM", "INSULIN"}
	cancerKeywords      = []string{"CANCER", "TUMOR", "MALIG"}
	respiratoryKeywords = []string{"COPD", "ASTHMA", "PULM"}
	mentalKeywords      = []string{"MENTAL", "PSYCH", "DEPRESS"}
	substanceKeywords   = []string{"SUBSTANCE", "ALCOHOL", "DRUG"}
)

// Drug-class keywords checked against the joined generic drug names.
var (
	statinKeywords         = []string{"STATIN", "ATORVASTATIN", "SIMVASTATIN"}
	opioidKeywords         = []string{"OXYCODONE", "HYDROCODONE", "MORPHINE", "FENTANYL"}
	benzoKeywords          = []string{"ALPRAZOLAM", "DIAZEPAM", "LORAZEPAM", "CLONAZEPAM"}
	antidepressantKeywords = []string{"SERTRALINE", "FLUOXETINE", "ESCITALOPRAM"}
	antipsychoticKeywords  = []string{"QUETIAPINE", "RISPERIDONE", "ARIPIPRAZOLE"}
	bloodThinnerKeywords   = []string{"WARFARIN", "ELIQUIS", "XARELTO"}
	gabapentinKeywords     = []string{"GABAPENTIN", "PREGABALIN"}
	suboxoneKeywords       = []string{"SUBOXONE", "BUPRENORPHINE"}
)

// FeatureExtractor derives the fixed-shape FeatureVector from the raw MIB and
// RX documents. Extract is a pure function of its two string inputs.
type FeatureExtractor struct{}

// NewFeatureExtractor creates a FeatureExtractor.
func NewFeatureExtractor() *FeatureExtractor {
	return &FeatureExtractor{}
}

// Extract never fails: empty, missing, or malformed documents yield a vector
// with every field at its zero-value default.
func (e *FeatureExtractor) Extract(mibXML, rxXML string) *models.FeatureVector {
	fv := &models.FeatureVector{
		MIB: e.extractMIB(mibXML),
		RX:  e.extractRX(rxXML),
	}

	// Cross-document combination flags.
	fv.ComboDiabetesConfirmed = fv.MIB.HasDiabetesCode && (fv.RX.DrugInsulin || fv.RX.DrugMetformin)
	fv.ComboSubstanceRisk = fv.MIB.HasSubstanceAbuseCode && fv.RX.DrugOpioid

	return fv
}

func (e *FeatureExtractor) extractMIB(xml string) models.MIBFeatures {
	var f models.MIBFeatures
	if xml == "" {
		return f
	}

	var codes []string
	for _, m := range reResponseData.FindAllStringSubmatch(xml, -1) {
		codes = append(codes, m[1])
	}
	f.CodeCount = len(codes)
	f.TotalRecords = len(codes)

	if strings.Contains(xml, "HIT") {
		f.HitCount = 1
		f.HasHit = true
	}

	if bmis := parseBMIs(xml); len(bmis) > 0 {
		sum := 0.0
		f.MaxBMI = bmis[0]
		f.MinBMI = bmis[0]
		for _, b := range bmis {
			sum += b
			if b > f.MaxBMI {
				f.MaxBMI = b
			}
			if b < f.MinBMI {
				f.MinBMI = b
			}
		}
		f.AvgBMI = sum / float64(len(bmis))
		f.BMIOver30 = f.MaxBMI > 30
		f.BMIOver35 = f.MaxBMI > 35
	}

	codeStr := strings.ToUpper(strings.Join(codes, " "))
	f.HasCardiacCode = containsAny(codeStr, cardiacKeywords)
	f.HasDiabetesCode = containsAny(codeStr, diabetesKeywords)
	f.HasCancerCode = containsAny(codeStr, cancerKeywords)
	f.HasRespiratoryCode = containsAny(codeStr, respiratoryKeywords)
	f.HasMentalHealthCode = containsAny(codeStr, mentalKeywords)
	f.HasSubstanceAbuseCode = containsAny(codeStr, substanceKeywords)

	f.HighRiskCodeCount = countTrue(f.HasCancerCode, f.HasCardiacCode, f.HasSubstanceAbuseCode)
	f.RiskScore = clamp01(float64(f.HighRiskCodeCount)*0.3 + float64(f.HitCount)*0.2)

	return f
}

func (e *FeatureExtractor) extractRX(xml string) models.RXFeatures {
	var f models.RXFeatures
	if xml == "" {
		return f
	}

	f.TotalFills = len(reDrugFill.FindAllStringIndex(xml, -1))

	drugs := uniqueMatches(reDrugName, xml)
	f.UniqueDrugs = len(drugs)
	f.UniqueSpecialties = len(uniqueMatches(reSpecialty, xml))

	drugStr := strings.ToUpper(strings.Join(drugs, " "))
	f.DrugStatin = containsAny(drugStr, statinKeywords)
	f.DrugMetformin = strings.Contains(drugStr, "METFORMIN")
	f.DrugInsulin = strings.Contains(drugStr, "INSULIN")
	f.DrugOpioid = containsAny(drugStr, opioidKeywords)
	f.DrugBenzo = containsAny(drugStr, benzoKeywords)
	f.DrugAntidepressant = containsAny(drugStr, antidepressantKeywords)
	f.DrugAntipsychotic = containsAny(drugStr, antipsychoticKeywords)
	f.DrugBloodThinner = containsAny(drugStr, bloodThinnerKeywords)
	f.DrugGabapentin = containsAny(drugStr, gabapentinKeywords)
	f.DrugSuboxone = containsAny(drugStr, suboxoneKeywords)

	f.FlagOpioidAndBenzo = f.DrugOpioid && f.DrugBenzo
	f.FlagPolypharmacy5 = f.UniqueDrugs >= 5
	f.FlagPolypharmacy10 = f.UniqueDrugs >= 10
	f.FlagHighRiskCombo = f.FlagOpioidAndBenzo || (f.DrugOpioid && f.DrugGabapentin)

	// Derived sub-scores. The term weights here are part of the feature
	// definitions (the model was trained on them), unlike the fallback
	// scorer weights which are operational configuration.
	pain := 0.0
	if f.DrugOpioid {
		pain += 0.15
	}
	if f.DrugBenzo {
		pain += 0.10
	}
	if f.FlagOpioidAndBenzo {
		pain += 0.25
	}
	f.PainRiskScore = clamp01(pain)
	f.ComplexityScore = clamp01(float64(f.UniqueDrugs) * 0.08)
	f.RiskScore = f.PainRiskScore*0.5 + f.ComplexityScore*0.5

	return f
}

func parseBMIs(xml string) []float64 {
	var out []float64
	for _, m := range reBMI.FindAllStringSubmatch(xml, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// uniqueMatches returns the distinct first-group matches in document order.
func uniqueMatches(re *regexp.Regexp, s string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func countTrue(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
