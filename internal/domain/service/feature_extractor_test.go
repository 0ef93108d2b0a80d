package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEmptyDocumentsYieldDefaults(t *testing.T) {
	e := NewFeatureExtractor()

	fv := e.Extract("", "")

	require.NotNil(t, fv)
	assert.Equal(t, 0, fv.MIB.CodeCount)
	assert.Equal(t, 0, fv.MIB.HitCount)
	assert.False(t, fv.MIB.HasHit)
	assert.Equal(t, 0.0, fv.MIB.AvgBMI)
	assert.Equal(t, 0, fv.RX.TotalFills)
	assert.Equal(t, 0, fv.RX.UniqueDrugs)
	assert.False(t, fv.ComboDiabetesConfirmed)
	assert.False(t, fv.ComboSubstanceRisk)
}

func TestExtractMalformedDocumentsNeverFail(t *testing.T) {
	e := NewFeatureExtractor()

	cases := []struct {
		name string
		mib  string
		rx   string
	}{
		{"minimal elements", "<r/>", "<r/>"},
		{"not xml at all", "}{ definitely not xml", "12345"},
		{"truncated tags", "<Response><ResponseData>CODE", "<DrugFill><DrugGeneric"},
		{"binary-ish garbage", "\x00\x01\x02", "\xff\xfe"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fv := e.Extract(tc.mib, tc.rx)
			require.NotNil(t, fv)
			assert.Equal(t, 0, fv.MIB.CodeCount)
			assert.Equal(t, 0, fv.RX.UniqueDrugs)
		})
	}
}

func TestExtractSingleCodeAndFill(t *testing.T) {
	e := NewFeatureExtractor()

	mib := "<Response><ResponseData>CODE1</ResponseData></Response>"
	rx := "<IntelRXResponse><DrugFill><DrugGenericName>METFORMIN</DrugGenericName></DrugFill></IntelRXResponse>"

	fv := e.Extract(mib, rx)

	assert.Equal(t, 1, fv.MIB.CodeCount)
	assert.Equal(t, 1, fv.MIB.TotalRecords)
	assert.False(t, fv.MIB.HasHit)
	assert.Equal(t, 1, fv.RX.TotalFills)
	assert.Equal(t, 1, fv.RX.UniqueDrugs)
	assert.True(t, fv.RX.DrugMetformin)
	assert.False(t, fv.RX.DrugOpioid)
}

func TestExtractHitMarker(t *testing.T) {
	e := NewFeatureExtractor()

	fv := e.Extract("<Response><Result>HIT</Result></Response>", "")

	assert.True(t, fv.MIB.HasHit)
	assert.Equal(t, 1, fv.MIB.HitCount)
}

func TestExtractBMIAggregates(t *testing.T) {
	e := NewFeatureExtractor()

	mib := "<Response><BMI>28.5</BMI><BMI>36.2</BMI><BMI>31.0</BMI></Response>"
	fv := e.Extract(mib, "")

	assert.InDelta(t, 31.9, fv.MIB.AvgBMI, 0.01)
	assert.Equal(t, 36.2, fv.MIB.MaxBMI)
	assert.Equal(t, 28.5, fv.MIB.MinBMI)
	assert.True(t, fv.MIB.BMIOver30)
	assert.True(t, fv.MIB.BMIOver35)
}

func TestExtractConditionCategories(t *testing.T) {
	e := NewFeatureExtractor()

	mib := "<Response>" +
		"<ResponseData>CARDIAC HISTORY</ResponseData>" +
		"<ResponseData>TYPE 2 DIABETES</ResponseData>" +
		"<ResponseData>MALIGNANT NEOPLASM</ResponseData>" +
		"</Response>"
	fv := e.Extract(mib, "")

	assert.True(t, fv.MIB.HasCardiacCode)
	assert.True(t, fv.MIB.HasDiabetesCode)
	assert.True(t, fv.MIB.HasCancerCode)
	assert.False(t, fv.MIB.HasRespiratoryCode)
	assert.Equal(t, 2, fv.MIB.HighRiskCodeCount)
}

func TestExtractDrugClassesAndFlags(t *testing.T) {
	e := NewFeatureExtractor()

	rx := "<IntelRXResponse>" +
		"<DrugFill><DrugGenericName>OXYCODONE</DrugGenericName></DrugFill>" +
		"<DrugFill><DrugGenericName>ALPRAZOLAM</DrugGenericName></DrugFill>" +
		"<DrugFill><DrugGenericName>OXYCODONE</DrugGenericName></DrugFill>" +
		"</IntelRXResponse>"
	fv := e.Extract("", rx)

	assert.Equal(t, 3, fv.RX.TotalFills)
	assert.Equal(t, 2, fv.RX.UniqueDrugs)
	assert.True(t, fv.RX.DrugOpioid)
	assert.True(t, fv.RX.DrugBenzo)
	assert.True(t, fv.RX.FlagOpioidAndBenzo)
	assert.True(t, fv.RX.FlagHighRiskCombo)
	assert.InDelta(t, 0.5, fv.RX.PainRiskScore, 1e-9)
}

func TestExtractPolypharmacyThresholds(t *testing.T) {
	e := NewFeatureExtractor()

	build := func(n int) string {
		s := "<IntelRXResponse>"
		drugs := []string{"METFORMIN", "LISINOPRIL", "ATORVASTATIN", "SERTRALINE",
			"GABAPENTIN", "WARFARIN", "INSULIN GLARGINE", "QUETIAPINE",
			"LEVOTHYROXINE", "AMLODIPINE", "OMEPRAZOLE"}
		for i := 0; i < n; i++ {
			s += "<DrugFill><DrugGenericName>" + drugs[i] + "</DrugGenericName></DrugFill>"
		}
		return s + "</IntelRXResponse>"
	}

	fv := e.Extract("", build(4))
	assert.False(t, fv.RX.FlagPolypharmacy5)

	fv = e.Extract("", build(5))
	assert.True(t, fv.RX.FlagPolypharmacy5)
	assert.False(t, fv.RX.FlagPolypharmacy10)

	fv = e.Extract("", build(10))
	assert.True(t, fv.RX.FlagPolypharmacy10)
}

func TestExtractCrossDocumentCombos(t *testing.T) {
	e := NewFeatureExtractor()

	mib := "<Response><ResponseData>DIABETES TYPE 2</ResponseData><ResponseData>SUBSTANCE ABUSE</ResponseData></Response>"
	rx := "<IntelRXResponse>" +
		"<DrugFill><DrugGenericName>INSULIN GLARGINE</DrugGenericName></DrugFill>" +
		"<DrugFill><DrugGenericName>OXYCODONE</DrugGenericName></DrugFill>" +
		"</IntelRXResponse>"

	fv := e.Extract(mib, rx)

	assert.True(t, fv.ComboDiabetesConfirmed)
	assert.True(t, fv.ComboSubstanceRisk)

	// Each combo requires evidence from both documents.
	fv = e.Extract(mib, "")
	assert.False(t, fv.ComboDiabetesConfirmed)
	assert.False(t, fv.ComboSubstanceRisk)
}

func TestModelInputShapeIsFixed(t *testing.T) {
	e := NewFeatureExtractor()

	empty := e.Extract("", "").ModelInput()
	full := e.Extract(
		"<Response><ResponseData>CARDIAC</ResponseData><BMI>40</BMI>HIT</Response>",
		"<IntelRXResponse><DrugFill><DrugGenericName>OXYCODONE</DrugGenericName></DrugFill></IntelRXResponse>",
	).ModelInput()

	require.Equal(t, len(empty), len(full))
	for k := range empty {
		_, ok := full[k]
		assert.True(t, ok, "key %s missing from populated input", k)
	}
	assert.Equal(t, 0.0, empty["HAS_MIB_EVIDENCE"])
	assert.Equal(t, 1.0, full["HAS_MIB_EVIDENCE"])
	assert.Equal(t, 1.0, full["RX_DRUG_OPIOID"])
}

func TestSnapshotCountStable(t *testing.T) {
	e := NewFeatureExtractor()

	empty := e.Extract("", "")
	full := e.Extract("<Response><BMI>33</BMI></Response>", "<IntelRXResponse><DrugFill/></IntelRXResponse>")

	assert.Equal(t, empty.FeatureCount(), full.FeatureCount())
}
