package reportparse

import "testing"

const sampleCBC = `
COMPLETE BLOOD COUNT
Hemoglobin: 13.5 g/dL
WBC: 7.2 x10^3/uL
RBC: 4.8 x10^6/uL
Platelet: 250 x10^3/uL
Hematocrit: 41.2 %
`

func TestParse_CBC(t *testing.T) {
	res := Parse(sampleCBC)

	if res.ReportType != TypeCBC {
		t.Errorf("expected cbc, got %s", res.ReportType)
	}

	want := map[string]float64{
		"hemoglobin":     13.5,
		"wbc_count":      7.2,
		"rbc_count":      4.8,
		"platelet_count": 250,
		"hematocrit":     41.2,
	}
	for field, v := range want {
		if got, ok := res.Values[field]; !ok || got != v {
			t.Errorf("field %s = %v (found %v), want %v", field, got, ok, v)
		}
	}
	if res.Confidence <= 0 {
		t.Error("expected positive confidence")
	}
}

func TestParse_Empty(t *testing.T) {
	res := Parse("   ")
	if res.ReportType != TypeOther {
		t.Errorf("expected other, got %s", res.ReportType)
	}
	if len(res.Values) != 0 {
		t.Errorf("expected no values, got %d", len(res.Values))
	}
	if res.Confidence != 0 {
		t.Errorf("expected zero confidence, got %f", res.Confidence)
	}
}

func TestExtractValue_Aliases(t *testing.T) {
	tests := []struct {
		text  string
		field string
		want  float64
	}{
		{"Hb: 12.1", "hemoglobin", 12.1},
		{"HGB 11.9", "hemoglobin", 11.9},
		{"fasting glucose: 104", "glucose_fasting", 104},
		{"FBS: 98", "glucose_fasting", 98},
		{"TSH: 2.4", "tsh", 2.4},
	}

	for _, tt := range tests {
		got, ok := ExtractValue(tt.text, tt.field)
		if !ok {
			t.Errorf("ExtractValue(%q, %s): not found", tt.text, tt.field)
			continue
		}
		if got != tt.want {
			t.Errorf("ExtractValue(%q, %s) = %v, want %v", tt.text, tt.field, got, tt.want)
		}
	}
}

func TestExtractValue_UnknownField(t *testing.T) {
	if _, ok := ExtractValue("hemoglobin: 12", "nonexistent"); ok {
		t.Error("expected not-found for unknown field")
	}
}

func TestDetectReportType_Priority(t *testing.T) {
	tests := []struct {
		text string
		want ReportType
	}{
		{"lipid profile: cholesterol 190 hdl 45", TypeLipidPanel},
		{"liver function test sgpt 30", TypeLiverFunction},
		{"kidney function creatinine 0.9", TypeKidneyFunction},
		{"thyroid panel tsh 2.1", TypeThyroid},
		{"blood sugar report glucose 110", TypeDiabetes},
		{"no recognizable panel here", TypeGeneral},
	}

	for _, tt := range tests {
		if got := DetectReportType(tt.text); got != tt.want {
			t.Errorf("DetectReportType(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestFileHash_Deterministic(t *testing.T) {
	a := FileHash([]byte("report content"))
	b := FileHash([]byte("report content"))
	if a != b {
		t.Error("same content must hash identically")
	}
	if a == FileHash([]byte("different")) {
		t.Error("different content must hash differently")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}
