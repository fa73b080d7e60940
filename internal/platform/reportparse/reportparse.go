// Package reportparse extracts structured lab values from the text of
// blood test reports using pattern matching.
package reportparse

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
)

// ReportType classifies a lab report by its dominant panel.
type ReportType string

const (
	TypeCBC            ReportType = "cbc"
	TypeLipidPanel     ReportType = "lipid_panel"
	TypeLiverFunction  ReportType = "liver_function"
	TypeKidneyFunction ReportType = "kidney_function"
	TypeThyroid        ReportType = "thyroid"
	TypeDiabetes       ReportType = "diabetes"
	TypeGeneral        ReportType = "general"
	TypeOther          ReportType = "other"
)

// fieldPattern holds the compiled alternatives for one lab field.
type fieldPattern struct {
	name     string
	patterns []*regexp.Regexp
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// fieldPatterns is checked in order; the first matching alternative per
// field wins. Alternatives cover the aliases labs commonly print.
var fieldPatterns = []fieldPattern{
	{"hemoglobin", compile(`hemoglobin[\s:]+(\d+\.?\d*)`, `hb[\s:]+(\d+\.?\d*)`, `hgb[\s:]+(\d+\.?\d*)`)},
	{"wbc_count", compile(`wbc[\s:]+(\d+\.?\d*)`, `white\s*blood\s*cell[\s:]+(\d+\.?\d*)`, `leucocyte[\s:]+(\d+\.?\d*)`)},
	{"rbc_count", compile(`rbc[\s:]+(\d+\.?\d*)`, `red\s*blood\s*cell[\s:]+(\d+\.?\d*)`, `erythrocyte[\s:]+(\d+\.?\d*)`)},
	{"platelet_count", compile(`platelet[\s:]+(\d+\.?\d*)`, `plt[\s:]+(\d+\.?\d*)`)},
	{"hematocrit", compile(`hematocrit[\s:]+(\d+\.?\d*)`, `hct[\s:]+(\d+\.?\d*)`, `pcv[\s:]+(\d+\.?\d*)`)},
	{"glucose_fasting", compile(`fasting\s*glucose[\s:]+(\d+\.?\d*)`, `fbs[\s:]+(\d+\.?\d*)`, `fpg[\s:]+(\d+\.?\d*)`)},
	{"glucose_random", compile(`random\s*glucose[\s:]+(\d+\.?\d*)`, `rbs[\s:]+(\d+\.?\d*)`)},
	{"glucose_pp", compile(`pp\s*glucose[\s:]+(\d+\.?\d*)`, `post\s*prandial[\s:]+(\d+\.?\d*)`, `ppbs[\s:]+(\d+\.?\d*)`)},
	{"hba1c", compile(`hba1c[\s:]+(\d+\.?\d*)`, `glycated\s*hemoglobin[\s:]+(\d+\.?\d*)`)},
	{"cholesterol_total", compile(`total\s*cholesterol[\s:]+(\d+\.?\d*)`, `cholesterol[\s:]+(\d+\.?\d*)`, `tc[\s:]+(\d+\.?\d*)`)},
	{"cholesterol_hdl", compile(`hdl[\s:]+(\d+\.?\d*)`, `hdl\s*cholesterol[\s:]+(\d+\.?\d*)`)},
	{"cholesterol_ldl", compile(`ldl[\s:]+(\d+\.?\d*)`, `ldl\s*cholesterol[\s:]+(\d+\.?\d*)`)},
	{"cholesterol_vldl", compile(`vldl[\s:]+(\d+\.?\d*)`, `vldl\s*cholesterol[\s:]+(\d+\.?\d*)`)},
	{"triglycerides", compile(`triglycerides[\s:]+(\d+\.?\d*)`, `tg[\s:]+(\d+\.?\d*)`)},
	{"sgot", compile(`sgot[\s:]+(\d+\.?\d*)`, `ast[\s:]+(\d+\.?\d*)`)},
	{"sgpt", compile(`sgpt[\s:]+(\d+\.?\d*)`, `alt[\s:]+(\d+\.?\d*)`)},
	{"alkaline_phosphatase", compile(`alkaline\s*phosphatase[\s:]+(\d+\.?\d*)`, `alp[\s:]+(\d+\.?\d*)`)},
	{"bilirubin_total", compile(`total\s*bilirubin[\s:]+(\d+\.?\d*)`, `bilirubin\s*total[\s:]+(\d+\.?\d*)`)},
	{"bilirubin_direct", compile(`direct\s*bilirubin[\s:]+(\d+\.?\d*)`, `bilirubin\s*direct[\s:]+(\d+\.?\d*)`)},
	{"total_protein", compile(`total\s*protein[\s:]+(\d+\.?\d*)`)},
	{"albumin", compile(`albumin[\s:]+(\d+\.?\d*)`)},
	{"creatinine", compile(`creatinine[\s:]+(\d+\.?\d*)`, `creat[\s:]+(\d+\.?\d*)`)},
	{"urea", compile(`urea[\s:]+(\d+\.?\d*)`, `blood\s*urea[\s:]+(\d+\.?\d*)`)},
	{"uric_acid", compile(`uric\s*acid[\s:]+(\d+\.?\d*)`)},
	{"bun", compile(`bun[\s:]+(\d+\.?\d*)`, `blood\s*urea\s*nitrogen[\s:]+(\d+\.?\d*)`)},
	{"egfr", compile(`egfr[\s:]+(\d+\.?\d*)`, `gfr[\s:]+(\d+\.?\d*)`)},
	{"tsh", compile(`tsh[\s:]+(\d+\.?\d*)`)},
	{"t3", compile(`t3[\s:]+(\d+\.?\d*)`)},
	{"t4", compile(`t4[\s:]+(\d+\.?\d*)`)},
	{"sodium", compile(`sodium[\s:]+(\d+\.?\d*)`, `na[\s:]+(\d+\.?\d*)`)},
	{"potassium", compile(`potassium[\s:]+(\d+\.?\d*)`, `k[\s:]+(\d+\.?\d*)`)},
	{"chloride", compile(`chloride[\s:]+(\d+\.?\d*)`, `cl[\s:]+(\d+\.?\d*)`)},
}

// Result is the outcome of parsing one report.
type Result struct {
	Values     map[string]float64
	ReportType ReportType
	// Confidence is the percentage of known fields found in the text.
	Confidence float64
}

// ExtractValue searches text for a single named field.
func ExtractValue(text, field string) (float64, bool) {
	for _, fp := range fieldPatterns {
		if fp.name != field {
			continue
		}
		return matchValue(text, fp)
	}
	return 0, false
}

func matchValue(text string, fp fieldPattern) (float64, bool) {
	for _, re := range fp.patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}

// DetectReportType classifies the report by the first panel whose
// indicator terms appear in the text.
func DetectReportType(text string) ReportType {
	lower := strings.ToLower(text)

	contains := func(indicators ...string) bool {
		for _, ind := range indicators {
			if strings.Contains(lower, ind) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("hemoglobin", "wbc", "rbc", "platelet", "complete blood count", "cbc"):
		return TypeCBC
	case contains("cholesterol", "hdl", "ldl", "triglyceride", "lipid profile"):
		return TypeLipidPanel
	case contains("sgot", "sgpt", "alt", "ast", "liver function", "lft"):
		return TypeLiverFunction
	case contains("creatinine", "urea", "kidney function", "kft", "rft"):
		return TypeKidneyFunction
	case contains("tsh", "t3", "t4", "thyroid"):
		return TypeThyroid
	case contains("glucose", "hba1c", "blood sugar"):
		return TypeDiabetes
	default:
		return TypeGeneral
	}
}

// Parse extracts every known field from the report text.
func Parse(text string) *Result {
	if strings.TrimSpace(text) == "" {
		return &Result{Values: map[string]float64{}, ReportType: TypeOther, Confidence: 0}
	}

	values := make(map[string]float64)
	for _, fp := range fieldPatterns {
		if v, ok := matchValue(text, fp); ok {
			values[fp.name] = v
		}
	}

	confidence := float64(len(values)) / float64(len(fieldPatterns)) * 100

	return &Result{
		Values:     values,
		ReportType: DetectReportType(text),
		Confidence: confidence,
	}
}

// FileHash returns the SHA-256 of raw content as a hex string, used to
// detect re-uploads of the same document.
func FileHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
