package alert

import "fmt"

// Rule is one threshold check. Rules for a vital type are evaluated in
// declaration order and the first match wins, so extreme thresholds
// must be declared before looser ones: glucose > 300 critical precedes
// glucose > 180 high, else the looser rule would mask the critical one.
type Rule struct {
	Match    func(v float64) bool
	Type     Type
	Severity Severity
	Title    string
	// Describe renders the alert description for a trigger value.
	Describe func(v float64) string
}

func describef(format string) func(float64) string {
	return func(v float64) string { return fmt.Sprintf(format, v) }
}

// ruleTable maps vital type to its ordered rule list.
var ruleTable = map[string][]Rule{
	"glucose": {
		{
			Match:    func(v float64) bool { return v > 300 },
			Type:     TypeDiabetesHigh,
			Severity: SeverityCritical,
			Title:    "Critical High Blood Glucose",
			Describe: describef("Blood glucose level of %g mg/dL is critically high. Immediate action required."),
		},
		{
			Match:    func(v float64) bool { return v > 180 },
			Type:     TypeDiabetesHigh,
			Severity: SeverityHigh,
			Title:    "High Blood Glucose",
			Describe: describef("Blood glucose level of %g mg/dL is above normal range."),
		},
		{
			Match:    func(v float64) bool { return v < 54 },
			Type:     TypeDiabetesLow,
			Severity: SeverityCritical,
			Title:    "Critical Low Blood Glucose",
			Describe: describef("Blood glucose level of %g mg/dL is critically low. Immediate action required."),
		},
		{
			Match:    func(v float64) bool { return v < 70 },
			Type:     TypeDiabetesLow,
			Severity: SeverityHigh,
			Title:    "Low Blood Glucose",
			Describe: describef("Blood glucose level of %g mg/dL is below normal range."),
		},
	},
	"heart_rate": {
		{
			Match:    func(v float64) bool { return v > 120 },
			Type:     TypeAbnormalHeartRate,
			Severity: SeverityHigh,
			Title:    "High Heart Rate",
			Describe: describef("Heart rate of %g bpm is elevated."),
		},
		{
			Match:    func(v float64) bool { return v < 50 },
			Type:     TypeAbnormalHeartRate,
			Severity: SeverityHigh,
			Title:    "Low Heart Rate",
			Describe: describef("Heart rate of %g bpm is below normal range."),
		},
	},
	"spo2": {
		{
			Match:    func(v float64) bool { return v < 90 },
			Type:     TypeLowOxygen,
			Severity: SeverityCritical,
			Title:    "Critical Low Oxygen Saturation",
			Describe: describef("Oxygen saturation of %g%% is critically low."),
		},
		{
			Match:    func(v float64) bool { return v < 95 },
			Type:     TypeLowOxygen,
			Severity: SeverityHigh,
			Title:    "Low Oxygen Saturation",
			Describe: describef("Oxygen saturation of %g%% is below normal range."),
		},
	},
	"bp_systolic": {
		{
			Match:    func(v float64) bool { return v > 180 },
			Type:     TypeHighBloodPressure,
			Severity: SeverityCritical,
			Title:    "Critical High Blood Pressure",
			Describe: describef("Systolic blood pressure of %g mmHg is critically high."),
		},
		{
			Match:    func(v float64) bool { return v > 140 },
			Type:     TypeHighBloodPressure,
			Severity: SeverityMedium,
			Title:    "High Blood Pressure",
			Describe: describef("Systolic blood pressure of %g mmHg is elevated."),
		},
		{
			Match:    func(v float64) bool { return v < 90 },
			Type:     TypeLowBloodPressure,
			Severity: SeverityMedium,
			Title:    "Low Blood Pressure",
			Describe: describef("Systolic blood pressure of %g mmHg is low."),
		},
	},
	"temperature": {
		{
			Match:    func(v float64) bool { return v > 39.4 },
			Type:     TypeAbnormalTemperature,
			Severity: SeverityHigh,
			Title:    "High Fever",
			Describe: describef("Body temperature of %g°C indicates high fever."),
		},
		{
			Match:    func(v float64) bool { return v > 38.0 },
			Type:     TypeAbnormalTemperature,
			Severity: SeverityMedium,
			Title:    "Fever",
			Describe: describef("Body temperature of %g°C is above normal."),
		},
		{
			Match:    func(v float64) bool { return v < 35.0 },
			Type:     TypeAbnormalTemperature,
			Severity: SeverityHigh,
			Title:    "Hypothermia",
			Describe: describef("Body temperature of %g°C is abnormally low."),
		},
	},
}

// RulesFor returns the ordered rule list for a vital type, or nil if
// the type has no rules.
func RulesFor(vitalType string) []Rule {
	return ruleTable[vitalType]
}
