package emergency

import (
	"regexp"
	"strings"
	"time"
)

// Trigger vocabulary for voice-to-text or free-text input. Single
// words score higher than phrases; several hits stack up to 1.0.
var triggerWords = []string{
	"emergency",
	"help",
	"urgent",
	"critical",
	"救命",
	"सहायता",
}

var emergencyPhrases = []string{
	"need help",
	"medical emergency",
	"heart attack",
	"can't breathe",
	"unconscious",
	"severe pain",
	"accident",
}

const (
	wordWeight   = 0.4
	phraseWeight = 0.3
)

// Detection is the outcome of scanning one input text.
type Detection struct {
	Triggered     bool      `json:"triggered"`
	Confidence    float64   `json:"confidence"`
	DetectedWords []string  `json:"detected_words"`
	InputText     string    `json:"input_text,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// DetectTrigger scans text for emergency vocabulary and scores how
// confident the match is.
func DetectTrigger(text string) Detection {
	d := Detection{
		DetectedWords: []string{},
		Timestamp:     time.Now().UTC(),
	}
	if text == "" {
		return d
	}
	d.InputText = text
	normalized := strings.ToLower(strings.TrimSpace(text))

	for _, w := range triggerWords {
		if strings.Contains(normalized, strings.ToLower(w)) {
			d.DetectedWords = append(d.DetectedWords, w)
			d.Confidence += wordWeight
		}
	}
	for _, p := range emergencyPhrases {
		if strings.Contains(normalized, p) {
			d.DetectedWords = append(d.DetectedWords, p)
			d.Confidence += phraseWeight
		}
	}
	if d.Confidence > 1.0 {
		d.Confidence = 1.0
	}
	d.Triggered = len(d.DetectedWords) > 0
	return d
}

var patientIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`patient\s+id\s+([a-zA-Z0-9-]+)`),
	regexp.MustCompile(`id[:\s]+([a-zA-Z0-9-]+)`),
	regexp.MustCompile(`for\s+patient\s+([a-zA-Z0-9-]+)`),
	regexp.MustCompile(`patient\s+([a-zA-Z0-9-]+)`),
}

// ExtractPatientIdentifier pulls a patient reference out of an
// emergency message, matching forms like "patient ID abc123" or
// "for patient abc123". Returns "" when nothing matches.
func ExtractPatientIdentifier(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)
	for _, p := range patientIDPatterns {
		if m := p.FindStringSubmatch(lower); m != nil {
			return m[1]
		}
	}
	return ""
}
