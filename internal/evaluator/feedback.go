package evaluator

import (
	"encoding/json"
	"strings"
)

// Feedback is the structured grammar verdict shown to the user.
type Feedback struct {
	IsCorrect         bool   `json:"isCorrect"`
	CorrectedSentence string `json:"correctedSentence,omitempty"`
	Explanation       string `json:"explanation,omitempty"`
	Encouragement     string `json:"encouragement,omitempty"`
	Model             string `json:"model,omitempty"`

	// Set when the feedback was delivered but the usage record could not
	// be persisted. The paid-for result is never discarded over it.
	PersistenceWarning string `json:"persistenceWarning,omitempty"`
}

// parseFeedback extracts a Feedback from the model's reply. Models wrap
// JSON in code fences or chatter around it often enough that this strips
// fences and falls back to the first balanced object; if no JSON can be
// recovered the raw text becomes the explanation.
func parseFeedback(raw string) *Feedback {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	candidate := text
	if !strings.HasPrefix(candidate, "{") {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start >= 0 && end > start {
			candidate = text[start : end+1]
		}
	}

	var fb Feedback
	if err := json.Unmarshal([]byte(candidate), &fb); err != nil {
		return &Feedback{Explanation: strings.TrimSpace(raw)}
	}
	return &fb
}
