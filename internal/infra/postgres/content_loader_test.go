package postgres

import (
	"encoding/json"
	"testing"
)

func TestNormalizeLegacyOptionShapes(t *testing.T) {
	raw := []byte(`{
		"slug": "road-signs",
		"title": "Road Signs",
		"questions": [
			{"id": "q1", "text": "Pick one", "options": ["Yield", "Stop"], "answerIndex": 1},
			{"id": "q2", "text": "Pick one", "options": [{"text": "A warning"}, {"text": "Parking"}], "answerIndex": 0}
		]
	}`)
	var doc examDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	exam, err := doc.normalize("exam-1")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if exam.ID != "exam-1" {
		t.Fatalf("expected row ID fallback, got %q", exam.ID)
	}
	if exam.Questions[0].Options[1] != "Stop" {
		t.Fatalf("string options mangled: %+v", exam.Questions[0])
	}
	if exam.Questions[1].Options[0] != "A warning" {
		t.Fatalf("object options mangled: %+v", exam.Questions[1])
	}
}

func TestNormalizeRejectsBadDefinitions(t *testing.T) {
	cases := map[string]string{
		"too few options":        `{"questions": [{"id": "q1", "options": ["only"], "answerIndex": 0}]}`,
		"answer index too large": `{"questions": [{"id": "q1", "options": ["a", "b"], "answerIndex": 5}]}`,
		"negative answer index":  `{"questions": [{"id": "q1", "options": ["a", "b"], "answerIndex": -1}]}`,
	}
	for name, raw := range cases {
		var doc examDocument
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			t.Fatalf("%s: unmarshal: %v", name, err)
		}
		if _, err := doc.normalize("exam-1"); err == nil {
			t.Fatalf("%s: expected normalization error", name)
		}
	}
}
