package llm

import (
	"errors"
	"strings"
	"testing"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		want      Verdict
		wantError bool
	}{
		{
			name:    "plain JSON",
			content: `{"is_authentic": false, "reason": "screenshot", "deduction": 70}`,
			want:    Verdict{IsAuthentic: false, Reason: "screenshot", Deduction: 70},
		},
		{
			name:    "fenced JSON with prose",
			content: "Here is my answer:\n```json\n{\"is_authentic\": true, \"reason\": \"ok\", \"deduction\": 0}\n```",
			want:    Verdict{IsAuthentic: true, Reason: "ok", Deduction: 0},
		},
		{
			name:    "missing deduction",
			content: `{"is_authentic": false, "reason": "indoor"}`,
			want:    Verdict{IsAuthentic: false, Reason: "indoor", Deduction: -1},
		},
		{
			name:    "fractional deduction",
			content: `{"is_authentic": false, "reason": "blurry", "deduction": 25.7}`,
			want:    Verdict{IsAuthentic: false, Reason: "blurry", Deduction: 25},
		},
		{
			name:    "huge deduction",
			content: `{"is_authentic": false, "reason": "fake", "deduction": 1e30}`,
			want:    Verdict{IsAuthentic: false, Reason: "fake", Deduction: 100},
		},
		{
			name:    "negative deduction",
			content: `{"is_authentic": true, "reason": "fine", "deduction": -20}`,
			want:    Verdict{IsAuthentic: true, Reason: "fine", Deduction: -1},
		},
		{name: "no JSON", content: "I cannot help with that.", wantError: true},
		{name: "broken JSON", content: `{"is_authentic": tru}`, wantError: true},
		{name: "missing is_authentic", content: `{"reason": "unsure", "deduction": 10}`, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVerdict(tt.content)
			if tt.wantError {
				if !errors.Is(err, ErrMalformedVerdict) {
					t.Fatalf("expected ErrMalformedVerdict, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBuildPrompt_IncludesReport(t *testing.T) {
	prompt := BuildPrompt(AssessRequest{
		Title:       "Broken streetlight",
		Category:    "Electricity",
		Description: "Light pole   flickering\nall night",
	})

	for _, want := range []string{"Broken streetlight", "Electricity", "Light pole flickering all night", `"is_authentic"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected prompt to contain %q", want)
		}
	}
}

func TestBuildPrompt_EmptyFields(t *testing.T) {
	prompt := BuildPrompt(AssessRequest{})
	if !strings.Contains(prompt, "(none)") {
		t.Error("expected placeholder for empty fields")
	}
}

func TestAssessRequest_MIMEType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if got := (AssessRequest{Image: png}).MIMEType(); got != "image/png" {
		t.Errorf("expected image/png, got %s", got)
	}
	if got := (AssessRequest{Image: []byte("not an image")}).MIMEType(); got != "image/jpeg" {
		t.Errorf("expected fallback image/jpeg, got %s", got)
	}
}
