package services

import (
	"strings"
	"testing"

	"github.com/zhuocheng6/ai-interview-analyzer/internal/models"
)

const wellFormedOutput = "prefix ```json\n{\"english_speaking\":{\"score\":7,\"reasoning\":\"clear\"},\"confidence\":{\"score\":8,\"reasoning\":\"steady\"},\"humility\":{\"score\":9,\"reasoning\":\"grounded\"},\"overall_summary\":\"Strong communicator.\"} \n``` suffix"

func TestExtractAnalysis_WellFormed(t *testing.T) {
	got, err := ExtractAnalysis(wellFormedOutput)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := models.AnalysisResult{
		EnglishSpeaking: models.CategoryScore{Score: 7, Reasoning: "clear"},
		Confidence:      models.CategoryScore{Score: 8, Reasoning: "steady"},
		Humility:        models.CategoryScore{Score: 9, Reasoning: "grounded"},
		OverallSummary:  "Strong communicator.",
	}
	if *got != want {
		t.Fatalf("expected %+v, got %+v", want, *got)
	}
	if got.Confidence.Score != 8 {
		t.Fatalf("expected confidence score 8, got %d", got.Confidence.Score)
	}
}

func TestExtractAnalysis_PreservesTextExactly(t *testing.T) {
	raw := "```json\n{\"english_speaking\":{\"score\":1,\"reasoning\":\"  leading space, \\\"quotes\\\" and ünïcode\"},\"confidence\":{\"score\":10,\"reasoning\":\"a\\nb\"},\"humility\":{\"score\":5,\"reasoning\":\"x\"},\"overall_summary\":\"Keep going.\"}\n```"

	got, err := ExtractAnalysis(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.EnglishSpeaking.Reasoning != `  leading space, "quotes" and ünïcode` {
		t.Errorf("reasoning was transformed: %q", got.EnglishSpeaking.Reasoning)
	}
	if got.Confidence.Reasoning != "a\nb" {
		t.Errorf("reasoning was transformed: %q", got.Confidence.Reasoning)
	}
	if got.EnglishSpeaking.Score != 1 || got.Confidence.Score != 10 {
		t.Errorf("boundary scores not kept: %+v", got)
	}
}

func TestExtractAnalysis_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind ErrorKind
	}{
		{"no fence", `{"overall_summary":"bare json"}`, KindFormat},
		{"plain fence without json tag", "```\n{}\n```", KindFormat},
		{"empty fence", "```json\n\n```", KindFormat},
		{"unterminated fence", "```json\n{\"a\":1}", KindFormat},
		{"malformed json", "```json\n{\"english_speaking\": {\"score\": 7,\n```", KindParse},
		{"trailing truncated object", "```json\n{\"english_speaking\":{\"score\":7,\"reasoning\":\"a\"},\"confidence\":{\"score\":8,\"reasoning\":\"b\"},\"humility\":{\"score\":9,\"reasoning\":\"c\"},\"overall_summary\":\"s\"}\n{\"truncated\": \n```", KindParse},
		{"trailing junk", "```json\n{\"english_speaking\":{\"score\":7,\"reasoning\":\"a\"},\"confidence\":{\"score\":8,\"reasoning\":\"b\"},\"humility\":{\"score\":9,\"reasoning\":\"c\"},\"overall_summary\":\"s\"} trailing words\n```", KindParse},
		{"score wrong type", "```json\n{\"english_speaking\":{\"score\":\"seven\",\"reasoning\":\"x\"}}\n```", KindParse},
		{"missing category", "```json\n{\"english_speaking\":{\"score\":7,\"reasoning\":\"a\"},\"confidence\":{\"score\":8,\"reasoning\":\"b\"},\"overall_summary\":\"s\"}\n```", KindSchema},
		{"score out of range", "```json\n{\"english_speaking\":{\"score\":11,\"reasoning\":\"a\"},\"confidence\":{\"score\":8,\"reasoning\":\"b\"},\"humility\":{\"score\":9,\"reasoning\":\"c\"},\"overall_summary\":\"s\"}\n```", KindSchema},
		{"fractional score", "```json\n{\"english_speaking\":{\"score\":7.5,\"reasoning\":\"a\"},\"confidence\":{\"score\":8,\"reasoning\":\"b\"},\"humility\":{\"score\":9,\"reasoning\":\"c\"},\"overall_summary\":\"s\"}\n```", KindSchema},
		{"blank summary", "```json\n{\"english_speaking\":{\"score\":7,\"reasoning\":\"a\"},\"confidence\":{\"score\":8,\"reasoning\":\"b\"},\"humility\":{\"score\":9,\"reasoning\":\"c\"},\"overall_summary\":\"  \"}\n```", KindSchema},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractAnalysis(tc.raw)
			if err == nil {
				t.Fatalf("expected error, got result %+v", got)
			}
			if got != nil {
				t.Fatalf("expected no partial result, got %+v", got)
			}
			if kind := KindOf(err); kind != tc.kind {
				t.Fatalf("expected kind %s, got %s (%v)", tc.kind, kind, err)
			}
		})
	}
}

func TestExtractAnalysis_FirstBlockWins(t *testing.T) {
	raw := strings.Join([]string{
		"Here you go:",
		"```json",
		`{"english_speaking":{"score":6,"reasoning":"a"},"confidence":{"score":6,"reasoning":"b"},"humility":{"score":6,"reasoning":"c"},"overall_summary":"first"}`,
		"```",
		"and again",
		"```json",
		`{"overall_summary":"second"}`,
		"```",
	}, "\n")

	got, err := ExtractAnalysis(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.OverallSummary != "first" {
		t.Fatalf("expected first block, got %q", got.OverallSummary)
	}
}
