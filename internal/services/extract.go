package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"

	"github.com/zhuocheng6/ai-interview-analyzer/internal/models"
)

const (
	minScore = 1
	maxScore = 10
)

var fencedJSONPattern = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")

type rawCategory struct {
	Score     *json.Number `json:"score"`
	Reasoning *string      `json:"reasoning"`
}

type rawAnalysis struct {
	EnglishSpeaking *rawCategory `json:"english_speaking"`
	Confidence      *rawCategory `json:"confidence"`
	Humility        *rawCategory `json:"humility"`
	OverallSummary  *string      `json:"overall_summary"`
}

// ExtractAnalysis pulls the fenced JSON payload out of raw model output and
// converts it into an AnalysisResult. It returns either a complete result or
// an error, never a partial result.
func ExtractAnalysis(rawText string) (*models.AnalysisResult, error) {
	payload, err := extractFencedJSON(rawText)
	if err != nil {
		return nil, err
	}

	var raw rawAnalysis
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, newError(KindParse, "extract", fmt.Errorf("decode payload: %w", err))
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, newError(KindParse, "extract", errors.New("unexpected content after payload"))
	}

	return raw.validate()
}

func extractFencedJSON(rawText string) (string, error) {
	m := fencedJSONPattern.FindStringSubmatch(rawText)
	if len(m) < 2 {
		return "", newError(KindFormat, "extract", errors.New("no ```json block in model output"))
	}
	payload := strings.TrimSpace(m[1])
	if payload == "" {
		return "", newError(KindFormat, "extract", errors.New("empty ```json block in model output"))
	}
	return payload, nil
}

func (r *rawAnalysis) validate() (*models.AnalysisResult, error) {
	var problems []string
	result := &models.AnalysisResult{}

	categories := []struct {
		name string
		raw  *rawCategory
		dst  *models.CategoryScore
	}{
		{"english_speaking", r.EnglishSpeaking, &result.EnglishSpeaking},
		{"confidence", r.Confidence, &result.Confidence},
		{"humility", r.Humility, &result.Humility},
	}

	for _, c := range categories {
		if c.raw == nil {
			problems = append(problems, c.name+" is missing")
			continue
		}
		score, err := scoreValue(c.raw.Score)
		if err != nil {
			problems = append(problems, c.name+".score "+err.Error())
		} else {
			c.dst.Score = score
		}
		if c.raw.Reasoning == nil || strings.TrimSpace(*c.raw.Reasoning) == "" {
			problems = append(problems, c.name+".reasoning is missing")
		} else {
			c.dst.Reasoning = *c.raw.Reasoning
		}
	}

	if r.OverallSummary == nil || strings.TrimSpace(*r.OverallSummary) == "" {
		problems = append(problems, "overall_summary is missing")
	} else {
		result.OverallSummary = *r.OverallSummary
	}

	if len(problems) > 0 {
		return nil, newError(KindSchema, "extract", fmt.Errorf("payload violates %s: %s", PromptVersion, strings.Join(problems, "; ")))
	}
	return result, nil
}

func scoreValue(n *json.Number) (int, error) {
	if n == nil {
		return 0, errors.New("is missing")
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("is not a number: %q", n.String())
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("is not an integer: %s", n.String())
	}
	if f < minScore || f > maxScore {
		return 0, fmt.Errorf("out of range %d-%d: %s", minScore, maxScore, n.String())
	}
	return int(f), nil
}
