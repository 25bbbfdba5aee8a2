package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"thumbnail-analyze-service/models"
)

// ExtractJSONFromMarkdown extracts JSON from markdown code blocks. Vision
// models often wrap their output in ``` fences despite being asked not to.
func ExtractJSONFromMarkdown(response string) string {
	startMarker := "```"
	endMarker := "```"

	startIdx := strings.Index(response, startMarker)
	if startIdx == -1 {
		// No code block found, try to find JSON object directly
		startIdx = strings.Index(response, "{")
		if startIdx == -1 {
			return response
		}
		endIdx := strings.LastIndex(response, "}")
		if endIdx == -1 {
			return response
		}
		return strings.TrimSpace(response[startIdx : endIdx+1])
	}

	// Find the end of the first code block
	endIdx := strings.Index(response[startIdx+len(startMarker):], endMarker)
	if endIdx == -1 {
		return response
	}
	endIdx += startIdx + len(startMarker)

	content := response[startIdx+len(startMarker) : endIdx]

	// Remove the language identifier if present (e.g., "json")
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) > 0 && (strings.TrimSpace(lines[0]) == "json" || strings.TrimSpace(lines[0]) == "JSON" || strings.TrimSpace(lines[0]) == "") {
		content = strings.Join(lines[1:], "\n")
	}

	return strings.TrimSpace(content)
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clampCTR(v float64) float64 {
	if v < 2.0 {
		return 2.0
	}
	if v > 12.0 {
		return 12.0
	}
	return v
}

// ParseAIResponse parses the model's raw text output into an AIResponse for
// the given number of input thumbnails. The model output is untrusted, so
// the structure is validated and numeric fields are coerced into their
// documented ranges. A structural mismatch is an error; the caller decides
// whether to fall back.
func ParseAIResponse(response string, count int) (*models.AIResponse, error) {
	cleaned := ExtractJSONFromMarkdown(strings.TrimSpace(response))

	var result models.AIResponse
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, errors.New("failed to parse JSON response: " + err.Error())
	}

	if len(result.Thumbnails) != count {
		return nil, fmt.Errorf("expected %d thumbnail scores, got %d", count, len(result.Thumbnails))
	}
	if result.Winner < 0 || result.Winner >= count {
		return nil, fmt.Errorf("winner index %d out of range [0,%d)", result.Winner, count)
	}

	for i := range result.Thumbnails {
		ts := &result.Thumbnails[i]
		if ts.ThumbnailIndex != i {
			return nil, fmt.Errorf("thumbnail at position %d has index %d", i, ts.ThumbnailIndex)
		}
		ts.OverallScore = clampScore(ts.OverallScore)
		ts.Scores.FaceVisibility = clampScore(ts.Scores.FaceVisibility)
		ts.Scores.TextReadability = clampScore(ts.Scores.TextReadability)
		ts.Scores.ColorContrast = clampScore(ts.Scores.ColorContrast)
		ts.Scores.VisualClarity = clampScore(ts.Scores.VisualClarity)
		ts.Scores.EmotionalImpact = clampScore(ts.Scores.EmotionalImpact)
		ts.PredictedCTR = clampCTR(ts.PredictedCTR)
		if ts.Recommendations == nil {
			ts.Recommendations = []string{}
		}
	}

	return &result, nil
}
