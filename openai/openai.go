package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ImageContent struct {
	Type     string   `json:"type"`
	ImageURL ImageURL `json:"image_url"`
}

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content any `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client represents an OpenAI API client
type Client struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// NewClient creates a new OpenAI client
func NewClient(apiKey, model string, maxTokens int, temperature float64) *Client {
	return &Client{
		apiKey:      apiKey,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// SourceName identifies this provider in logs and saved analyses
func (c *Client) SourceName() string {
	return "ChatGPT"
}

// ScoreThumbnails sends the scoring rubric plus all thumbnail image URLs
// in a single user message and returns the raw model output text.
// The call is attempted exactly once; a non-2xx status surfaces the
// upstream body in the returned error.
func (c *Client) ScoreThumbnails(ctx context.Context, imageURLs []string, videoTitle, category string) (string, error) {
	content := make([]any, 0, len(imageURLs)+1)
	content = append(content, TextContent{
		Type: "text",
		Text: BuildPrompt(videoTitle, category),
	})
	for _, url := range imageURLs {
		content = append(content, ImageContent{
			Type:     "image_url",
			ImageURL: ImageURL{URL: url},
		})
	}

	reqBody := ChatRequest{
		Model: c.model,
		Messages: []Message{
			{
				Role:    "user",
				Content: content,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIEndpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenAI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	// Extract the text content from the response
	respContent := chatResp.Choices[0].Message.Content
	if contentStr, ok := respContent.(string); ok {
		return contentStr, nil
	}

	// If content is not a string, try to marshal it back to JSON
	contentJSON, err := json.Marshal(respContent)
	if err != nil {
		return "", fmt.Errorf("failed to marshal content: %w", err)
	}

	return string(contentJSON), nil
}

// BuildPrompt returns the fixed scoring rubric. The text is deterministic
// given (videoTitle, category).
func BuildPrompt(videoTitle, category string) string {
	var sb strings.Builder
	sb.WriteString("Analyze these YouTube thumbnail images for predicted CTR performance.\n\n")
	if videoTitle != "" {
		sb.WriteString("Video Title: " + videoTitle + "\n")
	}
	if category != "" {
		sb.WriteString("Category: " + category + "\n")
	}
	sb.WriteString(`Target audience: YouTube viewers

For each thumbnail, evaluate these factors (0-100 scale):

1. Face Visibility: Are faces clearly visible? Is emotion identifiable?
   Rate higher for: clear facial expressions, direct eye contact, close-up faces
   Rate lower for: obscured faces, small faces, no emotion visible

2. Text Readability: Is text legible at thumbnail size (320x180)?
   Rate higher for: bold text, high contrast, 3-5 words max, large font
   Rate lower for: small text, low contrast, too many words, complex fonts

3. Color Contrast: Do colors stand out? Is there visual hierarchy?
   Rate higher for: complementary colors, bold contrasts, clear focal point
   Rate lower for: muddy colors, low contrast, cluttered composition

4. Visual Clarity: Is the thumbnail easy to understand at a glance?
   Rate higher for: simple composition, clear subject, not cluttered
   Rate lower for: too many elements, confusing layout, unclear subject

5. Emotional Impact: Does it evoke curiosity, emotion, or intrigue?
   Rate higher for: strong emotions, mystery, surprise elements
   Rate lower for: bland expressions, boring composition, no hook

Provide:
- Overall score (weighted average, 0-100)
- Individual scores for each factor
- Predicted CTR (realistic: 2-12% range)
- Whether faces detected (boolean)
- Any text detected (string, empty if none)
- 3-5 specific, actionable recommendations
- Which thumbnail is the winner (0-indexed)

Return ONLY valid JSON in this exact format:
{
  "thumbnails": [
    {
      "thumbnailIndex": 0,
      "overallScore": 87,
      "scores": {
        "faceVisibility": 95,
        "textReadability": 82,
        "colorContrast": 88,
        "visualClarity": 90,
        "emotionalImpact": 85
      },
      "predictedCTR": 8.7,
      "faceDetected": true,
      "textDetected": "BUILD iOS APPS",
      "recommendations": [
        "Excellent face visibility creates strong connection",
        "Text could be 15% larger for mobile viewing",
        "Strong color contrast makes thumbnail pop",
        "Consider adding urgency element"
      ]
    }
  ],
  "winner": 0
}`)
	return sb.String()
}
