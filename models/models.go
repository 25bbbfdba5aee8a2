package models

import "time"

// ThumbnailInput is one candidate image submitted for scoring.
type ThumbnailInput struct {
	ImageURL string `json:"imageUrl" binding:"required"`
	Order    int    `json:"order"`
}

// AnalysisRequest is the body of the analyze endpoint.
type AnalysisRequest struct {
	VideoTitle string           `json:"videoTitle,omitempty"`
	Category   string           `json:"category,omitempty"`
	Notes      string           `json:"notes,omitempty"`
	Thumbnails []ThumbnailInput `json:"thumbnails"`
}

// ComponentScores are the five 0-100 factors the model rates per thumbnail.
type ComponentScores struct {
	FaceVisibility  int `json:"faceVisibility"`
	TextReadability int `json:"textReadability"`
	ColorContrast   int `json:"colorContrast"`
	VisualClarity   int `json:"visualClarity"`
	EmotionalImpact int `json:"emotionalImpact"`
}

// ThumbnailScore is one scored thumbnail as returned by the model
// (or synthesized by the fallback generator).
type ThumbnailScore struct {
	ThumbnailIndex  int             `json:"thumbnailIndex"`
	OverallScore    int             `json:"overallScore"`
	Scores          ComponentScores `json:"scores"`
	PredictedCTR    float64         `json:"predictedCTR"`
	FaceDetected    bool            `json:"faceDetected"`
	TextDetected    string          `json:"textDetected"`
	Recommendations []string        `json:"recommendations"`
}

// AIResponse is the structured output expected from the vision model.
// Winner is a 0-based index into Thumbnails.
type AIResponse struct {
	Thumbnails []ThumbnailScore `json:"thumbnails"`
	Winner     int              `json:"winner"`
}

// User carries the subscription fields the analyzer reads for quota checks.
type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	SubscriptionTier  string    `json:"subscription_tier"`
	AnalysesThisMonth int       `json:"analyses_this_month"`
	CreatedAt         time.Time `json:"created_at"`
}

// Analysis is a persisted scoring run over a set of thumbnails.
type Analysis struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	VideoTitle string    `json:"video_title,omitempty"`
	Category   string    `json:"category,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Thumbnail is a persisted per-image result belonging to an Analysis.
type Thumbnail struct {
	ID                   string    `json:"id"`
	AnalysisID           string    `json:"analysis_id"`
	ImageURL             string    `json:"image_url"`
	ImageS3Key           string    `json:"image_s3_key"`
	OrderIndex           int       `json:"order_index"`
	OverallScore         int       `json:"overall_score"`
	FaceVisibilityScore  int       `json:"face_visibility_score"`
	TextReadabilityScore int       `json:"text_readability_score"`
	ColorContrastScore   int       `json:"color_contrast_score"`
	VisualClarityScore   int       `json:"visual_clarity_score"`
	EmotionalImpactScore int       `json:"emotional_impact_score"`
	PredictedCTR         float64   `json:"predicted_ctr"`
	IsWinner             bool      `json:"is_winner"`
	FaceDetected         bool      `json:"face_detected"`
	TextDetected         string    `json:"text_detected"`
	Recommendations      []string  `json:"recommendations"`
	AIAnalysisRaw        string    `json:"ai_analysis_raw,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// AnalysisWithThumbnails is the composed result returned to the client.
type AnalysisWithThumbnails struct {
	Analysis
	Thumbnails []Thumbnail `json:"thumbnails"`
}

// UpdateAnalysisRequest updates the free-text fields of an analysis.
type UpdateAnalysisRequest struct {
	VideoTitle *string `json:"videoTitle,omitempty"`
	Category   *string `json:"category,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

// ListAnalysesResponse is a paginated history page.
type ListAnalysesResponse struct {
	Analyses []AnalysisWithThumbnails `json:"analyses"`
	Page     int                      `json:"page"`
	Limit    int                      `json:"limit"`
	Total    int                      `json:"total"`
}

// UsageResponse backs the client's paywall/usage screen.
type UsageResponse struct {
	SubscriptionTier  string `json:"subscription_tier"`
	AnalysesThisMonth int    `json:"analyses_this_month"`
	MonthlyLimit      int    `json:"monthly_limit"` // 0 means unlimited
}

// APIError is the structured error body of the response envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope is the uniform {success, data|error} response shape.
type Envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// ErrorResponse builds a failed envelope.
func ErrorResponse(code, message string) Envelope {
	return Envelope{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
	}
}

// SuccessResponse builds a successful envelope.
func SuccessResponse(data any) Envelope {
	return Envelope{
		Success: true,
		Data:    data,
	}
}
