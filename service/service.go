package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"thumbnail-analyze-service/database"
	"thumbnail-analyze-service/fallback"
	"thumbnail-analyze-service/llm"
	"thumbnail-analyze-service/metrics"
	"thumbnail-analyze-service/models"
	"thumbnail-analyze-service/parser"

	"github.com/apex/log"
)

// ErrAnalysisLimit is returned when a free tier user has exhausted the
// monthly quota. The check runs before any model call so a request that
// will be rejected never incurs API cost.
var ErrAnalysisLimit = errors.New("You've reached your monthly limit. Upgrade to Creator for unlimited analyses.")

// ErrInvalidThumbnailCount is returned when the request carries fewer than
// 2 or more than 4 thumbnails.
var ErrInvalidThumbnailCount = errors.New("Must provide 2-4 thumbnails")

// AnalyzeService orchestrates one analysis request: quota check, model
// invocation, parse-or-fallback, and transactional persistence. Every
// external call is attempted exactly once; there are no retries.
type AnalyzeService struct {
	llmClient     llm.Client
	db            *database.AnalysisService
	fb            *fallback.Generator
	freeTierLimit int
}

func NewAnalyzeService(llmClient llm.Client, db *database.AnalysisService, fb *fallback.Generator, freeTierLimit int) *AnalyzeService {
	return &AnalyzeService{
		llmClient:     llmClient,
		db:            db,
		fb:            fb,
		freeTierLimit: freeTierLimit,
	}
}

// Analyze runs the full orchestration for an authenticated user and returns
// the persisted analysis with its thumbnails.
func (s *AnalyzeService) Analyze(ctx context.Context, userID string, req *models.AnalysisRequest) (*models.AnalysisWithThumbnails, error) {
	user, err := s.db.GetUser(ctx, userID)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("user_error").Inc()
		return nil, err
	}

	if user.SubscriptionTier == "free" && user.AnalysesThisMonth >= s.freeTierLimit {
		log.Warnf("User %s hit the free tier limit (%d analyses this month)", userID, user.AnalysesThisMonth)
		metrics.QuotaRejectionsTotal.Inc()
		metrics.AnalysesTotal.WithLabelValues("quota").Inc()
		return nil, ErrAnalysisLimit
	}

	if len(req.Thumbnails) < 2 || len(req.Thumbnails) > 4 {
		metrics.AnalysesTotal.WithLabelValues("validation").Inc()
		return nil, ErrInvalidThumbnailCount
	}

	imageURLs := make([]string, len(req.Thumbnails))
	for i, thumb := range req.Thumbnails {
		imageURLs[i] = thumb.ImageURL
	}

	start := time.Now()
	response, err := s.llmClient.ScoreThumbnails(ctx, imageURLs, req.VideoTitle, req.Category)
	metrics.LLMRequestDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("llm_error").Inc()
		return nil, fmt.Errorf("failed to analyze thumbnails: %w", err)
	}

	aiResponse, err := parser.ParseAIResponse(response, len(req.Thumbnails))
	if err != nil {
		// Parse failure is a degraded-quality outcome, not a hard error:
		// synthesize scores so the caller still gets a valid result.
		log.Warnf("Failed to parse model response, using fallback scoring: %v", err)
		metrics.LLMFallbackTotal.Inc()
		aiResponse = s.fb.Generate(len(req.Thumbnails))
	}

	result, err := s.db.CreateAnalysis(ctx, userID, req, aiResponse)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("db_error").Inc()
		return nil, err
	}

	log.Infof("Analysis %s completed for user %s via %s (winner: thumbnail %d)",
		result.ID, userID, s.llmClient.SourceName(), aiResponse.Winner+1)
	metrics.AnalysesTotal.WithLabelValues("ok").Inc()
	return result, nil
}
