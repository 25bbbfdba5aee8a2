package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"thumbnail-analyze-service/models"

	"github.com/apex/log"
	"github.com/google/uuid"
)

// ErrNotFound is returned when an analysis does not exist or belongs to
// another user.
var ErrNotFound = errors.New("analysis not found")

// AnalysisService owns reads and writes for users, analyses and thumbnails.
type AnalysisService struct {
	db *sql.DB
}

func NewAnalysisService(db *sql.DB) *AnalysisService {
	return &AnalysisService{db: db}
}

// GetUser loads the subscription fields used for quota checks. The monthly
// counter is read-only here; it is maintained by the subscription side.
func (s *AnalysisService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, subscription_tier, analyses_this_month, created_at
		 FROM users WHERE id = ?`, id).
		Scan(&user.ID, &user.Email, &user.SubscriptionTier, &user.AnalysesThisMonth, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user data: %w", err)
	}
	return user, nil
}

// imageStorageKey derives the object storage key from an image URL. The
// original records the URL path; an unparseable URL falls back to the raw
// string so the audit trail is never empty.
func imageStorageKey(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil || u.Path == "" {
		return imageURL
	}
	return u.Path
}

// CreateAnalysis inserts one analysis row plus one thumbnail row per input,
// all in a single transaction so a failed thumbnail insert never leaves an
// orphaned analysis behind. Thumbnail order follows the input order
// (order_index is 1-based) and exactly one row is flagged as the winner.
func (s *AnalysisService) CreateAnalysis(ctx context.Context, userID string, req *models.AnalysisRequest, ai *models.AIResponse) (*models.AnalysisWithThumbnails, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	analysis := models.Analysis{
		ID:         uuid.New().String(),
		UserID:     userID,
		VideoTitle: req.VideoTitle,
		Category:   req.Category,
		Notes:      req.Notes,
		Status:     "completed",
		CreatedAt:  now,
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO analyses (id, user_id, video_title, category, notes, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		analysis.ID, analysis.UserID, analysis.VideoTitle, analysis.Category,
		analysis.Notes, analysis.Status, analysis.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis: %w", err)
	}

	thumbnails := make([]models.Thumbnail, 0, len(ai.Thumbnails))
	for i, score := range ai.Thumbnails {
		recommendations, err := json.Marshal(score.Recommendations)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal recommendations: %w", err)
		}
		rawScore, err := json.Marshal(score)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal raw analysis: %w", err)
		}

		thumb := models.Thumbnail{
			ID:                   uuid.New().String(),
			AnalysisID:           analysis.ID,
			ImageURL:             req.Thumbnails[i].ImageURL,
			ImageS3Key:           imageStorageKey(req.Thumbnails[i].ImageURL),
			OrderIndex:           i + 1,
			OverallScore:         score.OverallScore,
			FaceVisibilityScore:  score.Scores.FaceVisibility,
			TextReadabilityScore: score.Scores.TextReadability,
			ColorContrastScore:   score.Scores.ColorContrast,
			VisualClarityScore:   score.Scores.VisualClarity,
			EmotionalImpactScore: score.Scores.EmotionalImpact,
			PredictedCTR:         score.PredictedCTR,
			IsWinner:             score.ThumbnailIndex == ai.Winner,
			FaceDetected:         score.FaceDetected,
			TextDetected:         score.TextDetected,
			Recommendations:      score.Recommendations,
			AIAnalysisRaw:        string(rawScore),
			CreatedAt:            now,
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO thumbnails (id, analysis_id, image_url, image_s3_key, order_index,
				overall_score, face_visibility_score, text_readability_score, color_contrast_score,
				visual_clarity_score, emotional_impact_score, predicted_ctr, is_winner,
				face_detected, text_detected, recommendations, ai_analysis_raw, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			thumb.ID, thumb.AnalysisID, thumb.ImageURL, thumb.ImageS3Key, thumb.OrderIndex,
			thumb.OverallScore, thumb.FaceVisibilityScore, thumb.TextReadabilityScore,
			thumb.ColorContrastScore, thumb.VisualClarityScore, thumb.EmotionalImpactScore,
			thumb.PredictedCTR, thumb.IsWinner, thumb.FaceDetected, thumb.TextDetected,
			string(recommendations), string(rawScore), thumb.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to create thumbnails: %w", err)
		}

		thumbnails = append(thumbnails, thumb)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit analysis: %w", err)
	}

	log.Infof("Created analysis %s with %d thumbnails for user %s", analysis.ID, len(thumbnails), userID)

	return &models.AnalysisWithThumbnails{
		Analysis:   analysis,
		Thumbnails: thumbnails,
	}, nil
}

func (s *AnalysisService) getThumbnails(ctx context.Context, analysisID string) ([]models.Thumbnail, error) {
	byAnalysis, err := s.getThumbnailsForAnalyses(ctx, []string{analysisID})
	if err != nil {
		return nil, err
	}
	return byAnalysis[analysisID], nil
}

// getThumbnailsForAnalyses loads thumbnails for a set of analyses in one
// query, keyed by analysis ID and ordered by order_index within each.
func (s *AnalysisService) getThumbnailsForAnalyses(ctx context.Context, analysisIDs []string) (map[string][]models.Thumbnail, error) {
	byAnalysis := make(map[string][]models.Thumbnail, len(analysisIDs))
	if len(analysisIDs) == 0 {
		return byAnalysis, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(analysisIDs)), ", ")
	args := make([]any, len(analysisIDs))
	for i, id := range analysisIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, analysis_id, image_url, image_s3_key, order_index,
			overall_score, face_visibility_score, text_readability_score, color_contrast_score,
			visual_clarity_score, emotional_impact_score, predicted_ctr, is_winner,
			face_detected, text_detected, recommendations, created_at
		 FROM thumbnails WHERE analysis_id IN (`+placeholders+`)
		 ORDER BY analysis_id, order_index`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch thumbnails: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var thumb models.Thumbnail
		var recommendations sql.NullString
		if err := rows.Scan(&thumb.ID, &thumb.AnalysisID, &thumb.ImageURL, &thumb.ImageS3Key,
			&thumb.OrderIndex, &thumb.OverallScore, &thumb.FaceVisibilityScore,
			&thumb.TextReadabilityScore, &thumb.ColorContrastScore, &thumb.VisualClarityScore,
			&thumb.EmotionalImpactScore, &thumb.PredictedCTR, &thumb.IsWinner,
			&thumb.FaceDetected, &thumb.TextDetected, &recommendations, &thumb.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan thumbnail: %w", err)
		}
		thumb.Recommendations = []string{}
		if recommendations.Valid && recommendations.String != "" {
			if err := json.Unmarshal([]byte(recommendations.String), &thumb.Recommendations); err != nil {
				log.Warnf("Failed to unmarshal recommendations for thumbnail %s: %v", thumb.ID, err)
			}
		}
		byAnalysis[thumb.AnalysisID] = append(byAnalysis[thumb.AnalysisID], thumb)
	}
	return byAnalysis, rows.Err()
}

// GetAnalysis returns one analysis with its thumbnails, scoped to the owner.
func (s *AnalysisService) GetAnalysis(ctx context.Context, id, userID string) (*models.AnalysisWithThumbnails, error) {
	analysis := models.Analysis{}
	var videoTitle, category, notes sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, video_title, category, notes, status, created_at
		 FROM analyses WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&analysis.ID, &analysis.UserID, &videoTitle, &category, &notes,
			&analysis.Status, &analysis.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch analysis: %w", err)
	}
	analysis.VideoTitle = videoTitle.String
	analysis.Category = category.String
	analysis.Notes = notes.String

	thumbnails, err := s.getThumbnails(ctx, analysis.ID)
	if err != nil {
		return nil, err
	}

	return &models.AnalysisWithThumbnails{
		Analysis:   analysis,
		Thumbnails: thumbnails,
	}, nil
}

// ListAnalyses returns a page of the user's analysis history, newest first,
// optionally filtered by category and a title substring search.
func (s *AnalysisService) ListAnalyses(ctx context.Context, userID string, page, limit int, category, search string) (*models.ListAnalysesResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	where := []string{"user_id = ?"}
	args := []any{userID}
	if category != "" {
		where = append(where, "category = ?")
		args = append(args, category)
	}
	if search != "" {
		where = append(where, "video_title LIKE ?")
		args = append(args, "%"+search+"%")
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM analyses WHERE "+whereClause, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count analyses: %w", err)
	}

	queryArgs := append(args, limit, (page-1)*limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, video_title, category, notes, status, created_at
		 FROM analyses WHERE `+whereClause+`
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	analyses := []models.AnalysisWithThumbnails{}
	for rows.Next() {
		analysis := models.Analysis{}
		var videoTitle, category, notes sql.NullString
		if err := rows.Scan(&analysis.ID, &analysis.UserID, &videoTitle, &category, &notes,
			&analysis.Status, &analysis.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		analysis.VideoTitle = videoTitle.String
		analysis.Category = category.String
		analysis.Notes = notes.String
		analyses = append(analyses, models.AnalysisWithThumbnails{Analysis: analysis})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ids := make([]string, len(analyses))
	for i := range analyses {
		ids[i] = analyses[i].ID
	}
	thumbnailsByAnalysis, err := s.getThumbnailsForAnalyses(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range analyses {
		thumbnails := thumbnailsByAnalysis[analyses[i].ID]
		if thumbnails == nil {
			thumbnails = []models.Thumbnail{}
		}
		analyses[i].Thumbnails = thumbnails
	}

	return &models.ListAnalysesResponse{
		Analyses: analyses,
		Page:     page,
		Limit:    limit,
		Total:    total,
	}, nil
}

// UpdateAnalysis updates the free-text fields of an analysis, scoped to the
// owner. Nil fields are left unchanged.
func (s *AnalysisService) UpdateAnalysis(ctx context.Context, id, userID string, req *models.UpdateAnalysisRequest) error {
	set := []string{}
	args := []any{}
	if req.VideoTitle != nil {
		set = append(set, "video_title = ?")
		args = append(args, *req.VideoTitle)
	}
	if req.Category != nil {
		set = append(set, "category = ?")
		args = append(args, *req.Category)
	}
	if req.Notes != nil {
		set = append(set, "notes = ?")
		args = append(args, *req.Notes)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id, userID)

	result, err := s.db.ExecContext(ctx,
		"UPDATE analyses SET "+strings.Join(set, ", ")+" WHERE id = ? AND user_id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update analysis: %w", err)
	}
	// The DSN sets clientFoundRows, so this counts matched rows and a
	// value-unchanged update on an existing row does not read as missing.
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAnalysis removes an analysis and its thumbnails, scoped to the owner.
func (s *AnalysisService) DeleteAnalysis(ctx context.Context, id, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM analyses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM thumbnails WHERE analysis_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete thumbnails: %w", err)
	}

	return tx.Commit()
}
