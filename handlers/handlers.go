package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"thumbnail-analyze-service/database"
	"thumbnail-analyze-service/middleware"
	"thumbnail-analyze-service/models"
	"thumbnail-analyze-service/service"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// Handlers represents the HTTP handlers
type Handlers struct {
	analyzeService *service.AnalyzeService
	db             *database.AnalysisService
	freeTierLimit  int
}

// NewHandlers creates new HTTP handlers
func NewHandlers(analyzeService *service.AnalyzeService, db *database.AnalysisService, freeTierLimit int) *Handlers {
	return &Handlers{
		analyzeService: analyzeService,
		db:             db,
		freeTierLimit:  freeTierLimit,
	}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "thumbnail-analyze-service",
	})
}

// AnalyzeThumbnails runs the analysis orchestration for 2-4 candidate
// thumbnails and returns the persisted result.
func (h *Handlers) AnalyzeThumbnails(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)

	req := &models.AnalysisRequest{}
	if err := c.BindJSON(req); err != nil {
		log.Errorf("Failed to parse analyze request body: %v", err)
		c.JSON(http.StatusBadRequest, models.ErrorResponse("SERVER_ERROR", "Invalid request body"))
		return
	}

	result, err := h.analyzeService.Analyze(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAnalysisLimit):
			c.JSON(http.StatusForbidden, models.ErrorResponse("ANALYSIS_LIMIT", err.Error()))
		case errors.Is(err, service.ErrInvalidThumbnailCount):
			c.JSON(http.StatusBadRequest, models.ErrorResponse("SERVER_ERROR", err.Error()))
		default:
			log.Errorf("Analysis failed for user %s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse("SERVER_ERROR", err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse(result))
}

// GetAnalysis returns a single analysis with its thumbnails
func (h *Handlers) GetAnalysis(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)
	id := c.Param("id")

	result, err := h.db.GetAnalysis(c.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse("NOT_FOUND", "Analysis not found"))
			return
		}
		log.Errorf("Failed to fetch analysis %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse("SERVER_ERROR", err.Error()))
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse(result))
}

// ListAnalyses returns a page of the user's analysis history
func (h *Handlers) ListAnalyses(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	category := c.Query("category")
	search := c.Query("search")

	result, err := h.db.ListAnalyses(c.Request.Context(), userID, page, limit, category, search)
	if err != nil {
		log.Errorf("Failed to list analyses for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse("SERVER_ERROR", err.Error()))
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse(result))
}

// UpdateAnalysis updates the free-text fields of an analysis
func (h *Handlers) UpdateAnalysis(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)
	id := c.Param("id")

	req := &models.UpdateAnalysisRequest{}
	if err := c.BindJSON(req); err != nil {
		log.Errorf("Failed to parse update request body: %v", err)
		c.JSON(http.StatusBadRequest, models.ErrorResponse("SERVER_ERROR", "Invalid request body"))
		return
	}

	if err := h.db.UpdateAnalysis(c.Request.Context(), id, userID, req); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse("NOT_FOUND", "Analysis not found"))
			return
		}
		log.Errorf("Failed to update analysis %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse("SERVER_ERROR", err.Error()))
		return
	}

	result, err := h.db.GetAnalysis(c.Request.Context(), id, userID)
	if err != nil {
		log.Errorf("Failed to fetch analysis %s after update: %v", id, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse("SERVER_ERROR", err.Error()))
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse(result))
}

// DeleteAnalysis removes an analysis and its thumbnails
func (h *Handlers) DeleteAnalysis(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)
	id := c.Param("id")

	if err := h.db.DeleteAnalysis(c.Request.Context(), id, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse("NOT_FOUND", "Analysis not found"))
			return
		}
		log.Errorf("Failed to delete analysis %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse("SERVER_ERROR", err.Error()))
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"deleted": true}))
}

// GetUsage returns the caller's subscription tier and monthly usage
func (h *Handlers) GetUsage(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)

	user, err := h.db.GetUser(c.Request.Context(), userID)
	if err != nil {
		log.Errorf("Failed to fetch user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse("SERVER_ERROR", err.Error()))
		return
	}

	usage := models.UsageResponse{
		SubscriptionTier:  user.SubscriptionTier,
		AnalysesThisMonth: user.AnalysesThisMonth,
	}
	if user.SubscriptionTier == "free" {
		usage.MonthlyLimit = h.freeTierLimit
	}

	c.JSON(http.StatusOK, models.SuccessResponse(usage))
}
