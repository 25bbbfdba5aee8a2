package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"thumbnail-analyze-service/database"
	"thumbnail-analyze-service/fallback"
	"thumbnail-analyze-service/service"
	"thumbnail-analyze-service/stubllm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// envelope mirrors the wire shape so tests assert exactly what clients see.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	analysisDB := database.NewAnalysisService(db)
	svc := service.NewAnalyzeService(stubllm.NewClient(), analysisDB, fallback.New(rand.NewSource(1)), 3)
	h := NewHandlers(svc, analysisDB, 3)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", "user-1")
		c.Next()
	})
	router.POST("/analyze", h.AnalyzeThumbnails)
	router.GET("/analysis/:id", h.GetAnalysis)
	router.GET("/usage", h.GetUsage)
	return router, mock, func() { db.Close() }
}

func expectUser(mock sqlmock.Sqlmock, tier string, analysesThisMonth int) {
	mock.ExpectQuery("SELECT id, email, subscription_tier, analyses_this_month, created_at FROM users").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "email", "subscription_tier", "analyses_this_month", "created_at"}).
			AddRow("user-1", "me@example.com", tier, analysesThisMonth, time.Now()))
}

func analyzeBody(t *testing.T, thumbnailCount int) *bytes.Buffer {
	t.Helper()
	thumbnails := []map[string]any{}
	urls := []string{
		"https://cdn.example.com/thumbs/a.jpg",
		"https://cdn.example.com/thumbs/b.jpg",
		"https://cdn.example.com/thumbs/c.jpg",
		"https://cdn.example.com/thumbs/d.jpg",
		"https://cdn.example.com/thumbs/e.jpg",
	}
	for i := 0; i < thumbnailCount; i++ {
		thumbnails = append(thumbnails, map[string]any{"imageUrl": urls[i], "order": i})
	}
	body, err := json.Marshal(map[string]any{
		"videoTitle": "How to Build iOS Apps",
		"category":   "Education",
		"thumbnails": thumbnails,
	})
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	return bytes.NewBuffer(body)
}

func doRequest(router *gin.Engine, method, path string, body *bytes.Buffer) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, body)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode envelope: %v, body: %s", err, w.Body.String())
	}
	return resp
}

func TestAnalyzeThumbnailsQuotaExceeded(t *testing.T) {
	router, mock, cleanup := newTestRouter(t)
	defer cleanup()

	expectUser(mock, "free", 3)

	w := doRequest(router, http.MethodPost, "/analyze", analyzeBody(t, 2))

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Success || resp.Error == nil {
		t.Fatal("expected a failed envelope with an error")
	}
	if resp.Error.Code != "ANALYSIS_LIMIT" {
		t.Errorf("error code = %q, want ANALYSIS_LIMIT", resp.Error.Code)
	}
	if resp.Error.Message != "You've reached your monthly limit. Upgrade to Creator for unlimited analyses." {
		t.Errorf("unexpected message %q", resp.Error.Message)
	}
}

func TestAnalyzeThumbnailsInvalidCount(t *testing.T) {
	router, mock, cleanup := newTestRouter(t)
	defer cleanup()

	expectUser(mock, "free", 0)

	w := doRequest(router, http.MethodPost, "/analyze", analyzeBody(t, 1))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil || resp.Error.Code != "SERVER_ERROR" {
		t.Fatalf("expected SERVER_ERROR, got %+v", resp.Error)
	}
	if resp.Error.Message != "Must provide 2-4 thumbnails" {
		t.Errorf("unexpected message %q", resp.Error.Message)
	}
}

func TestAnalyzeThumbnailsMalformedBody(t *testing.T) {
	router, _, cleanup := newTestRouter(t)
	defer cleanup()

	w := doRequest(router, http.MethodPost, "/analyze", bytes.NewBufferString("{not json"))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil || resp.Error.Code != "SERVER_ERROR" || resp.Error.Message != "Invalid request body" {
		t.Errorf("unexpected error %+v", resp.Error)
	}
}

func TestAnalyzeThumbnailsInternalError(t *testing.T) {
	router, mock, cleanup := newTestRouter(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, email, subscription_tier, analyses_this_month, created_at FROM users").
		WithArgs("user-1").
		WillReturnError(errors.New("connection refused"))

	w := doRequest(router, http.MethodPost, "/analyze", analyzeBody(t, 2))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil || resp.Error.Code != "SERVER_ERROR" {
		t.Errorf("unexpected error %+v", resp.Error)
	}
}

func TestAnalyzeThumbnailsSuccessEnvelope(t *testing.T) {
	router, mock, cleanup := newTestRouter(t)
	defer cleanup()

	expectUser(mock, "creator", 10)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO analyses").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO thumbnails").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO thumbnails").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	w := doRequest(router, http.MethodPost, "/analyze", analyzeBody(t, 2))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}
	resp := decodeEnvelope(t, w)
	if !resp.Success || resp.Error != nil {
		t.Fatalf("expected a successful envelope, got %s", w.Body.String())
	}
	var data struct {
		Status     string `json:"status"`
		Thumbnails []struct {
			OrderIndex int  `json:"order_index"`
			IsWinner   bool `json:"is_winner"`
		} `json:"thumbnails"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if data.Status != "completed" {
		t.Errorf("status = %q, want completed", data.Status)
	}
	if len(data.Thumbnails) != 2 {
		t.Fatalf("got %d thumbnails, want 2", len(data.Thumbnails))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	router, mock, cleanup := newTestRouter(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, user_id, video_title, category, notes, status, created_at FROM analyses").
		WithArgs("missing", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "video_title", "category", "notes", "status", "created_at"}))

	w := doRequest(router, http.MethodGet, "/analysis/missing", nil)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil || resp.Error.Code != "NOT_FOUND" || resp.Error.Message != "Analysis not found" {
		t.Errorf("unexpected error %+v", resp.Error)
	}
}

func TestGetUsageFreeTier(t *testing.T) {
	router, mock, cleanup := newTestRouter(t)
	defer cleanup()

	expectUser(mock, "free", 2)

	w := doRequest(router, http.MethodGet, "/usage", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if !resp.Success {
		t.Fatal("expected a successful envelope")
	}
	var usage struct {
		SubscriptionTier  string `json:"subscription_tier"`
		AnalysesThisMonth int    `json:"analyses_this_month"`
		MonthlyLimit      int    `json:"monthly_limit"`
	}
	if err := json.Unmarshal(resp.Data, &usage); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if usage.SubscriptionTier != "free" || usage.AnalysesThisMonth != 2 || usage.MonthlyLimit != 3 {
		t.Errorf("usage = %+v, want free/2/3", usage)
	}
}
