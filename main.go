package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"thumbnail-analyze-service/config"
	"thumbnail-analyze-service/database"
	"thumbnail-analyze-service/fallback"
	"thumbnail-analyze-service/handlers"
	"thumbnail-analyze-service/llm"
	"thumbnail-analyze-service/metrics"
	"thumbnail-analyze-service/middleware"
	"thumbnail-analyze-service/openai"
	"thumbnail-analyze-service/service"
	"thumbnail-analyze-service/stubllm"
	"thumbnail-analyze-service/utils"
	"thumbnail-analyze-service/version"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	EndPointHealth   = "/health"
	EndPointAnalyze  = "/analyze"
	EndPointAnalysis = "/analysis/:id"
	EndPointAnalyses = "/analyses"
	EndPointUsage    = "/usage"
)

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg := config.Load()

	log.Info("Starting the thumbnail analyze service...")

	// Select the vision model provider
	var llmClient llm.Client
	if cfg.LLMProvider == "stub" {
		llmClient = stubllm.NewClient()
	} else {
		if cfg.OpenAIAPIKey == "" {
			log.Fatal("OPENAI_API_KEY environment variable is required")
		}
		llmClient = openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIMaxTokens, cfg.OpenAITemperature)
	}
	log.Infof("Analyzer LLM provider=%s model=%s", llmClient.SourceName(), cfg.OpenAIModel)

	// Connect to database
	db, err := utils.DBConnect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize database schema
	if err := database.InitSchema(db); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}

	// Initialize services
	analysisDB := database.NewAnalysisService(db)
	fb := fallback.New(rand.NewSource(time.Now().UnixNano()))
	analyzeService := service.NewAnalyzeService(llmClient, analysisDB, fb, cfg.FreeTierLimit)

	// Initialize handlers
	h := handlers.NewHandlers(analyzeService, analysisDB, cfg.FreeTierLimit)

	// Register metrics
	metrics.Register()

	// Setup router
	router := gin.Default()
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PATCH, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.String(http.StatusOK, "ok")
			c.Abort()
			return
		}

		c.Next()
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get("thumbnail-analyze-service"))
	})
	router.GET(EndPointHealth, h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Create API v3 router group
	apiV3 := router.Group("/api/v3")
	apiV3.Use(middleware.AuthMiddleware(cfg))
	{
		apiV3.POST(EndPointAnalyze, h.AnalyzeThumbnails)
		apiV3.GET(EndPointAnalysis, h.GetAnalysis)
		apiV3.PATCH(EndPointAnalysis, h.UpdateAnalysis)
		apiV3.DELETE(EndPointAnalysis, h.DeleteAnalysis)
		apiV3.GET(EndPointAnalyses, h.ListAnalyses)
		apiV3.GET(EndPointUsage, h.GetUsage)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Infof("Thumbnail analyze service starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
