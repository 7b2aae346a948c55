package main

import (
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"clinsight/internal/config"
	"clinsight/internal/handler"
	"clinsight/internal/middleware"
	"clinsight/internal/prompts"
	clinicalSvc "clinsight/internal/service/clinical"
	genaiSvc "clinsight/internal/service/genai"
	"clinsight/internal/service/imaging"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOutput io.Writer = os.Stdout
	if dir := os.Getenv("LOG_DIR"); dir != "" {
		f, err := config.SetupLogFile(dir, 5)
		if err != nil {
			log.Fatalf("Failed to setup log file: %v", err)
		}
		defer f.Close()
		logOutput = io.MultiWriter(os.Stdout, f)
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"model", cfg.GeminiModel,
	)

	if cfg.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY is required")
	}

	// Prompt registry (embedded YAML)
	promptRegistry, err := prompts.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load prompt registry: %v", err)
	}

	// Core services
	generator := genaiSvc.NewClient(cfg, logger)
	preprocessor := imaging.NewPreprocessor(logger)
	sessions := clinicalSvc.NewRegistry(generator, preprocessor, promptRegistry, cfg, logger)
	soapService := clinicalSvc.NewSOAPService(generator, promptRegistry, logger)

	// Handlers
	sessionHandler := handler.NewSessionHandler(sessions, logger)
	triageHandler := handler.NewTriageHandler(sessions, logger)
	assistantHandler := handler.NewAssistantHandler(sessions, logger)
	soapHandler := handler.NewSOAPHandler(sessions, soapService, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", handler.HealthCheck)

	// Session lifecycle
	mux.HandleFunc("POST /api/sessions", sessionHandler.CreateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", sessionHandler.DeleteSession)

	// Continuous analysis loop
	mux.HandleFunc("PUT /api/sessions/{id}/transcript", sessionHandler.UpdateTranscript)
	mux.HandleFunc("GET /api/sessions/{id}/insights", sessionHandler.ListInsights)
	mux.HandleFunc("DELETE /api/sessions/{id}/insights", sessionHandler.ClearInsights)

	// Staged triage pipeline
	mux.HandleFunc("POST /api/sessions/{id}/triage", triageHandler.RunTriage)
	mux.HandleFunc("GET /api/sessions/{id}/triage", triageHandler.GetTriage)

	// Contextual assistant
	mux.HandleFunc("POST /api/sessions/{id}/assistant", assistantHandler.Ask)
	mux.HandleFunc("GET /api/sessions/{id}/assistant", assistantHandler.GetHistory)
	mux.HandleFunc("DELETE /api/sessions/{id}/assistant", assistantHandler.ClearHistory)

	// Structured document generator
	mux.HandleFunc("POST /api/sessions/{id}/soap", soapHandler.Generate)

	// Build middleware chain (they wrap each other, applied in reverse)
	var httpHandler http.Handler = mux
	httpHandler = middleware.Recovery(logger)(httpHandler)

	// CORS - must be outermost to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.InferenceTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
