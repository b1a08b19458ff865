package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clickmoment/clickmoment/internal/database"
	"github.com/clickmoment/clickmoment/internal/email"
	"github.com/clickmoment/clickmoment/internal/server"
	"github.com/clickmoment/clickmoment/internal/storage"
	"github.com/clickmoment/clickmoment/web"
)

func main() {
	_ = godotenv.Load()

	port := getEnv("PORT", "8080")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(databaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}
	log.Println("database migrations applied")

	store, err := storage.New(ctx, storage.Config{
		Endpoint:       getEnv("S3_ENDPOINT", "http://localhost:3900"),
		PublicEndpoint: os.Getenv("S3_PUBLIC_ENDPOINT"),
		Bucket:         getEnv("S3_BUCKET", "clickmoment"),
		AccessKey:      os.Getenv("S3_ACCESS_KEY"),
		SecretKey:      os.Getenv("S3_SECRET_KEY"),
		Region:         getEnv("S3_REGION", "eu-central-1"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 2*1024*1024*1024),
	})
	if err != nil {
		log.Fatalf("storage initialization failed: %v", err)
	}

	if err := store.EnsureBucket(ctx); err != nil {
		log.Fatalf("storage bucket check failed: %v", err)
	}
	log.Println("storage bucket ready")

	baseURL := getEnv("BASE_URL", "http://localhost:8080")

	var webFS fs.FS
	if sub, err := fs.Sub(web.DistFS, "dist"); err == nil {
		webFS = sub
		log.Println("embedded frontend loaded")
	} else {
		log.Println("no embedded frontend found, SPA serving disabled")
	}

	emailClient := email.New(email.Config{
		BaseURL:    os.Getenv("LISTMONK_URL"),
		Username:   getEnv("LISTMONK_USER", "admin"),
		Password:   os.Getenv("LISTMONK_PASSWORD"),
		TemplateID: int(getEnvInt64("LISTMONK_TEMPLATE_ID", 0)),
	})

	srv := server.New(server.Config{
		DB:                 db.Pool,
		Pinger:             db,
		Storage:            store,
		WebFS:              webFS,
		JWTSecret:          jwtSecret,
		BaseURL:            baseURL,
		MaxUploadBytes:     getEnvInt64("MAX_UPLOAD_BYTES", 2*1024*1024*1024),
		S3PublicEndpoint:   os.Getenv("S3_PUBLIC_ENDPOINT"),
		AnalysisBackendURL: os.Getenv("ANALYSIS_BACKEND_URL"),
		EmailSender:        emailClient,
	})

	if os.Getenv("ANALYSIS_BACKEND_URL") == "" {
		log.Println("ANALYSIS_BACKEND_URL not set, analysis proxy will refuse requests")
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("clickmoment listening on :%s", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-shutdownCh
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown failed: %v", err)
	}
	log.Println("shutdown complete")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
